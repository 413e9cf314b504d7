package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/flexylabel-order/internal/dispatch"
	"github.com/mmeshcher/flexylabel-order/internal/metrics"
	"github.com/mmeshcher/flexylabel-order/internal/model"
	"github.com/mmeshcher/flexylabel-order/internal/validation"
)

type stubService struct {
	submitResp *model.Submission
	submitErr  error
	gotForm    validation.Form
	submitted  bool

	estimateSpecs   model.Specs
	estimateMetrics model.DerivedMetrics
	estimateErr     error
}

func (s *stubService) Submit(ctx context.Context, form validation.Form) (*model.Submission, error) {
	s.submitted = true
	s.gotForm = form
	return s.submitResp, s.submitErr
}

func (s *stubService) Estimate(form validation.Form) (model.Specs, model.DerivedMetrics, error) {
	return s.estimateSpecs, s.estimateMetrics, s.estimateErr
}

func (s *stubService) Materials() []model.Material {
	return model.Materials()
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger, metrics.New(), 1<<20)
}

var samplePDF = []byte("%PDF-1.4\n%%EOF\n")

func multipartOrder(t *testing.T, fields map[string]string, design []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if design != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="design"; filename="artwork.pdf"`)
		hdr.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(design); err != nil {
			t.Fatalf("write design: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

var acmeFields = map[string]string{
	"client":           "Acme",
	"email":            "ops@acme.com",
	"width":            "100",
	"length":           "100",
	"quantity":         "5000",
	"material":         "PP White",
	"mandril":          "76mm",
	"winding_position": "3",
}

func TestSubmitOrder_Success(t *testing.T) {
	svc := &stubService{
		submitResp: &model.Submission{
			Reference:  "FL-1A2B3C4D",
			Stage:      model.StageSent,
			Document:   "Order_FL-1A2B3C4D.pdf",
			Sections:   []string{"Client Info", "Technical Specs"},
			Recipients: []string{"shop@flexylabel.test", "ops@acme.com"},
			Metrics:    model.DerivedMetrics{LinearMeters: 515, AreaM2: 51.5},
		},
	}
	h := newTestHandler(t, svc)

	body, contentType := multipartOrder(t, acmeFields, samplePDF)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got submitResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != model.StageSent || got.Metrics.LinearMeters != 515 || got.Metrics.AreaM2 != 51.5 {
		t.Fatalf("unexpected response: %+v", got)
	}

	if svc.gotForm.ClientName != "Acme" || svc.gotForm.Mandril != "76mm" || svc.gotForm.Quantity != "5000" {
		t.Fatalf("form not passed to service: %+v", svc.gotForm)
	}
	if svc.gotForm.Design == nil || !bytes.Equal(svc.gotForm.Design.Data, samplePDF) {
		t.Fatalf("design not passed to service")
	}
	if svc.gotForm.Design.MIMEType != "application/pdf" || svc.gotForm.Design.Filename != "artwork.pdf" {
		t.Fatalf("unexpected design metadata: %+v", svc.gotForm.Design)
	}
}

func TestSubmitOrder_ValidationError(t *testing.T) {
	svc := &stubService{
		submitResp: &model.Submission{Stage: model.StageRejected},
		submitErr: &validation.Error{Issues: []validation.FieldIssue{
			{Field: "client", Reason: "is required"},
			{Field: "design", Reason: "is required"},
		}},
	}
	h := newTestHandler(t, svc)

	body, contentType := multipartOrder(t, map[string]string{"email": "ops@acme.com"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}

	var got errorResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error != "please complete the required fields: client, design" {
		t.Fatalf("error = %q", got.Error)
	}
	if len(got.Fields) != 2 {
		t.Fatalf("fields = %+v, want 2 entries", got.Fields)
	}
	if svc.gotForm.Design != nil {
		t.Fatalf("design must be nil when no file is uploaded")
	}
}

func TestSubmitOrder_DispatchError(t *testing.T) {
	svc := &stubService{
		submitResp: &model.Submission{Reference: "FL-1", Stage: model.StageDispatchFailed},
		submitErr:  &dispatch.Error{Err: errors.New("535 authentication failed")},
	}
	h := newTestHandler(t, svc)

	body, contentType := multipartOrder(t, acmeFields, samplePDF)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadGateway)
	}
	raw, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(raw), "535 authentication failed") {
		t.Fatalf("body %q does not mention transport error", raw)
	}
}

func TestSubmitOrder_InternalError(t *testing.T) {
	svc := &stubService{
		submitResp: &model.Submission{Stage: model.StageRenderFailed},
		submitErr:  errors.New("render summary: boom"),
	}
	h := newTestHandler(t, svc)

	body, contentType := multipartOrder(t, acmeFields, samplePDF)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestSubmitOrder_TooLarge(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, zap.NewNop(), nil, 64)

	body, contentType := multipartOrder(t, acmeFields, bytes.Repeat([]byte("x"), 1024))
	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if svc.submitted {
		t.Fatalf("service must not be called for oversized uploads")
	}
}

func TestSubmitOrder_URLEncoded(t *testing.T) {
	svc := &stubService{submitResp: &model.Submission{Stage: model.StageSent}}
	h := newTestHandler(t, svc)

	values := url.Values{}
	for k, v := range acmeFields {
		values.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.SubmitOrder(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.gotForm.Email != "ops@acme.com" || svc.gotForm.Design != nil {
		t.Fatalf("unexpected form: %+v", svc.gotForm)
	}
}

func TestEstimate_JSONResponse(t *testing.T) {
	svc := &stubService{
		estimateSpecs:   model.Specs{Material: model.LookupMaterial("PP White"), Winding: model.Winding{MandrilMM: 76}},
		estimateMetrics: model.DerivedMetrics{LinearMeters: 515, AreaM2: 51.5, Rolls: 5},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/estimate?width=100&length=100&quantity=5000", nil)
	rec := httptest.NewRecorder()

	h.Estimate(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var got estimateResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Metrics.LinearMeters != 515 || got.Rolls != 5 || got.Material.Name != "PP White" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestEstimate_Invalid(t *testing.T) {
	svc := &stubService{
		estimateErr: &validation.Error{Issues: []validation.FieldIssue{{Field: "quantity", Reason: "must be at least 100"}}},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/estimate?quantity=99", nil)
	rec := httptest.NewRecorder()

	h.Estimate(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestForm_RendersCatalog(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := httptest.NewRecorder()
	h.Form(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="design"`, "PP White", "Laid Cream", `value="76mm"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("form does not contain %q", want)
		}
	}
}

func TestRouter(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	r := h.SetupRouter()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{method: http.MethodGet, path: "/api/materials", status: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/unknown", status: http.StatusNotFound},
		{method: http.MethodDelete, path: "/api/orders", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
