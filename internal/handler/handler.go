// Package handler содержит HTTP-обработчики формы приёма заказов.
package handler

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/flexylabel-order/internal/dispatch"
	"github.com/mmeshcher/flexylabel-order/internal/metrics"
	"github.com/mmeshcher/flexylabel-order/internal/model"
	"github.com/mmeshcher/flexylabel-order/internal/validation"
)

//go:embed templates/*.html
var templatesFS embed.FS

var formTemplate = template.Must(template.ParseFS(templatesFS, "templates/form.html"))

const multipartMemory = 8 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Submit(ctx context.Context, form validation.Form) (*model.Submission, error)
	Estimate(form validation.Form) (model.Specs, model.DerivedMetrics, error)
	Materials() []model.Material
}

// Handler реализует HTTP-обработчики сервиса приёма заказов.
type Handler struct {
	service   Service
	logger    *zap.Logger
	metrics   *metrics.Metrics
	maxUpload int64
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, m *metrics.Metrics, maxUploadBytes int64) *Handler {
	return &Handler{
		service:   s,
		logger:    logger,
		metrics:   m,
		maxUpload: maxUploadBytes,
	}
}

type formPage struct {
	Materials []model.Material
	Mandrils  []int
	Positions []int
}

// Form отдаёт HTML-форму заказа.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	page := formPage{
		Materials: h.service.Materials(),
		Mandrils:  model.Mandrils,
		Positions: []int{1, 2, 3, 4, 5, 6, 7, 8},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTemplate.Execute(w, page); err != nil {
		h.logger.Error("render form error", zap.Error(err))
	}
}

type submitResponse struct {
	Reference  string               `json:"reference"`
	Status     model.Stage          `json:"status"`
	Document   string               `json:"document"`
	Sections   []string             `json:"sections"`
	Recipients []string             `json:"recipients"`
	Metrics    model.DerivedMetrics `json:"metrics"`
	Warnings   []string             `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error     string                  `json:"error"`
	Fields    []validation.FieldIssue `json:"fields,omitempty"`
	Delivered []string                `json:"delivered,omitempty"`
}

// SubmitOrder принимает форму заказа с макетом и проводит её через конвейер.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	form := formFromValues(r.FormValue)

	design, err := readDesign(r)
	if err != nil {
		h.logger.Warn("read design upload error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form.Design = design

	sub, err := h.service.Submit(r.Context(), form)
	if err != nil {
		h.writeSubmitError(w, sub, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Reference:  sub.Reference,
		Status:     sub.Stage,
		Document:   sub.Document,
		Sections:   sub.Sections,
		Recipients: sub.Recipients,
		Metrics:    sub.Metrics,
		Warnings:   sub.Warnings,
	})
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, sub *model.Submission, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "please complete the required fields: " + strings.Join(verr.Fields(), ", "),
			Fields: verr.Issues,
		})
		return
	}

	var reference string
	var delivered []string
	if sub != nil {
		reference = sub.Reference
		delivered = sub.Recipients
	}

	var dErr *dispatch.Error
	if errors.As(err, &dErr) {
		h.logger.Error("submit order dispatch error", zap.Error(err), zap.String("reference", reference))
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:     "the order could not be sent, please submit it again: " + dErr.Err.Error(),
			Delivered: delivered,
		})
		return
	}

	h.logger.Error("submit order error", zap.Error(err), zap.String("reference", reference))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type estimateResponse struct {
	Material model.Material       `json:"material"`
	Rolls    int                  `json:"rolls"`
	Mandril  int                  `json:"mandril_mm"`
	Metrics  model.DerivedMetrics `json:"metrics"`
}

// Estimate возвращает предварительный расчёт погонных метров и площади по параметрам запроса.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	specs, m, err := h.service.Estimate(formFromValues(q.Get))
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Fields: verr.Issues})
			return
		}
		h.logger.Error("estimate error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, estimateResponse{
		Material: specs.Material,
		Rolls:    m.Rolls,
		Mandril:  specs.Winding.MandrilMM,
		Metrics:  m,
	})
}

// Materials возвращает каталог материалов.
func (h *Handler) Materials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Materials())
}

func formFromValues(get func(string) string) validation.Form {
	return validation.Form{
		ClientName:      get("client"),
		Email:           get("email"),
		Reference:       get("reference"),
		Width:           get("width"),
		Length:          get("length"),
		Quantity:        get("quantity"),
		LabelsPerRoll:   get("labels_per_roll"),
		Inks:            get("inks"),
		Material:        get("material"),
		WindingPosition: get("winding_position"),
		Orientation:     get("orientation"),
		Mandril:         get("mandril"),
		Notes:           get("notes"),
		DeliveryDate:    get("delivery_date"),
	}
}

// readDesign читает файл макета из поля design. Отсутствие файла не ошибка.
func readDesign(r *http.Request) (*model.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	file, header, err := r.FormFile("design")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &model.Attachment{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
