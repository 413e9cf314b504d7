package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flexylabel-order/internal/model"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func fixedNow() time.Time {
	return time.Date(2026, time.March, 2, 15, 4, 5, 0, time.UTC)
}

func validForm() Form {
	return Form{
		ClientName:      "Acme",
		Email:           "ops@acme.com",
		Width:           "100",
		Length:          "100",
		Quantity:        "5000",
		Material:        "PP White",
		WindingPosition: "3",
		Mandril:         "76mm",
		Design: &model.Attachment{
			Filename: "artwork.pdf",
			MIMEType: "application/pdf",
			Data:     samplePDF,
		},
	}
}

func defaultOptions() Options {
	return Options{RequireDesign: true, LeadDays: 7, Now: fixedNow}
}

func issuesOf(t *testing.T, err error) *Error {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %v", err)
	return verr
}

func TestValidateAndBuild_Success(t *testing.T) {
	order, warnings, err := ValidateAndBuild(validForm(), defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "Acme", order.Identity.ClientName)
	assert.Equal(t, "ops@acme.com", order.Identity.Email)
	assert.True(t, strings.HasPrefix(order.Identity.Reference, "FL-"))
	assert.Len(t, order.Identity.Reference, 11)

	g := order.Specs.Geometry
	assert.Equal(t, 100.0, g.WidthMM)
	assert.Equal(t, 100.0, g.LengthMM)
	assert.Equal(t, 5000, g.Quantity)
	assert.Equal(t, 1000, g.LabelsPerRoll)

	assert.Equal(t, "PP White", order.Specs.Material.Name)
	assert.True(t, order.Specs.Material.Catalogued)
	assert.Equal(t, model.Winding{Position: 3, Orientation: model.OrientationExterior, MandrilMM: 76}, order.Specs.Winding)

	require.True(t, order.HasDesign())
	assert.Equal(t, "artwork.pdf", order.Design.Filename)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), order.DeliveryDate)
}

func TestValidateAndBuild_KeepsGivenReference(t *testing.T) {
	form := validForm()
	form.Reference = "  PO-7781 "
	form.DeliveryDate = "2026-04-01"
	form.Orientation = "Interior"

	order, _, err := ValidateAndBuild(form, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "PO-7781", order.Identity.Reference)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), order.DeliveryDate)
	assert.Equal(t, model.OrientationInterior, order.Specs.Winding.Orientation)
}

func TestValidateAndBuild_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Form)
		fields []string
	}{
		{
			name:   "empty client name",
			mutate: func(f *Form) { f.ClientName = "   " },
			fields: []string{"client"},
		},
		{
			name:   "email without at sign",
			mutate: func(f *Form) { f.Email = "ops.acme.com" },
			fields: []string{"email"},
		},
		{
			name:   "email without domain",
			mutate: func(f *Form) { f.Email = "ops@" },
			fields: []string{"email"},
		},
		{
			name:   "email without local part",
			mutate: func(f *Form) { f.Email = "@acme.com" },
			fields: []string{"email"},
		},
		{
			name:   "email with inner space",
			mutate: func(f *Form) { f.Email = "ops @acme.com" },
			fields: []string{"email"},
		},
		{
			name:   "email list instead of one address",
			mutate: func(f *Form) { f.Email = "ops@acme.com, x" },
			fields: []string{"email"},
		},
		{
			name:   "missing design",
			mutate: func(f *Form) { f.Design = nil },
			fields: []string{"design"},
		},
		{
			name:   "empty design file",
			mutate: func(f *Form) { f.Design = &model.Attachment{Filename: "a.pdf", MIMEType: "application/pdf"} },
			fields: []string{"design"},
		},
		{
			name: "design is not a pdf",
			mutate: func(f *Form) {
				f.Design = &model.Attachment{Filename: "a.png", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
			},
			fields: []string{"design"},
		},
		{
			name:   "quantity below minimum",
			mutate: func(f *Form) { f.Quantity = "99" },
			fields: []string{"quantity"},
		},
		{
			name:   "width is not a number",
			mutate: func(f *Form) { f.Width = "wide" },
			fields: []string{"width"},
		},
		{
			name:   "length above maximum",
			mutate: func(f *Form) { f.Length = "501" },
			fields: []string{"length"},
		},
		{
			name:   "winding position out of range",
			mutate: func(f *Form) { f.WindingPosition = "9" },
			fields: []string{"winding_position"},
		},
		{
			name:   "unknown mandril",
			mutate: func(f *Form) { f.Mandril = "50 mm" },
			fields: []string{"mandril"},
		},
		{
			name:   "bad delivery date",
			mutate: func(f *Form) { f.DeliveryDate = "01/04/2026" },
			fields: []string{"delivery_date"},
		},
		{
			name: "several fields at once",
			mutate: func(f *Form) {
				f.ClientName = ""
				f.Email = ""
				f.Design = nil
			},
			fields: []string{"client", "email", "design"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			_, _, err := ValidateAndBuild(form, defaultOptions())
			require.Error(t, err)
			assert.Equal(t, tt.fields, issuesOf(t, err).Fields())
		})
	}
}

func TestValidateAndBuild_QuantityMessage(t *testing.T) {
	form := validForm()
	form.Quantity = "99"

	_, _, err := ValidateAndBuild(form, defaultOptions())
	require.Error(t, err)
	assert.Equal(t, "invalid order: quantity must be at least 100", err.Error())
}

func TestValidateAndBuild_OptionalDesign(t *testing.T) {
	form := validForm()
	form.Design = nil

	opts := defaultOptions()
	opts.RequireDesign = false

	order, warnings, err := ValidateAndBuild(form, opts)
	require.NoError(t, err)
	assert.False(t, order.HasDesign())
	assert.Equal(t, []string{WarningNoDesign}, warnings)
}

func TestValidateAndBuild_SniffsGenericUpload(t *testing.T) {
	form := validForm()
	form.Design = &model.Attachment{Filename: "", MIMEType: "application/octet-stream", Data: samplePDF}

	order, _, err := ValidateAndBuild(form, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", order.Design.MIMEType)
	assert.Equal(t, "design.pdf", order.Design.Filename)
}

func TestValidateSpecs_FreeTextMaterial(t *testing.T) {
	form := validForm()
	form.Material = "Kraft"

	specs, err := ValidateSpecs(form)
	require.NoError(t, err)
	assert.Equal(t, "Kraft", specs.Material.Name)
	assert.False(t, specs.Material.Catalogued)
}

func TestValidateAndBuild_EmailMessage(t *testing.T) {
	form := validForm()
	form.Email = "ops@"

	_, _, err := ValidateAndBuild(form, defaultOptions())
	require.Error(t, err)
	assert.Equal(t, []FieldIssue{{Field: "email", Reason: "must be a valid e-mail address"}}, issuesOf(t, err).Issues)
}

func TestIsDeliverable(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{email: "ops@acme.com", valid: true},
		{email: "Ops.Team+labels@acme.co.uk", valid: true},
		{email: "ops@", valid: false},
		{email: "@acme.com", valid: false},
		{email: "ops @acme.com", valid: false},
		{email: "ops@acme.com, x", valid: false},
		{email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsDeliverable(tt.email); got != tt.valid {
				t.Fatalf("IsDeliverable(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestIsStrictEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{email: "ops@acme.com", valid: true},
		{email: "o.ps@acme.es", valid: true},
		{email: "ops@acme", valid: false},
		{email: "OPS@acme.com", valid: false},
		{email: "ops@acme.info", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsStrictEmail(tt.email); got != tt.valid {
				t.Fatalf("IsStrictEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}
