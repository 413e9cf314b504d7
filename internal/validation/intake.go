// Package validation содержит проверку данных формы заказа и сборку OrderRecord.
package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmeshcher/flexylabel-order/internal/model"
)

const (
	dateLayout = "2006-01-02"

	defaultLabelsPerRoll   = 1000
	defaultWindingPosition = 3
	defaultMandrilMM       = 76
)

// Form содержит сырые значения полей формы в том виде, в каком их прислал клиент.
type Form struct {
	ClientName      string
	Email           string
	Reference       string
	Width           string
	Length          string
	Quantity        string
	LabelsPerRoll   string
	Inks            string
	Material        string
	WindingPosition string
	Orientation     string
	Mandril         string
	Notes           string
	DeliveryDate    string
	Design          *model.Attachment
}

// Options управляет необязательными правилами проверки.
type Options struct {
	// RequireDesign запрещает отправку без макета. Если выключено, отсутствие макета даёт только предупреждение.
	RequireDesign bool
	// LeadDays задаёт срок поставки по умолчанию в днях от текущей даты.
	LeadDays int
	Now      func() time.Time
}

// WarningNoDesign возвращается, когда макет не приложен, а RequireDesign выключен.
const WarningNoDesign = "design file not attached; production will wait for artwork"

type identityFields struct {
	ClientName string `form:"client" validate:"required"`
	Email      string `form:"email" validate:"required,contains=@"`
}

type specFields struct {
	Width           float64 `form:"width" validate:"gte=10,lte=500"`
	Length          float64 `form:"length" validate:"gte=10,lte=500"`
	Quantity        int     `form:"quantity" validate:"gte=100,lte=1000000"`
	LabelsPerRoll   int     `form:"labels_per_roll" validate:"gte=50,lte=10000"`
	Inks            int     `form:"inks" validate:"gte=0,lte=8"`
	Material        string  `form:"material" validate:"required"`
	WindingPosition int     `form:"winding_position" validate:"gte=1,lte=8"`
	Orientation     string  `form:"orientation" validate:"oneof=interior exterior"`
	Mandril         int     `form:"mandril" validate:"oneof=25 40 76"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("form"); name != "" {
				return name
			}
			return fld.Name
		})
	})
	return validate
}

// ValidateAndBuild проверяет форму и собирает неизменяемый OrderRecord.
// Все ошибки собираются в один *Error. Второе значение содержит предупреждения, не блокирующие отправку.
func ValidateAndBuild(form Form, opts Options) (model.OrderRecord, []string, error) {
	issues := &Error{}

	id := identityFields{
		ClientName: strings.TrimSpace(form.ClientName),
		Email:      strings.TrimSpace(form.Email),
	}
	issues.addValidation(getValidator().Struct(id))
	if !IsDeliverable(id.Email) {
		issues.add("email", "must be a valid e-mail address")
	}

	specs, specErr := ValidateSpecs(form)
	if specErr != nil {
		issues.merge(specErr)
	}

	var warnings []string
	design, ok := normalizeDesign(form.Design)
	switch {
	case design == nil && opts.RequireDesign:
		issues.add("design", "is required")
	case design == nil:
		warnings = append(warnings, WarningNoDesign)
	case !ok:
		issues.add("design", "must be a PDF document")
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	delivery, err := parseDeliveryDate(form.DeliveryDate, now(), opts.LeadDays)
	if err != nil {
		issues.add("delivery_date", "must be a date in YYYY-MM-DD format")
	}

	if issues.HasIssues() {
		return model.OrderRecord{}, nil, issues
	}

	reference := strings.TrimSpace(form.Reference)
	if reference == "" {
		reference = NewReference()
	}

	order := model.OrderRecord{
		Identity: model.Identity{
			ClientName: id.ClientName,
			Email:      id.Email,
			Reference:  reference,
		},
		Specs:        specs,
		Notes:        strings.TrimSpace(form.Notes),
		DeliveryDate: delivery,
	}
	if ok {
		order.Design = design
	}

	return order, warnings, nil
}

// ValidateSpecs проверяет только технические параметры заказа.
func ValidateSpecs(form Form) (model.Specs, error) {
	issues := &Error{}

	var f specFields
	f.Width = parseFloat(issues, "width", form.Width)
	f.Length = parseFloat(issues, "length", form.Length)
	f.Quantity = parseInt(issues, "quantity", form.Quantity, -1)
	f.LabelsPerRoll = parseInt(issues, "labels_per_roll", form.LabelsPerRoll, defaultLabelsPerRoll)
	f.Inks = parseInt(issues, "inks", form.Inks, 0)
	f.WindingPosition = parseInt(issues, "winding_position", form.WindingPosition, defaultWindingPosition)
	f.Mandril = parseInt(issues, "mandril", trimMM(form.Mandril), defaultMandrilMM)
	f.Material = strings.TrimSpace(form.Material)
	f.Orientation = strings.ToLower(strings.TrimSpace(form.Orientation))
	if f.Orientation == "" {
		f.Orientation = string(model.OrientationExterior)
	}

	issues.addValidation(getValidator().Struct(f))

	if issues.HasIssues() {
		return model.Specs{}, issues
	}

	return model.Specs{
		Geometry: model.Geometry{
			WidthMM:       f.Width,
			LengthMM:      f.Length,
			Quantity:      f.Quantity,
			LabelsPerRoll: f.LabelsPerRoll,
			Inks:          f.Inks,
		},
		Material: model.LookupMaterial(f.Material),
		Winding: model.Winding{
			Position:    f.WindingPosition,
			Orientation: model.Orientation(f.Orientation),
			MandrilMM:   f.Mandril,
		},
	}, nil
}

// NewReference генерирует внутренний номер заказа.
func NewReference() string {
	return "FL-" + strings.ToUpper(uuid.New().String()[:8])
}

func parseFloat(issues *Error, field, raw string) float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		issues.add(field, "is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		issues.add(field, "must be a number")
		return 0
	}
	return v
}

// parseInt возвращает def для пустого значения; def < 0 делает поле обязательным.
func parseInt(issues *Error, field, raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if def < 0 {
			issues.add(field, "is required")
			return 0
		}
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		issues.add(field, "must be a whole number")
		return 0
	}
	return v
}

func trimMM(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimSpace(strings.TrimSuffix(raw, "mm"))
}

func parseDeliveryDate(raw string, now time.Time, leadDays int) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return today.AddDate(0, 0, leadDays), nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse delivery date: %w", err)
	}
	return d, nil
}
