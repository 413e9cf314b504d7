// Package model содержит доменные сущности сервиса приёма заказов на этикетки.
package model

import "time"

// Orientation описывает сторону намотки этикетки на рулоне.
type Orientation string

const (
	OrientationExterior Orientation = "exterior"
	OrientationInterior Orientation = "interior"
)

// Label возвращает название ориентации для документов и писем.
func (o Orientation) Label() string {
	switch o {
	case OrientationInterior:
		return "Interior"
	case OrientationExterior:
		return "Exterior"
	default:
		return string(o)
	}
}

// Attachment описывает загруженный клиентом файл макета.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Identity содержит данные заказчика.
type Identity struct {
	ClientName string
	Email      string
	Reference  string
}

// Geometry описывает размеры этикетки и тираж.
type Geometry struct {
	WidthMM       float64
	LengthMM      float64
	Quantity      int
	LabelsPerRoll int
	Inks          int
}

// Winding описывает параметры намотки готового рулона.
type Winding struct {
	Position    int
	Orientation Orientation
	MandrilMM   int
}

// Specs объединяет технические параметры заказа.
type Specs struct {
	Geometry Geometry
	Material Material
	Winding  Winding
}

// OrderRecord описывает проверенный заказ. Создаётся один раз на отправку формы и далее не изменяется.
type OrderRecord struct {
	Identity     Identity
	Specs        Specs
	Design       *Attachment
	Notes        string
	DeliveryDate time.Time
}

// HasDesign сообщает, приложен ли к заказу макет.
func (o OrderRecord) HasDesign() bool {
	return o.Design != nil && len(o.Design.Data) > 0
}

// DerivedMetrics содержит расчётные производственные показатели заказа.
type DerivedMetrics struct {
	LinearMeters   float64 `json:"linear_meters"`
	AreaM2         float64 `json:"area_m2"`
	Rolls          int     `json:"rolls"`
	RollDiameterMM float64 `json:"roll_diameter_mm"`
	WeightKG       float64 `json:"weight_kg"`
	EstimatedPrice float64 `json:"estimated_price"`
}

// Stage описывает этап обработки одной отправки формы.
type Stage string

const (
	StageIdle           Stage = "IDLE"
	StageValidating     Stage = "VALIDATING"
	StageRejected       Stage = "REJECTED"
	StageValidated      Stage = "VALIDATED"
	StageRendering      Stage = "RENDERING"
	StageRenderFailed   Stage = "RENDER_FAILED"
	StageRendered       Stage = "RENDERED"
	StageDispatching    Stage = "DISPATCHING"
	StageSent           Stage = "SENT"
	StageDispatchFailed Stage = "DISPATCH_FAILED"
)

// Submission хранит итог обработки одной отправки формы.
type Submission struct {
	Reference  string
	Stage      Stage
	Metrics    DerivedMetrics
	Document   string
	Sections   []string
	Recipients []string
	Warnings   []string
}
