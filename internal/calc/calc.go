// Package calc содержит расчёт производственных показателей заказа.
// Все функции чистые: без ввода-вывода и без скрытого состояния.
package calc

import (
	"math"

	"github.com/mmeshcher/flexylabel-order/internal/model"
)

const (
	// GapMM задаёт фиксированный зазор между этикетками.
	GapMM = 3.0

	// DefaultGSM используется для оценки веса, когда материал не из каталога.
	DefaultGSM = 80.0

	BaseFee     = 45.0
	UnitCostM2  = 0.85
	inkTierLow  = 25.0
	inkTierHigh = 60.0
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func linearMeters(quantity int, lengthMM, gapMM float64) float64 {
	return float64(quantity) * (lengthMM + gapMM) / 1000
}

// LinearMeters возвращает погонные метры ленты на тираж, округлённые до сотых.
func LinearMeters(quantity int, lengthMM, gapMM float64) float64 {
	return round2(linearMeters(quantity, lengthMM, gapMM))
}

// AreaM2 возвращает площадь материала в м², округлённую до сотых.
func AreaM2(widthMM, lengthMM float64, quantity int, gapMM float64) float64 {
	return round2(widthMM / 1000 * linearMeters(quantity, lengthMM, gapMM))
}

// RollCount возвращает число рулонов. При perRoll <= 0 возвращает 0.
func RollCount(quantity, perRoll int) int {
	if perRoll <= 0 || quantity <= 0 {
		return 0
	}
	return (quantity + perRoll - 1) / perRoll
}

// RollDiameter оценивает внешний диаметр рулона в мм по спиральному приближению.
// Отрицательное подкоренное выражение приводится к нулю.
func RollDiameter(quantity int, lengthMM, gapMM, thicknessMicrons, coreRadiusMM float64) float64 {
	totalMM := float64(quantity) * (lengthMM + gapMM)
	radicand := totalMM*thicknessMicrons/(1000*math.Pi) + coreRadiusMM*coreRadiusMM
	if radicand < 0 {
		radicand = 0
	}
	return round2(math.Sqrt(radicand) * 2)
}

// WeightKG оценивает вес материала по площади и граммажу.
func WeightKG(areaM2, gsm float64) float64 {
	if gsm <= 0 {
		gsm = DefaultGSM
	}
	return round2(areaM2 * gsm / 1000)
}

// InkSurcharge возвращает ступенчатую надбавку за число красок.
func InkSurcharge(inks int) float64 {
	switch {
	case inks >= 5:
		return inkTierHigh
	case inks >= 3:
		return inkTierLow
	default:
		return 0
	}
}

// EstimatePrice возвращает ориентировочную стоимость заказа.
func EstimatePrice(areaM2 float64, inks int) float64 {
	return round2(BaseFee + areaM2*UnitCostM2 + InkSurcharge(inks))
}

// Derive считает все показатели по проверенному заказу.
func Derive(specs model.Specs) model.DerivedMetrics {
	g := specs.Geometry
	area := AreaM2(g.WidthMM, g.LengthMM, g.Quantity, GapMM)

	m := model.DerivedMetrics{
		LinearMeters:   LinearMeters(g.Quantity, g.LengthMM, GapMM),
		AreaM2:         area,
		Rolls:          RollCount(g.Quantity, g.LabelsPerRoll),
		WeightKG:       WeightKG(area, specs.Material.WeightGSM),
		EstimatedPrice: EstimatePrice(area, g.Inks),
	}

	if specs.Material.ThicknessMicrons > 0 {
		perRoll := g.LabelsPerRoll
		if perRoll <= 0 || perRoll > g.Quantity {
			perRoll = g.Quantity
		}
		coreRadius := float64(specs.Winding.MandrilMM) / 2
		m.RollDiameterMM = RollDiameter(perRoll, g.LengthMM, GapMM, specs.Material.ThicknessMicrons, coreRadius)
	}

	return m
}
