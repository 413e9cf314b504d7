package model

import "strings"

// Material описывает подложку. Технические параметры заданы только для позиций каталога.
type Material struct {
	Name             string  `json:"name"`
	ThicknessMicrons float64 `json:"thickness_microns,omitempty"`
	WeightGSM        float64 `json:"weight_gsm,omitempty"`
	Adhesive         string  `json:"adhesive,omitempty"`
	Catalogued       bool    `json:"catalogued"`
}

var materialCatalog = []Material{
	{Name: "PP White", ThicknessMicrons: 60, WeightGSM: 56, Adhesive: "Permanent acrylic", Catalogued: true},
	{Name: "PP Transparent", ThicknessMicrons: 50, WeightGSM: 46, Adhesive: "Permanent acrylic", Catalogued: true},
	{Name: "Coated Paper", ThicknessMicrons: 80, WeightGSM: 80, Adhesive: "Permanent rubber", Catalogued: true},
	{Name: "Laid Cream", ThicknessMicrons: 110, WeightGSM: 90, Adhesive: "Wet-strength wine", Catalogued: true},
	{Name: "Thermal", ThicknessMicrons: 75, WeightGSM: 72, Adhesive: "Permanent acrylic", Catalogued: true},
}

// Materials возвращает копию каталога материалов.
func Materials() []Material {
	out := make([]Material, len(materialCatalog))
	copy(out, materialCatalog)
	return out
}

// LookupMaterial ищет материал по названию без учёта регистра.
// Незнакомое название возвращается как свободный текст без технических параметров.
func LookupMaterial(name string) Material {
	name = strings.TrimSpace(name)
	for _, m := range materialCatalog {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return Material{Name: name}
}

// Mandrils содержит допустимые диаметры втулки в миллиметрах.
var Mandrils = []int{76, 40, 25}
