// Package document формирует PDF-сводку заказа для цеха и клиента.
package document

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/mmeshcher/flexylabel-order/internal/model"
)

// Названия разделов сводки в порядке вывода.
const (
	SectionClient = "Client Info"
	SectionSpecs  = "Technical Specs"
	SectionNotes  = "Production Notes"
)

const (
	pageMargin  = 15.0
	labelWidth  = 60.0
	rowHeight   = 8.0
	stampLayout = "2006-01-02 15:04"
	dateLayout  = "2006-01-02"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// WarningLossyText сообщает, что часть символов не входит в Windows-1252 и заменена на "?".
const WarningLossyText = "some characters are not supported by the summary font and were replaced with '?'"

// Document содержит отрисованную сводку. Байты живут только в памяти запроса.
// Lossy выставляется, если в тексте заказа были символы вне Windows-1252.
type Document struct {
	Name        string
	Bytes       []byte
	Sections    []string
	GeneratedAt time.Time
	Lossy       bool
}

// Renderer формирует PDF-сводки заказов.
type Renderer struct {
	company string
	now     func() time.Time
}

// NewRenderer создаёт рендерер. now задаёт отметку «сформировано»; nil означает time.Now.
func NewRenderer(company string, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{company: company, now: now}
}

// FileName возвращает имя файла сводки для номера заказа.
func FileName(reference string) string {
	ref := strings.Trim(unsafeName.ReplaceAllString(reference, "_"), "_")
	if ref == "" {
		ref = "order"
	}
	return "Order_" + ref + ".pdf"
}

type row struct {
	label string
	value string
}

type section struct {
	title string
	rows  []row
	text  string
}

// RenderSummary отрисовывает сводку: данные клиента, технические параметры и,
// если есть, примечания для производства. Пустые примечания не выводятся.
func (r *Renderer) RenderSummary(order model.OrderRecord, metrics model.DerivedMetrics) (*Document, error) {
	generatedAt := r.now().UTC().Truncate(time.Second)
	sections := buildSections(order, metrics)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	lossy := false
	txt := func(s string) string {
		out, replaced := toWindows1252(s)
		lossy = lossy || replaced
		return tr(out)
	}
	title := fmt.Sprintf("%s - Order %s", r.company, order.Identity.Reference)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(r.company, true)
	pdf.SetCreator("flexylabel-order", false)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, txt(strings.ToUpper(r.company)+" - PRODUCTION ORDER"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, txt("Generated at "+generatedAt.Format(stampLayout)+" UTC"), "B", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	titles := make([]string, 0, len(sections))
	for _, s := range sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(230, 236, 245)
		pdf.CellFormat(0, rowHeight+1, txt(strings.ToUpper(s.title)), "", 1, "L", true, 0, "")
		pdf.Ln(1)

		for _, rw := range s.rows {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(labelWidth, rowHeight, txt(rw.label), "B", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(0, rowHeight, txt(rw.value), "B", 1, "L", false, 0, "")
		}
		if s.text != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 6, txt(s.text), "", "L", false)
		}

		pdf.Ln(6)
		titles = append(titles, s.title)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render summary %s: %w", order.Identity.Reference, err)
	}

	return &Document{
		Name:        FileName(order.Identity.Reference),
		Bytes:       buf.Bytes(),
		Sections:    titles,
		GeneratedAt: generatedAt,
		Lossy:       lossy,
	}, nil
}

func buildSections(order model.OrderRecord, m model.DerivedMetrics) []section {
	id := order.Identity
	g := order.Specs.Geometry
	w := order.Specs.Winding
	mat := order.Specs.Material

	design := "Not attached"
	if order.HasDesign() {
		design = order.Design.Filename
	}

	client := section{
		title: SectionClient,
		rows: []row{
			{"Client", id.ClientName},
			{"Confirmation e-mail", id.Email},
			{"Reference", id.Reference},
			{"Delivery date", order.DeliveryDate.Format(dateLayout)},
			{"Design file", design},
		},
	}

	specs := section{
		title: SectionSpecs,
		rows: []row{
			{"Width", formatNumber(g.WidthMM) + " mm"},
			{"Length", formatNumber(g.LengthMM) + " mm"},
			{"Quantity", fmt.Sprintf("%d uds", g.Quantity)},
			{"Labels per roll", fmt.Sprintf("%d uds", g.LabelsPerRoll)},
			{"Material", mat.Name},
		},
	}
	if mat.Catalogued {
		specs.rows = append(specs.rows,
			row{"Thickness", formatNumber(mat.ThicknessMicrons) + " µm"},
			row{"Weight", formatNumber(mat.WeightGSM) + " g/m²"},
			row{"Adhesive", mat.Adhesive},
		)
	}
	if g.Inks > 0 {
		specs.rows = append(specs.rows, row{"Inks", fmt.Sprintf("%d", g.Inks)})
	}
	specs.rows = append(specs.rows,
		row{"Mandril", fmt.Sprintf("%d mm", w.MandrilMM)},
		row{"Winding position", fmt.Sprintf("%d (%s)", w.Position, w.Orientation.Label())},
		row{"Linear meters", fmt.Sprintf("%.2f m", m.LinearMeters)},
		row{"Area", fmt.Sprintf("%.2f m²", m.AreaM2)},
		row{"Rolls", fmt.Sprintf("%d uds", m.Rolls)},
	)
	if m.RollDiameterMM > 0 {
		specs.rows = append(specs.rows, row{"Roll diameter (est.)", fmt.Sprintf("%.2f mm", m.RollDiameterMM)})
	}
	specs.rows = append(specs.rows,
		row{"Material weight (est.)", fmt.Sprintf("%.2f kg", m.WeightKG)},
		row{"Price (est.)", fmt.Sprintf("%.2f EUR", m.EstimatedPrice)},
	)

	sections := []section{client, specs}
	if order.Notes != "" {
		sections = append(sections, section{title: SectionNotes, text: order.Notes})
	}
	return sections
}

// toWindows1252 заменяет символы, которых нет в Windows-1252, на "?".
func toWindows1252(s string) (string, bool) {
	replaced := false
	out := strings.Map(func(r rune) rune {
		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			return r
		}
		replaced = true
		return '?'
	}, s)
	return out, replaced
}

func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
