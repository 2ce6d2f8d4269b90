package report

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Размеры шрифтов по ролям (pt) и межстрочный интервал (мм)
const (
	TitleFontSize   = 20.0
	HeadingFontSize = 14.0
	BodyFontSize    = 10.0
	FooterFontSize  = 8.0
	LineSpacing     = 5.0

	separatorGap = 3.0
	// textInset отступ текста внутри ячейки fpdf с каждой стороны (мм)
	textInset  = 1.0
	fontFamily = "Helvetica"
)

// FontRole роль строки в документе
type FontRole int

const (
	RoleTitle FontRole = iota
	RoleHeading
	RoleBody
	RoleFooter
)

// Size размер шрифта роли в pt
func (r FontRole) Size() float64 {
	switch r {
	case RoleTitle:
		return TitleFontSize
	case RoleHeading:
		return HeadingFontSize
	case RoleFooter:
		return FooterFontSize
	default:
		return BodyFontSize
	}
}

// LineHeight высота строки роли в мм
func (r FontRole) LineHeight() float64 {
	switch r {
	case RoleTitle:
		return 10
	case RoleHeading:
		return 8
	case RoleFooter:
		return 4
	default:
		return LineSpacing
	}
}

// Geometry геометрия страницы в мм
type Geometry struct {
	Width  float64
	Height float64
	Margin float64
}

// A4 портретная страница с полями 20 мм
func A4() Geometry {
	return Geometry{Width: 210, Height: 297, Margin: 20}
}

// Letter страница US Letter с теми же полями
func Letter() Geometry {
	return Geometry{Width: 215.9, Height: 279.4, Margin: 20}
}

// PageGeometry геометрия по имени формата ("A4", "Letter"); неизвестное имя дает A4
func PageGeometry(name string) Geometry {
	if strings.EqualFold(name, "letter") {
		return Letter()
	}
	return A4()
}

// ContentWidth ширина области текста
func (g Geometry) ContentWidth() float64 {
	return g.Width - 2*g.Margin
}

// ContentBottom нижняя граница контента; ниже только колонтитул
func (g Geometry) ContentBottom() float64 {
	return g.Height - g.Margin
}

// RGB цвет текста
type RGB struct {
	R, G, B int
}

var (
	colorText   = RGB{16, 24, 40}
	colorMuted  = RGB{74, 85, 101}
	colorHigh   = RGB{220, 38, 38}
	colorMedium = RGB{217, 119, 6}
	colorLow    = RGB{22, 163, 74}
)

// Line строка текста в блоке
type Line struct {
	Role  FontRole
	Text  string
	Bold  bool
	Color RGB
}

// Section раздел отчета, к которому относится блок
type Section string

const (
	SectionTitle           Section = "title"
	SectionImage           Section = "image"
	SectionFile            Section = "file"
	SectionSummary         Section = "summary"
	SectionFindings        Section = "findings"
	SectionFinding         Section = "finding"
	SectionRecommendations Section = "recommendations"
)

// Block неразрывная единица раскладки
type Block struct {
	Section   Section
	Y         float64
	Lines     []Line
	Image     *Thumbnail
	Separator bool
}

// Height оценка высоты блока, включая отступ после него
func (b Block) Height() float64 {
	h := 0.0
	if b.Image != nil {
		h += b.Image.Height + LineSpacing
	}
	for _, l := range b.Lines {
		h += l.Role.LineHeight()
	}
	if b.Separator {
		h += separatorGap
	}
	return h + LineSpacing
}

// Page страница с блоками и колонтитулом
type Page struct {
	Number int
	Total  int
	Blocks []Block
	Footer string
}

// Paginate раскладывает блоки по страницам: если блок не помещается в остаток
// страницы, он переносится на новую. Колонтитулы заполняются после раскладки,
// когда известно общее число страниц.
func Paginate(blocks []Block, g Geometry, product string) []Page {
	pages := []Page{{Number: 1}}
	y := g.Margin

	for _, b := range blocks {
		h := b.Height()
		cur := &pages[len(pages)-1]
		if y+h > g.ContentBottom() && len(cur.Blocks) > 0 {
			pages = append(pages, Page{Number: len(pages) + 1})
			cur = &pages[len(pages)-1]
			y = g.Margin
		}
		b.Y = y
		cur.Blocks = append(cur.Blocks, b)
		y += h
	}

	for i := range pages {
		pages[i].Total = len(pages)
		pages[i].Footer = footerText(pages[i].Number, pages[i].Total, product)
	}
	return pages
}

func footerText(page, total int, product string) string {
	return fmt.Sprintf("Page %d of %d - %s", page, total, product)
}

// measurer измеряет строки тем же шрифтом, которым их рисует render.
// Базовые шрифты PDF знают только cp1252: остальные символы (например
// кириллица) выводятся как '.', и ширина считается уже для замененной строки.
type measurer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newMeasurer() *measurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &measurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// width ширина строки в мм
func (m *measurer) width(text string, role FontRole, bold bool) float64 {
	m.pdf.SetFont(fontFamily, fontStyle(bold), role.Size())
	return m.pdf.GetStringWidth(m.tr(text))
}

// wrap разбивает текст по словам так, чтобы каждая строка помещалась в width.
// Слово длиннее строки режется по символам.
func (m *measurer) wrap(text string, width float64, role FontRole, bold bool) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	fits := func(s string) bool { return m.width(s, role, bold) <= width }

	var lines []string
	cur := ""
	for _, w := range words {
		if cur != "" && fits(cur+" "+w) {
			cur += " " + w
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		for !fits(w) {
			head, tail := splitToWidth(w, fits)
			lines = append(lines, head)
			w = tail
		}
		cur = w
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// splitToWidth отрезает от word самый длинный помещающийся префикс (минимум один символ)
func splitToWidth(word string, fits func(string) bool) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && fits(string(runes[:n+1])) {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

// lines строит строки одной роли с переносом
func (m *measurer) lines(text string, width float64, role FontRole, bold bool, color RGB) []Line {
	var out []Line
	for _, s := range m.wrap(text, width, role, bold) {
		out = append(out, Line{Role: role, Text: s, Bold: bold, Color: color})
	}
	return out
}

func fontStyle(bold bool) string {
	if bold {
		return "B"
	}
	return ""
}
