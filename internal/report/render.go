package report

import (
	"bytes"
	"io"

	"github.com/go-pdf/fpdf"
)

const thumbnailName = "scan-thumbnail"

// render рисует готовую раскладку через fpdf
func (b *Builder) render(w io.Writer, in Input, pages []Page) error {
	g := b.geometry
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: g.Width, Ht: g.Height},
	})
	pdf.SetMargins(g.Margin, g.Margin, g.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(b.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(in.GeneratedAt)
	pdf.SetModificationDate(in.GeneratedAt)
	pdf.SetTitle(reportTitle(in.Meta.Kind), true)
	pdf.SetCreator(b.product, true)

	// cp1252: символы вне кодировки выводятся как '.', раскладка измеряет так же
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := g.ContentWidth()

	for _, page := range pages {
		pdf.AddPage()

		for _, block := range page.Blocks {
			y := block.Y
			if block.Image != nil {
				pdf.RegisterImageOptionsReader(thumbnailName, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(block.Image.JPEG))
				pdf.ImageOptions(thumbnailName, g.Margin, y, block.Image.Width, block.Image.Height, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
				y += block.Image.Height + LineSpacing
			}

			for _, line := range block.Lines {
				pdf.SetFont(fontFamily, fontStyle(line.Bold), line.Role.Size())
				pdf.SetTextColor(line.Color.R, line.Color.G, line.Color.B)
				pdf.SetXY(g.Margin, y)
				pdf.CellFormat(width, line.Role.LineHeight(), tr(line.Text), "", 0, "L", false, 0, "")
				y += line.Role.LineHeight()
			}

			if block.Separator {
				pdf.SetDrawColor(229, 231, 235)
				pdf.SetLineWidth(0.2)
				pdf.Line(g.Margin, y+separatorGap/2, g.Margin+width, y+separatorGap/2)
			}
		}

		pdf.SetFont(fontFamily, "", FooterFontSize)
		pdf.SetTextColor(colorMuted.R, colorMuted.G, colorMuted.B)
		pdf.SetXY(g.Margin, g.ContentBottom()+RoleFooter.LineHeight())
		pdf.CellFormat(width, RoleFooter.LineHeight(), tr(page.Footer), "", 0, "C", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
