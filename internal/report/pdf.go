package report

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
)

const (
	pdfFont        = "Arial"
	pdfPageBreak   = 15.0
	pdfChartWidth  = 180.0
	pdfPieWidth    = 110.0
	pdfLineHeight  = 6.0
	pdfBandColumnW = 60.0
)

func writePDF(c *content) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, pdfPageBreak)
	pdf.SetCreationDate(c.Date)
	pdf.SetTitle(c.Title, true)
	// core fonts are cp1252; learner names may carry accents
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfPageBreak)
		pdf.SetFont(pdfFont, "I", 8)
		pdf.CellFormat(0, 10, tr(c.Footer), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 10, tr(c.School), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 10, tr(c.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 10)
	if c.Source != "" {
		pdf.CellFormat(0, pdfLineHeight, tr(fmt.Sprintf("Source: %s, uploaded %s", c.Source, c.Date.Format("2 January 2006"))), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	section := func(title string, lines []string) {
		pdf.SetFont(pdfFont, "B", 12)
		pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont(pdfFont, "", 11)
		for _, l := range lines {
			pdf.MultiCell(0, pdfLineHeight, tr("- "+l), "", "L", false)
		}
		pdf.Ln(3)
	}
	section("Insights", c.Insights)
	section("Recommendations", c.Recommendations)

	if len(c.Tiers) > 0 {
		pdf.SetFont(pdfFont, "B", 12)
		pdf.CellFormat(0, 8, "Performance Bands", "", 1, "L", false, 0, "")
		pdf.SetFont(pdfFont, "", 10)
		for _, t := range c.Tiers {
			names := memberNames(t)
			if names == "" {
				names = "-"
			}
			pdf.CellFormat(pdfBandColumnW, pdfLineHeight, tr(t.Label), "1", 0, "L", false, 0, "")
			pdf.MultiCell(0, pdfLineHeight, tr(names), "1", "L", false)
		}
		pdf.Ln(3)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	place := func(img image, width float64) {
		pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.PNG))
		x := (210 - width) / 2
		pdf.ImageOptions(img.Name, x, -1, width, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont(pdfFont, "B", 12)
	pdf.CellFormat(0, 8, tr(c.Averages.Caption), "", 1, "L", false, 0, "")
	place(c.Averages, pdfChartWidth)

	if len(c.Pies) > 0 {
		pdf.AddPage()
		pdf.SetFont(pdfFont, "B", 12)
		pdf.CellFormat(0, 8, "Mark Distribution per Question", "", 1, "L", false, 0, "")
		for _, p := range c.Pies {
			place(p, pdfPieWidth)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
