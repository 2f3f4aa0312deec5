package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image/png"
	"io"
	"strings"
)

// emuPerPixel converts 96-dpi pixels to English Metric Units
const emuPerPixel = 9525

// docxMaxWidthEMU is the printable width of an A4 page with normal margins
const docxMaxWidthEMU = 6 * 914400

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// docxWriter accumulates WordprocessingML body markup and the media it references
type docxWriter struct {
	body  strings.Builder
	rels  strings.Builder
	media []image
}

func writeDOCX(c *content) ([]byte, error) {
	w := &docxWriter{}

	w.paragraph(c.School, 32, true, "center")
	w.paragraph(c.Title, 28, true, "center")
	if c.Source != "" {
		w.paragraph(fmt.Sprintf("Source: %s, uploaded %s", c.Source, c.Date.Format("2 January 2006")), 20, false, "center")
	}

	w.paragraph("Insights", 24, true, "")
	for _, s := range c.Insights {
		w.paragraph("• "+s, 22, false, "")
	}
	w.paragraph("Recommendations", 24, true, "")
	for _, s := range c.Recommendations {
		w.paragraph("• "+s, 22, false, "")
	}

	if len(c.Tiers) > 0 {
		w.paragraph("Performance Bands", 24, true, "")
		for _, t := range c.Tiers {
			names := memberNames(t)
			if names == "" {
				names = "-"
			}
			w.paragraph(fmt.Sprintf("%s: %s", t.Label, names), 22, false, "")
		}
	}

	w.paragraph(c.Averages.Caption, 24, true, "")
	if err := w.picture(c.Averages); err != nil {
		return nil, err
	}
	if len(c.Pies) > 0 {
		w.paragraph("Mark Distribution per Question", 24, true, "")
		for _, p := range c.Pies {
			if err := w.picture(p); err != nil {
				return nil, err
			}
		}
	}
	w.paragraph(c.Footer, 18, false, "center")

	return w.pack()
}

func (w *docxWriter) paragraph(text string, halfPoints int, bold bool, align string) {
	w.body.WriteString("<w:p>")
	if align != "" {
		fmt.Fprintf(&w.body, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	w.body.WriteString("<w:r><w:rPr>")
	if bold {
		w.body.WriteString("<w:b/>")
	}
	fmt.Fprintf(&w.body, `<w:sz w:val="%d"/></w:rPr><w:t xml:space="preserve">`, halfPoints)
	_ = xml.EscapeText(&w.body, []byte(text))
	w.body.WriteString("</w:t></w:r></w:p>")
}

// picture embeds a PNG inline, scaled down to the page width
func (w *docxWriter) picture(img image) error {
	cfg, err := png.DecodeConfig(bytes.NewReader(img.PNG))
	if err != nil {
		return fmt.Errorf("decode %s: %w", img.Name, err)
	}
	cx, cy := int64(cfg.Width)*emuPerPixel, int64(cfg.Height)*emuPerPixel
	if cx > docxMaxWidthEMU {
		cy = cy * docxMaxWidthEMU / cx
		cx = docxMaxWidthEMU
	}

	w.media = append(w.media, img)
	n := len(w.media)
	relID := fmt.Sprintf("rIdImg%d", n)
	fmt.Fprintf(&w.rels,
		`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image%d.png"/>`,
		relID, n)

	var name bytes.Buffer
	_ = xml.EscapeText(&name, []byte(img.Caption))
	fmt.Fprintf(&w.body, `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0"><wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name="%s"/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name="image%d.png"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, n, name.String(), n, n, relID, cx, cy)
	return nil
}

func (w *docxWriter) pack() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
		`<w:body>` + w.body.String() +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>` +
		`</w:body></w:document>`
	documentRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		w.rels.String() + `</Relationships>`

	parts := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/document.xml", document},
		{"word/_rels/document.xml.rels", documentRels},
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(f, p.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	for i, img := range w.media {
		f, err := zw.Create(fmt.Sprintf("word/media/image%d.png", i+1))
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(img.PNG); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}
