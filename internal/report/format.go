package report

import (
	"strings"

	"learnerdash/internal/errors"
)

// Format is an export document type
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// Formats lists every supported export format
var Formats = []Format{FormatPDF, FormatDOCX, FormatHTML, FormatMarkdown}

// ParseFormat resolves a format name; "word" and "markdown" are accepted aliases
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf", "":
		return FormatPDF, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "html":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", errors.UnsupportedFormat(s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	}
	return "application/octet-stream"
}

// Document is a rendered export
type Document struct {
	Format      Format
	Filename    string
	ContentType string
	Data        []byte
}
