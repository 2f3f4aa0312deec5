package report

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnerdash/domain/core"
	"learnerdash/internal/config"
	"learnerdash/internal/errors"
	"learnerdash/internal/metrics"
	"learnerdash/internal/normalize"
	"learnerdash/internal/session"
	"learnerdash/internal/testkit"
)

func sampleState(t *testing.T) *session.State {
	t.Helper()
	cfg := testkit.DefaultMarkbookConfig()
	cfg.LearnerCount = 10
	cfg.QuestionCount = 4

	table, err := normalize.New(normalize.DefaultOptions()).Normalize(testkit.NewMarkbookGenerator(cfg).Generate())
	require.NoError(t, err)
	return &session.State{
		ID:         core.NewSessionID(),
		Filename:   "grade10_term2.xlsx",
		UploadedAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		Table:      table,
		Analysis:   metrics.Derive(table, metrics.DefaultThresholds()),
	}
}

func TestBuild_AllFormats(t *testing.T) {
	state := sampleState(t)
	b := NewBuilder(config.DefaultReportConfig())

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			doc, err := b.Build(context.Background(), state, f)
			require.NoError(t, err)
			assert.NotEmpty(t, doc.Data)
			assert.Equal(t, f.ContentType(), doc.ContentType)
			assert.Equal(t, "grade10_term2_dashboard."+string(f), doc.Filename)
		})
	}
}

func TestBuild_PDF(t *testing.T) {
	doc, err := NewBuilder(config.ReportConfig{}).Build(context.Background(), sampleState(t), FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))
}

func TestBuild_DOCX(t *testing.T) {
	state := sampleState(t)
	doc, err := NewBuilder(config.DefaultReportConfig()).Build(context.Background(), state, FormatDOCX)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	require.NoError(t, err)

	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}
	require.Contains(t, files, "word/document.xml")
	assert.Contains(t, files, "[Content_Types].xml")
	assert.Contains(t, files, "word/media/image1.png")
	assert.Len(t, files, 4+1+len(state.Table.ActiveQuestions))

	rc, err := files["word/document.xml"].Open()
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "Saul Damon High School")
	assert.Contains(t, string(body), "Recommendations")
}

func TestBuild_MarkdownAndHTML(t *testing.T) {
	state := sampleState(t)
	b := NewBuilder(config.ReportConfig{SchoolName: "Hillview Secondary", Title: "Term 2 Results", Footer: "Prepared by the maths department"})

	md, err := b.Build(context.Background(), state, FormatMarkdown)
	require.NoError(t, err)
	text := string(md.Data)
	assert.True(t, strings.HasPrefix(text, "# Hillview Secondary\n"))
	assert.Contains(t, text, "## Term 2 Results")
	assert.Contains(t, text, state.Analysis.Insights()[0])
	assert.Contains(t, text, "data:image/png;base64,")
	assert.Contains(t, text, "Prepared by the maths department")

	page, err := b.Build(context.Background(), state, FormatHTML)
	require.NoError(t, err)
	html := string(page.Data)
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "<img")
	assert.Contains(t, html, "Insights")
	assert.Contains(t, html, "<table")
}

func TestBuild_Errors(t *testing.T) {
	b := NewBuilder(config.DefaultReportConfig())

	_, err := b.Build(context.Background(), nil, FormatPDF)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = b.Build(context.Background(), sampleState(t), Format("odt"))
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"pdf":      FormatPDF,
		"":         FormatPDF,
		"DOCX":     FormatDOCX,
		"word":     FormatDOCX,
		"html":     FormatHTML,
		"markdown": FormatMarkdown,
		" md ":     FormatMarkdown,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xlsx")
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}
