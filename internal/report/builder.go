package report

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"learnerdash/domain/markbook"
	"learnerdash/internal/charts"
	"learnerdash/internal/config"
	"learnerdash/internal/errors"
	"learnerdash/internal/metrics"
	"learnerdash/internal/session"
)

// maxChartWorkers bounds concurrent chart renders per export
const maxChartWorkers = 4

// image is one rendered chart placed in a document
type image struct {
	Name    string
	Caption string
	PNG     []byte
}

// content is the format-independent report, assembled in a fixed order
type content struct {
	School          string
	Title           string
	Footer          string
	Source          string
	Date            time.Time
	ClassAverage    float64
	Insights        []string
	Recommendations []string
	Tiers           []markbook.Tier
	Averages        image
	Pies            []image
}

// Builder turns a session state into an export document
type Builder struct {
	cfg config.ReportConfig
}

// NewBuilder creates a builder; empty texts fall back to the defaults
func NewBuilder(cfg config.ReportConfig) *Builder {
	d := config.DefaultReportConfig()
	if cfg.SchoolName == "" {
		cfg.SchoolName = d.SchoolName
	}
	if cfg.Title == "" {
		cfg.Title = d.Title
	}
	if cfg.Footer == "" {
		cfg.Footer = d.Footer
	}
	return &Builder{cfg: cfg}
}

// Build renders every chart, then assembles the document in the requested format
func (b *Builder) Build(ctx context.Context, state *session.State, format Format) (*Document, error) {
	if state == nil || state.Table == nil || state.Analysis == nil {
		return nil, errors.InvalidInput("no analysed markbook to export")
	}
	start := time.Now()

	c, err := b.collect(ctx, state)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatPDF:
		data, err = writePDF(c)
	case FormatDOCX:
		data, err = writeDOCX(c)
	case FormatHTML:
		data, err = writeHTML(c)
	case FormatMarkdown:
		data = []byte(writeMarkdown(c, dataURI))
	default:
		return nil, errors.UnsupportedFormat(string(format))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s report", format)
	}

	log.Printf("[ReportBuilder] %s report for %q: %d charts, %d bytes in %.2fms",
		format, state.Filename, len(c.Pies)+1, len(data), float64(time.Since(start).Nanoseconds())/1e6)

	return &Document{
		Format:      format,
		Filename:    documentName(state.Filename, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// collect renders the charts concurrently into fixed slots, so the
// assembled document does not depend on completion order.
func (b *Builder) collect(ctx context.Context, state *session.State) (*content, error) {
	table, analysis := state.Table, state.Analysis
	c := &content{
		School:          b.cfg.SchoolName,
		Title:           b.cfg.Title,
		Footer:          b.cfg.Footer,
		Source:          state.Filename,
		Date:            state.UploadedAt,
		ClassAverage:    analysis.ClassAverage,
		Insights:        analysis.Insights(),
		Recommendations: analysis.Recommendations(),
		Tiers:           analysis.Tiers,
		Averages:        image{Name: "averages", Caption: "Average Marks per Learner"},
		Pies:            make([]image, len(table.ActiveQuestions)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxChartWorkers)

	g.Go(func() error {
		png, err := charts.LearnerAverages(table.Learners)
		c.Averages.PNG = png
		return err
	})
	for i, q := range table.ActiveQuestions {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			png, err := charts.MarkDistribution(q, metrics.MarkDistribution(table, q))
			c.Pies[i] = image{Name: fmt.Sprintf("pie_%d", i+1), Caption: fmt.Sprintf("Distribution for %s", q), PNG: png}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to render report charts")
	}
	return c, nil
}

func documentName(source string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "results"
	}
	return fmt.Sprintf("%s_dashboard.%s", base, format)
}

func memberNames(t markbook.Tier) string {
	names := make([]string, len(t.Members))
	for i, m := range t.Members {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}
