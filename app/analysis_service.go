package app

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"learnerdash/domain/core"
	"learnerdash/internal/errors"
	"learnerdash/internal/metrics"
	"learnerdash/internal/normalize"
	"learnerdash/internal/session"
	"learnerdash/ports"
)

// AnalysisService runs the read, normalize and derive pipeline for one
// upload. It holds no per-session state.
type AnalysisService struct {
	reader     ports.MarkbookReader
	normalizer *normalize.Normalizer
	thresholds metrics.Thresholds
	now        func() time.Time
}

// NewAnalysisService creates the pipeline with the given markers and thresholds
func NewAnalysisService(reader ports.MarkbookReader, markers normalize.Options, thresholds metrics.Thresholds) *AnalysisService {
	return &AnalysisService{
		reader:     reader,
		normalizer: normalize.New(markers),
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Thresholds returns the rule thresholds used for derivation
func (s *AnalysisService) Thresholds() metrics.Thresholds {
	return s.thresholds
}

// Analyze builds a complete session state from an uploaded document. The
// returned state has no ID; the caller owns session identity.
func (s *AnalysisService) Analyze(ctx context.Context, data []byte, filename string) (*session.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.InvalidInput("The uploaded file is empty.")
	}
	start := time.Now()

	raw, err := s.reader.ReadBytes(data, filename)
	if err != nil {
		if !errors.IsAppError(err) {
			err = errors.Unreadable(err)
		}
		return nil, err
	}
	table, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	analysis := metrics.Derive(table, s.thresholds)

	state := &session.State{
		Filename:    filepath.Base(filename),
		Fingerprint: core.NewHash(data),
		UploadedAt:  s.now(),
		Table:       table,
		Analysis:    analysis,
	}
	log.Printf("[AnalysisService] Analyzed %s (%s): %d learners, %d questions, class average %.2f%% in %.2fms",
		state.Filename, state.Fingerprint.Short(), len(table.Learners), len(table.Questions),
		analysis.ClassAverage, float64(time.Since(start).Microseconds())/1000)
	return state, nil
}

// AnalyzeFile reads a document from disk and analyzes it
func (s *AnalysisService) AnalyzeFile(ctx context.Context, path string) (*session.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Unreadable(err)
	}
	return s.Analyze(ctx, data, path)
}

// Compare normalizes a second document and compares its question means
// with the state's table. The state itself is not modified.
func (s *AnalysisService) Compare(ctx context.Context, state *session.State, data []byte, filename string) (*session.State, error) {
	if state == nil || state.Table == nil {
		return nil, errors.InvalidInput("no markbook to compare against")
	}
	other, err := s.Analyze(ctx, data, filename)
	if err != nil {
		return nil, err
	}
	result, err := metrics.Compare(state.Table, other.Table)
	if err != nil {
		return nil, err
	}
	return state.WithComparison(&session.Comparison{Filename: other.Filename, Result: result}), nil
}
