package app

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnerdash/adapters/excel"
	"learnerdash/domain/markbook"
	"learnerdash/internal/errors"
	"learnerdash/internal/metrics"
	"learnerdash/internal/normalize"
	"learnerdash/internal/testkit"
)

func newService() *AnalysisService {
	return NewAnalysisService(excel.NewDataReader(), normalize.DefaultOptions(), metrics.DefaultThresholds())
}

func markbookBytes(t *testing.T, seed int64) []byte {
	t.Helper()
	config := testkit.DefaultMarkbookConfig()
	config.LearnerCount = 8
	config.Seed = seed
	data, err := testkit.NewMarkbookGenerator(config).WorkbookBytes()
	require.NoError(t, err)
	return data
}

func TestAnalyze_Workbook(t *testing.T) {
	data := markbookBytes(t, 42)
	state, err := newService().Analyze(context.Background(), data, "/tmp/uploads/grade10.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "grade10.xlsx", state.Filename)
	assert.Len(t, state.Table.Learners, 8)
	assert.False(t, state.Fingerprint.IsEmpty())
	assert.True(t, state.ID == "", "identity is assigned by the caller")
	require.NotNil(t, state.Analysis)
	assert.NotEmpty(t, state.Analysis.Insights())
	assert.False(t, state.UploadedAt.IsZero())
}

func TestAnalyze_CSV(t *testing.T) {
	csv := "Class list\nNAME OF LEARNER,Q1,Q2\nA,5,3\nB,2,2\n"
	state, err := newService().Analyze(context.Background(), []byte(csv), "marks.csv")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 50}, state.Table.Percentages())
	assert.InDelta(t, 75.0, state.Analysis.ClassAverage, 1e-9)
}

func TestAnalyze_Errors(t *testing.T) {
	svc := newService()

	_, err := svc.Analyze(context.Background(), nil, "empty.xlsx")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = svc.Analyze(context.Background(), []byte("foo,bar\n1,2\n"), "nohdr.csv")
	assert.True(t, errors.Is(err, errors.ErrHeaderNotFound))

	_, err = svc.Analyze(context.Background(), []byte("not a workbook"), "broken.xlsx")
	assert.Equal(t, errors.CodeUnreadable, errors.GetCode(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Analyze(ctx, markbookBytes(t, 1), "a.xlsx")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Equal(t, errors.CodeUnreadable, errors.GetCode(err))
}

type failingReader struct{ err error }

func (r failingReader) ReadBytes([]byte, string) (*markbook.RawTable, error) {
	return nil, r.err
}

func TestAnalyze_ReaderErrors(t *testing.T) {
	ctx := context.Background()

	svc := NewAnalysisService(failingReader{stderrors.New("disk on fire")}, normalize.DefaultOptions(), metrics.DefaultThresholds())
	_, err := svc.Analyze(ctx, []byte("x"), "a.xlsx")
	assert.Equal(t, errors.CodeUnreadable, errors.GetCode(err), "plain reader errors are unreadable")

	svc = NewAnalysisService(failingReader{errors.UnsupportedFormat("odt")}, normalize.DefaultOptions(), metrics.DefaultThresholds())
	_, err = svc.Analyze(ctx, []byte("x"), "a.odt")
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err), "coded errors pass through")
}

func TestCompare(t *testing.T) {
	svc := newService()
	state, err := svc.Analyze(context.Background(), markbookBytes(t, 42), "term1.xlsx")
	require.NoError(t, err)

	next, err := svc.Compare(context.Background(), state, markbookBytes(t, 7), "term2.xlsx")
	require.NoError(t, err)
	assert.Nil(t, state.Comparison, "the original state is left untouched")
	require.NotNil(t, next.Comparison)
	assert.Equal(t, "term2.xlsx", next.Comparison.Filename)
	assert.Equal(t, state.Table.ActiveQuestions, next.Comparison.Result.Questions)
	assert.Same(t, state.Table, next.Table)

	_, err = svc.Compare(context.Background(), state, []byte("NAME OF LEARNER,X1\nA,5\n"), "other.csv")
	assert.Equal(t, errors.CodeNoCommonQuestions, errors.GetCode(err))

	_, err = svc.Compare(context.Background(), nil, markbookBytes(t, 7), "term2.xlsx")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}
