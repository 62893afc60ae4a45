package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscore/internal/ats"
	"atscore/internal/document"
	appErrors "atscore/internal/errors"
	"atscore/internal/screening"
	"atscore/internal/store"
	"atscore/internal/types"
)

type fakeExtractor struct {
	mu     sync.Mutex
	calls  int
	fields func(text string) (*types.StructuredFields, error)
}

func (f *fakeExtractor) ExtractFields(_ context.Context, text string) (*types.StructuredFields, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fields(text)
}

func staticFields(fields *types.StructuredFields) *fakeExtractor {
	return &fakeExtractor{fields: func(string) (*types.StructuredFields, error) { return fields, nil }}
}

type failingStore struct{ store.ReportStore }

func (failingStore) SaveReport(context.Context, store.Record) error {
	return appErrors.NewStorageError(appErrors.ErrCodeStorageWriteFailed, "disk full", nil)
}

type failingArchive struct{}

func (failingArchive) Put(context.Context, string, []byte) (string, error) {
	return "", stderrors.New("bucket unreachable")
}

type stageRecorder struct {
	mu        sync.Mutex
	stages    []string
	processed int
	failed    int
	screens   [][2]int
}

func (r *stageRecorder) RecordStage(_ context.Context, stage string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *stageRecorder) RecordProcessed(_ context.Context, _ *ats.Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		return
	}
	r.processed++
}

func (r *stageRecorder) RecordScreening(_ context.Context, files, matches int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens = append(r.screens, [2]int{files, matches})
}

const resumeText = `Asha Rao
asha@example.com | linkedin.com/in/asha | github.com/asha
• Developed payment APIs in Go and PostgreSQL serving 200 clients
• Led migration to Kubernetes, reducing costs by 30%`

func newTestProcessor(fields *fakeExtractor, opts ...Option) *Processor {
	p := New(document.TextOnly{}, fields, ats.MustNewScorer(ats.DefaultTables()), opts...)
	p.newID = func() string { return "fixed-id" }
	return p
}

func TestProcess(t *testing.T) {
	mem := store.NewMemoryStore()
	rec := &stageRecorder{}
	fields := staticFields(&types.StructuredFields{
		Name:      "Asha Rao",
		Email:     "asha@example.com",
		Languages: types.StringList{"hindi", "Klingon", "HINDI"},
	})
	p := newTestProcessor(fields, WithStore(mem), WithRecorder(rec))

	res, err := p.Process(context.Background(), Upload{
		Filename: "asha.txt",
		Content:  []byte(resumeText),
		Owner:    "asha@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", res.ID)
	assert.Equal(t, "asha.txt", res.Filename)
	assert.Equal(t, []string{"Hindi"}, []string(res.Data.Languages))
	assert.Equal(t, []string{"Hindi"}, res.Report.Languages)
	assert.Equal(t, res.Report.Breakdown.Total(), res.Report.Score)
	assert.Greater(t, res.Report.Score, 0.0)

	require.Len(t, mem.Reports(), 1)
	profile, err := mem.GetUser(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, res.Report.Score, profile.ATSScore)

	assert.Equal(t, []string{StageArchive, StageExtractText, StageExtractFields, StageScore, StagePersist}, rec.stages)
	assert.Equal(t, 1, rec.processed)
}

func TestProcessDefaultsLanguageToEnglish(t *testing.T) {
	p := newTestProcessor(staticFields(&types.StructuredFields{Languages: types.StringList{"Elvish"}}))
	res, err := p.Process(context.Background(), Upload{Filename: "a.txt", Content: []byte(resumeText)})
	require.NoError(t, err)
	assert.Equal(t, []string{"English"}, []string(res.Data.Languages))
	assert.Equal(t, []string{"English"}, res.Report.Languages)
}

func TestProcessEmptyUpload(t *testing.T) {
	fields := staticFields(&types.StructuredFields{})
	p := newTestProcessor(fields)

	_, err := p.Process(context.Background(), Upload{Filename: "empty.pdf"})
	require.Error(t, err)
	appErr, ok := appErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "Empty file received. Please upload a valid PDF.", appErr.Message)
	assert.Zero(t, fields.calls)
}

func TestProcessNoReadableText(t *testing.T) {
	fields := staticFields(&types.StructuredFields{})
	p := newTestProcessor(fields)

	_, err := p.Process(context.Background(), Upload{Filename: "blank.txt", Content: []byte("  \n\t ")})
	require.Error(t, err)
	assert.True(t, appErrors.IsType(err, appErrors.ErrorTypeValidation))
	assert.Zero(t, fields.calls)
}

func TestProcessPersistenceFailureDoesNotFail(t *testing.T) {
	p := newTestProcessor(staticFields(&types.StructuredFields{}),
		WithStore(failingStore{store.NewMemoryStore()}),
		WithArchive(failingArchive{}))

	res, err := p.Process(context.Background(), Upload{Filename: "a.txt", Content: []byte(resumeText)})
	require.NoError(t, err)
	assert.Empty(t, res.ArchivePath)
}

func TestProcessCancelledSkipsScoring(t *testing.T) {
	fields := staticFields(&types.StructuredFields{})
	rec := &stageRecorder{}
	p := newTestProcessor(fields, WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Process(ctx, Upload{Filename: "a.txt", Content: []byte(resumeText)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fields.calls)
	assert.NotContains(t, rec.stages, StageScore)
	assert.Equal(t, 1, rec.failed)
}

func TestProcessExtractionError(t *testing.T) {
	aiErr := appErrors.NewAIError(appErrors.ErrCodeAIMalformedOutput, "Failed to parse AI JSON", nil)
	p := newTestProcessor(&fakeExtractor{fields: func(string) (*types.StructuredFields, error) { return nil, aiErr }})

	_, err := p.Process(context.Background(), Upload{Filename: "a.txt", Content: []byte(resumeText)})
	assert.ErrorIs(t, err, aiErr)
}

func TestProcessWithoutExtractor(t *testing.T) {
	p := New(document.TextOnly{}, nil, ats.MustNewScorer(ats.DefaultTables()))
	res, err := p.Process(context.Background(), Upload{Filename: "a.txt", Content: []byte(resumeText)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, []string{"English"}, res.Report.Languages)
}

func TestSetScorer(t *testing.T) {
	p := newTestProcessor(staticFields(&types.StructuredFields{}))
	original := p.Scorer()

	tables := ats.DefaultTables()
	tables.Languages = []string{"English", "Hindi"}
	replacement := ats.MustNewScorer(tables)
	p.SetScorer(replacement)
	assert.Same(t, replacement, p.Scorer())

	p.SetScorer(nil)
	assert.Same(t, replacement, p.Scorer())
	assert.NotSame(t, original, p.Scorer())
}

func TestScreen(t *testing.T) {
	extractor := &fakeExtractor{fields: func(text string) (*types.StructuredFields, error) {
		switch {
		case strings.Contains(text, "broken"):
			return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "upstream down", nil)
		case strings.Contains(text, "senior"):
			return &types.StructuredFields{
				Name:   "Senior",
				Skills: types.Skills{Technical: types.StringList{"Go", "SQL"}},
			}, nil
		default:
			return &types.StructuredFields{
				Name:   "Junior",
				Skills: types.Skills{Technical: types.StringList{"HTML"}},
			}, nil
		}
	}}
	rec := &stageRecorder{}
	p := newTestProcessor(extractor, WithWorkers(2), WithRecorder(rec))

	var files []Upload
	for i := range 6 {
		kind := "junior"
		switch i % 3 {
		case 0:
			kind = "senior"
		case 1:
			kind = "broken"
		}
		files = append(files, Upload{
			Filename: fmt.Sprintf("%d-%s.txt", i, kind),
			Content:  []byte(kind + " " + resumeText),
		})
	}
	files = append(files, Upload{Filename: "empty.txt"})

	result, err := p.Screen(context.Background(), files, screening.Criteria{Skills: []string{"go"}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "0-senior.txt", result.Results[0].Filename)
	assert.Equal(t, "3-senior.txt", result.Results[1].Filename)
	assert.Equal(t, 4, result.Processed)
	assert.Len(t, result.Skipped, 3)
	assert.Equal(t, [][2]int{{7, 2}}, rec.screens)
}

func TestScreenEmptyResultIsNotNil(t *testing.T) {
	p := newTestProcessor(staticFields(&types.StructuredFields{}))
	result, err := p.Screen(context.Background(), nil, screening.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.NotNil(t, result.Results)
}

func TestScreenCancelled(t *testing.T) {
	p := newTestProcessor(staticFields(&types.StructuredFields{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Screen(ctx, []Upload{{Filename: "a.txt", Content: []byte(resumeText)}}, screening.Criteria{})
	assert.ErrorIs(t, err, context.Canceled)
}
