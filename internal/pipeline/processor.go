// Package pipeline runs one upload through text extraction, structured
// extraction, scoring and persistence, and fans bulk uploads out over a
// bounded worker group.
package pipeline

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"atscore/internal/ai"
	"atscore/internal/archive"
	"atscore/internal/ats"
	"atscore/internal/document"
	"atscore/internal/errors"
	"atscore/internal/store"
	"atscore/internal/types"
)

// Pipeline stages reported to the Recorder.
const (
	StageArchive       = "archive"
	StageExtractText   = "extract_text"
	StageExtractFields = "extract_fields"
	StageScore         = "score"
	StagePersist       = "persist"
)

// Upload is one resume submitted for processing.
type Upload struct {
	Filename       string
	Content        []byte
	JobDescription string
	// Owner is the user email whose latest upload this becomes. Empty for anonymous uploads.
	Owner string
}

// Result is the outcome of a successful Process call.
type Result struct {
	ID          string                  `json:"id"`
	Filename    string                  `json:"filename"`
	Data        *types.StructuredFields `json:"data"`
	Report      ats.Report              `json:"report"`
	ArchivePath string                  `json:"archive_path,omitempty"`
}

// Recorder receives pipeline measurements.
type Recorder interface {
	RecordStage(ctx context.Context, stage string, d time.Duration, err error)
	RecordProcessed(ctx context.Context, report *ats.Report, err error)
	RecordScreening(ctx context.Context, files, matches int)
}

type nopRecorder struct{}

func (nopRecorder) RecordStage(context.Context, string, time.Duration, error) {}
func (nopRecorder) RecordProcessed(context.Context, *ats.Report, error)        {}
func (nopRecorder) RecordScreening(context.Context, int, int)                 {}

// Processor runs uploads through the scoring pipeline. It is safe for concurrent use.
type Processor struct {
	text           document.TextExtractor
	fields         ai.StructuredExtractor
	scorer         atomic.Pointer[ats.Scorer]
	store          store.ReportStore
	archive        archive.Archive
	recorder       Recorder
	logger         *errors.Logger
	extractTimeout time.Duration
	workers        int
	newID          func() string
	now            func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

func WithStore(s store.ReportStore) Option { return func(p *Processor) { p.store = s } }

func WithArchive(a archive.Archive) Option { return func(p *Processor) { p.archive = a } }

func WithRecorder(r Recorder) Option { return func(p *Processor) { p.recorder = r } }

func WithLogger(l *errors.Logger) Option { return func(p *Processor) { p.logger = l } }

// WithExtractTimeout bounds the structured extraction call.
func WithExtractTimeout(d time.Duration) Option {
	return func(p *Processor) { p.extractTimeout = d }
}

// WithWorkers sets the number of uploads Screen processes at once.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New creates a Processor. A nil fields extractor scores every upload with
// empty structured fields.
func New(text document.TextExtractor, fields ai.StructuredExtractor, scorer *ats.Scorer, opts ...Option) *Processor {
	p := &Processor{
		text:     text,
		fields:   fields,
		archive:  archive.Nop{},
		recorder: nopRecorder{},
		logger:   errors.NewNopLogger(),
		workers:  4,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
	p.scorer.Store(scorer)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scorer returns the scorer currently in use.
func (p *Processor) Scorer() *ats.Scorer { return p.scorer.Load() }

// SetScorer swaps the scorer for subsequent uploads. In-flight uploads keep
// the scorer they started with.
func (p *Processor) SetScorer(s *ats.Scorer) {
	if s != nil {
		p.scorer.Store(s)
	}
}

// Process scores one upload. Archive and persistence failures are logged
// and never fail the call.
func (p *Processor) Process(ctx context.Context, up Upload) (result *Result, err error) {
	defer func() {
		var report *ats.Report
		if result != nil {
			report = &result.Report
		}
		p.recorder.RecordProcessed(ctx, report, err)
	}()

	if len(up.Content) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyDocument,
			"Empty file received. Please upload a valid PDF.", nil).WithContext("filename", up.Filename)
	}

	scorer := p.scorer.Load()
	id := p.newID()
	logger := p.logger.With("report_id", id, "filename", up.Filename)

	archivePath := p.archiveUpload(ctx, logger, id, up)

	start := time.Now()
	text, err := p.text.ExtractText(ctx, bytes.NewReader(up.Content), up.Filename)
	p.recorder.RecordStage(ctx, StageExtractText, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeCancelled, "processing cancelled", err)
	}

	fields, err := p.extractFields(ctx, text)
	if err != nil {
		logger.LogError(err, "Structured extraction failed")
		return nil, err
	}

	fields = fields.Clone()
	fields.Languages = scorer.NormalizeLanguages(fields.Languages)
	if len(fields.Languages) == 0 {
		fields.Languages = types.StringList{ats.DefaultLanguage}
	}

	start = time.Now()
	report := scorer.Score(text, fields, up.JobDescription)
	p.recorder.RecordStage(ctx, StageScore, time.Since(start), nil)

	result = &Result{
		ID:          id,
		Filename:    up.Filename,
		Data:        fields,
		Report:      report,
		ArchivePath: archivePath,
	}
	p.persist(ctx, logger, up, result)

	logger.Info("Resume processed", "ats_score", report.Score, "word_count", report.WordCount)
	return result, nil
}

func (p *Processor) extractFields(ctx context.Context, text string) (*types.StructuredFields, error) {
	if p.fields == nil {
		return &types.StructuredFields{}, nil
	}
	if p.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.extractTimeout)
		defer cancel()
	}

	start := time.Now()
	fields, err := p.fields.ExtractFields(ctx, text)
	p.recorder.RecordStage(ctx, StageExtractFields, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = &types.StructuredFields{}
	}
	return fields, nil
}

func (p *Processor) archiveUpload(ctx context.Context, logger *errors.Logger, id string, up Upload) string {
	start := time.Now()
	location, err := p.archive.Put(ctx, archive.ObjectKey(id, up.Filename, p.now()), up.Content)
	p.recorder.RecordStage(ctx, StageArchive, time.Since(start), err)
	if err != nil {
		logger.LogError(err, "Failed to archive upload")
		return ""
	}
	return location
}

func (p *Processor) persist(ctx context.Context, logger *errors.Logger, up Upload, result *Result) {
	if p.store == nil {
		return
	}

	rec := store.Record{
		ID:          result.ID,
		Email:       up.Owner,
		Filename:    result.Filename,
		Fields:      result.Data,
		Report:      result.Report,
		ArchivePath: result.ArchivePath,
		CreatedAt:   p.now(),
	}

	start := time.Now()
	err := p.store.SaveReport(ctx, rec)
	if err == nil && up.Owner != "" {
		err = p.store.UpsertUser(ctx, up.Owner, rec)
	}
	p.recorder.RecordStage(ctx, StagePersist, time.Since(start), err)
	if err != nil {
		logger.LogError(err, "Failed to persist report")
	}
}
