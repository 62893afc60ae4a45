// Package store persists score reports and the latest upload of each user.
package store

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"atscore/internal/ats"
	"atscore/internal/config"
	"atscore/internal/errors"
	"atscore/internal/types"
)

// ErrNotFound is returned when a user has no stored upload.
var ErrNotFound = stderrors.New("not found")

// Record is one processed upload. Records are immutable once saved.
type Record struct {
	ID          string                  `json:"id"`
	Email       string                  `json:"email,omitempty"`
	Filename    string                  `json:"filename"`
	Fields      *types.StructuredFields `json:"structured_info"`
	Report      ats.Report              `json:"report"`
	ArchivePath string                  `json:"archive_path,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// UserProfile is the latest upload of a user.
type UserProfile struct {
	Email          string                  `json:"email"`
	ResumeFilename string                  `json:"resume_filename"`
	StructuredInfo *types.StructuredFields `json:"structured_info"`
	ATSScore       float64                 `json:"ats_score"`
	ATSBreakdown   ats.Breakdown           `json:"ats_breakdown"`
	WordCount      int                     `json:"word_count"`
	LastUploaded   time.Time               `json:"last_uploaded"`
}

// ReportStore persists reports. Callers treat write failures as non-fatal.
type ReportStore interface {
	SaveReport(ctx context.Context, rec Record) error
	UpsertUser(ctx context.Context, email string, rec Record) error
	GetUser(ctx context.Context, email string) (*UserProfile, error)
	ListUsers(ctx context.Context) ([]UserProfile, error)
	Ping(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (ReportStore, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	switch cfg.Driver {
	case "", "memory":
		logger.Debug("Using in-memory report store")
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQL(ctx, DriverSQLite, cfg, logger)
	case "postgres":
		return OpenSQL(ctx, DriverPostgres, cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "unsupported storage driver: "+cfg.Driver, nil)
	}
}

// NormalizeEmail is the key under which user profiles are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func profileFromRecord(email string, rec Record) UserProfile {
	uploaded := rec.CreatedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	return UserProfile{
		Email:          email,
		ResumeFilename: rec.Filename,
		StructuredInfo: rec.Fields,
		ATSScore:       rec.Report.Score,
		ATSBreakdown:   rec.Report.Breakdown,
		WordCount:      rec.Report.WordCount,
		LastUploaded:   uploaded,
	}
}
