package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"atscore/internal/ats"
	"atscore/internal/config"
	"atscore/internal/errors"
	"atscore/internal/types"
)

// Registered database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id           TEXT PRIMARY KEY,
		email        TEXT NOT NULL DEFAULT '',
		filename     TEXT NOT NULL,
		fields       TEXT NOT NULL,
		report       TEXT NOT NULL,
		archive_path TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reports_email_idx ON reports (email)`,
	`CREATE TABLE IF NOT EXISTS users (
		email           TEXT PRIMARY KEY,
		resume_filename TEXT NOT NULL,
		structured_info TEXT NOT NULL,
		ats_score       DOUBLE PRECISION NOT NULL,
		ats_breakdown   TEXT NOT NULL,
		word_count      INTEGER NOT NULL,
		last_uploaded   TEXT NOT NULL
	)`,
}

// SQLStore persists to SQLite or PostgreSQL through database/sql.
type SQLStore struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	logger  *errors.Logger
}

var _ ReportStore = (*SQLStore)(nil)

// OpenSQL opens the database, verifies the connection and creates the schema.
func OpenSQL(ctx context.Context, driver string, cfg config.StorageConfig, logger *errors.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if cfg.DSN == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "storage DSN is required for driver "+driver, nil)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to open database", err)
	}
	if driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &SQLStore{db: db, driver: driver, timeout: cfg.Timeout, logger: logger}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Report store ready", "driver", driver)
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to initialize schema", err)
		}
	}
	return nil
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) SaveReport(ctx context.Context, rec Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	fields, err := marshalFields(rec.Fields)
	if err != nil {
		return err
	}
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to encode report", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO reports (id, email, filename, fields, report, archive_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, NormalizeEmail(rec.Email), rec.Filename, fields, string(report), rec.ArchivePath,
		formatTime(rec.CreatedAt))
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to save report", err).
			WithContext("id", rec.ID)
	}
	return nil
}

func (s *SQLStore) UpsertUser(ctx context.Context, email string, rec Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	profile := profileFromRecord(NormalizeEmail(email), rec)
	fields, err := marshalFields(profile.StructuredInfo)
	if err != nil {
		return err
	}
	breakdown, err := json.Marshal(profile.ATSBreakdown)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to encode breakdown", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO users (email, resume_filename, structured_info, ats_score, ats_breakdown, word_count, last_uploaded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
			resume_filename = excluded.resume_filename,
			structured_info = excluded.structured_info,
			ats_score       = excluded.ats_score,
			ats_breakdown   = excluded.ats_breakdown,
			word_count      = excluded.word_count,
			last_uploaded   = excluded.last_uploaded`),
		profile.Email, profile.ResumeFilename, fields, profile.ATSScore, string(breakdown),
		profile.WordCount, formatTime(profile.LastUploaded))
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to upsert user", err).
			WithContext("email", profile.Email)
	}
	return nil
}

const userColumns = `email, resume_filename, structured_info, ats_score, ats_breakdown, word_count, last_uploaded`

func (s *SQLStore) GetUser(ctx context.Context, email string) (*UserProfile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`),
		NormalizeEmail(email))
	profile, err := scanUser(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "failed to load user", err)
	}
	return profile, nil
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]UserProfile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "failed to list users", err)
	}
	defer func() { _ = rows.Close() }()

	users := []UserProfile{}
	for rows.Next() {
		profile, err := scanUser(rows)
		if err != nil {
			return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "failed to read user row", err)
		}
		users = append(users, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "failed to list users", err)
	}
	return users, nil
}

// ReportsByEmail returns the saved reports of one user, oldest first.
func (s *SQLStore) ReportsByEmail(ctx context.Context, email string) ([]Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, email, filename, fields, report, archive_path, created_at
		 FROM reports WHERE email = ? ORDER BY created_at, id`), NormalizeEmail(email))
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "failed to list reports", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			rec                Record
			fields, report, ts string
		)
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Filename, &fields, &report, &rec.ArchivePath, &ts); err != nil {
			return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "failed to read report row", err)
		}
		if rec.Fields, err = types.ParseStructuredFields([]byte(fields)); err != nil {
			return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "corrupt report fields", err)
		}
		if err := json.Unmarshal([]byte(report), &rec.Report); err != nil {
			return nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed, "corrupt report", err)
		}
		rec.CreatedAt = parseTime(ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageReadFailed, "database unreachable", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*UserProfile, error) {
	var (
		p                 UserProfile
		fields, breakdown string
		uploaded          string
	)
	if err := row.Scan(&p.Email, &p.ResumeFilename, &fields, &p.ATSScore, &breakdown, &p.WordCount, &uploaded); err != nil {
		return nil, err
	}
	parsed, err := types.ParseStructuredFields([]byte(fields))
	if err != nil {
		return nil, fmt.Errorf("decode structured_info: %w", err)
	}
	p.StructuredInfo = parsed
	var b ats.Breakdown
	if err := json.Unmarshal([]byte(breakdown), &b); err != nil {
		return nil, fmt.Errorf("decode ats_breakdown: %w", err)
	}
	p.ATSBreakdown = b
	p.LastUploaded = parseTime(uploaded)
	return &p, nil
}

func marshalFields(fields *types.StructuredFields) (string, error) {
	if fields == nil {
		fields = &types.StructuredFields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to encode fields", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
