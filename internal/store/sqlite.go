package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/domain-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists for local
// development and tests; production deployments use Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteTimeLayout is fixed-width so the lexicographic comparisons SQLite
// does on the TEXT columns match chronological order. RFC3339Nano trims the
// fractional part for whole-second times, which breaks the ordering within
// a second.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id                      TEXT PRIMARY KEY,
	original_email          TEXT NOT NULL,
	extracted_domain        TEXT NOT NULL,
	selected_url            TEXT,
	scraping_status         TEXT NOT NULL,
	website_summary         TEXT,
	confidence_score        REAL,
	selection_reasoning     TEXT,
	completed_timestamp     TEXT,
	processing_time_seconds REAL,
	created_at              TEXT NOT NULL,
	real_estate             TEXT NOT NULL DEFAULT 'Can''t Say',
	infrastructure          TEXT NOT NULL DEFAULT 'Can''t Say',
	industrial              TEXT NOT NULL DEFAULT 'Can''t Say'
);

CREATE INDEX IF NOT EXISTS idx_analyses_domain_created ON analyses(extracted_domain, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) DomainFresh(ctx context.Context, domain string, maxAge time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(sqliteTimeLayout)

	var fresh bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM analyses WHERE extracted_domain = ? AND created_at > ?)`,
		domain, cutoff,
	).Scan(&fresh)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: domain fresh %s", domain)
	}
	return fresh, nil
}

func (s *SQLiteStore) DomainsFresh(ctx context.Context, domains []string, maxAge time.Duration) (map[string]bool, error) {
	fresh := make(map[string]bool, len(domains))
	if len(domains) == 0 {
		return fresh, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge).Format(sqliteTimeLayout)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(domains)), ",")
	args := make([]any, 0, len(domains)+1)
	for _, d := range domains {
		args = append(args, d)
	}
	args = append(args, cutoff)

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT extracted_domain FROM analyses WHERE extracted_domain IN (`+placeholders+`) AND created_at > ?`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: domains fresh")
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fresh domain")
		}
		fresh[d] = true
	}
	return fresh, eris.Wrap(rows.Err(), "sqlite: domains fresh iterate")
}

func (s *SQLiteStore) LatestByDomain(ctx context.Context, domain string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM analyses WHERE extracted_domain = ? ORDER BY created_at DESC LIMIT ?`,
		domain, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest by domain %s", domain)
	}
	defer rows.Close()
	return scanSQLiteRecords(rows)
}

func (s *SQLiteStore) Insert(ctx context.Context, rec model.AnalysisRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var completed any
	if rec.CompletedTimestamp != nil {
		completed = rec.CompletedTimestamp.UTC().Format(sqliteTimeLayout)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, original_email, extracted_domain, selected_url, scraping_status, website_summary, confidence_score, selection_reasoning, completed_timestamp, processing_time_seconds, created_at, real_estate, infrastructure, industrial)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		rec.OriginalEmail, rec.ExtractedDomain, rec.SelectedURL,
		string(rec.ScrapingStatus), rec.WebsiteSummary, rec.ConfidenceScore,
		rec.SelectionReasoning, completed, rec.ProcessingTimeSeconds,
		createdAt.UTC().Format(sqliteTimeLayout),
		string(rec.RealEstate), string(rec.Infrastructure), string(rec.Industrial),
	)
	return eris.Wrapf(err, "sqlite: insert analysis %s", rec.ExtractedDomain)
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM analyses ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent")
	}
	defer rows.Close()
	return scanSQLiteRecords(rows)
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.AnalysisStats, error) {
	var st model.AnalysisStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(DISTINCT extracted_domain),
		        COALESCE(AVG(processing_time_seconds), 0),
		        COALESCE(AVG(confidence_score), 0),
		        COALESCE(SUM(CASE WHEN scraping_status IN ('success', 'success_text', 'success_fallback') THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN scraping_status NOT IN ('success', 'success_text', 'success_fallback') THEN 1 ELSE 0 END), 0)
		 FROM analyses`,
	).Scan(&st.TotalAnalyses, &st.UniqueDomains, &st.AvgProcessingTime,
		&st.AvgConfidenceScore, &st.SuccessfulScrapes, &st.FailedScrapes)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

func scanSQLiteRecords(rows *sql.Rows) ([]model.AnalysisRecord, error) {
	var records []model.AnalysisRecord
	for rows.Next() {
		var r model.AnalysisRecord
		var status, realEstate, infrastructure, industrial, createdAt string
		var selectedURL, summary, reasoning, completed sql.NullString
		var confidence, procSecs sql.NullFloat64

		if err := rows.Scan(
			&r.OriginalEmail, &r.ExtractedDomain, &selectedURL,
			&status, &summary, &confidence,
			&reasoning, &completed, &procSecs,
			&createdAt, &realEstate, &infrastructure, &industrial,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}

		r.ScrapingStatus = model.ScrapingStatus(status)
		r.RealEstate = model.SectorAnswer(realEstate)
		r.Infrastructure = model.SectorAnswer(infrastructure)
		r.Industrial = model.SectorAnswer(industrial)
		if selectedURL.Valid {
			r.SelectedURL = &selectedURL.String
		}
		if summary.Valid {
			r.WebsiteSummary = &summary.String
		}
		if reasoning.Valid {
			r.SelectionReasoning = &reasoning.String
		}
		if confidence.Valid {
			r.ConfidenceScore = &confidence.Float64
		}
		if procSecs.Valid {
			r.ProcessingTimeSeconds = &procSecs.Float64
		}
		if completed.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completed.String); err == nil {
				r.CompletedTimestamp = &t
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}

		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}
