package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/domain-intel/internal/db"
	"github.com/sells-group/domain-intel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot cache-check path.
var preparedStatements = map[string]string{
	"domain_fresh":     `SELECT EXISTS (SELECT 1 FROM analyses WHERE extracted_domain = $1 AND created_at > $2)`,
	"latest_by_domain": `SELECT ` + recordColumns + ` FROM analyses WHERE extracted_domain = $1 ORDER BY created_at DESC LIMIT $2`,
	"insert_analysis":  insertAnalysisSQL,
}

const recordColumns = `original_email, extracted_domain, selected_url, scraping_status, website_summary, confidence_score, selection_reasoning, completed_timestamp, processing_time_seconds, created_at, real_estate, infrastructure, industrial`

const insertAnalysisSQL = `INSERT INTO analyses (id, original_email, extracted_domain, selected_url, scraping_status, website_summary, confidence_score, selection_reasoning, completed_timestamp, processing_time_seconds, created_at, real_estate, infrastructure, industrial) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	original_email          TEXT NOT NULL,
	extracted_domain        TEXT NOT NULL,
	selected_url            TEXT,
	scraping_status         TEXT NOT NULL,
	website_summary         TEXT,
	confidence_score        DOUBLE PRECISION,
	selection_reasoning     TEXT,
	completed_timestamp     TIMESTAMPTZ,
	processing_time_seconds DOUBLE PRECISION,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	real_estate             TEXT NOT NULL DEFAULT 'Can''t Say',
	infrastructure          TEXT NOT NULL DEFAULT 'Can''t Say',
	industrial              TEXT NOT NULL DEFAULT 'Can''t Say'
);

CREATE INDEX IF NOT EXISTS idx_analyses_domain_created ON analyses(extracted_domain, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(scraping_status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) DomainFresh(ctx context.Context, domain string, maxAge time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	var fresh bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM analyses WHERE extracted_domain = $1 AND created_at > $2)`,
		domain, cutoff,
	).Scan(&fresh)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: domain fresh %s", domain)
	}
	return fresh, nil
}

func (s *PostgresStore) DomainsFresh(ctx context.Context, domains []string, maxAge time.Duration) (map[string]bool, error) {
	fresh := make(map[string]bool, len(domains))
	if len(domains) == 0 {
		return fresh, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge)

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT extracted_domain FROM analyses WHERE extracted_domain = ANY($1) AND created_at > $2`,
		domains, cutoff,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: domains fresh")
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fresh domain")
		}
		fresh[d] = true
	}
	return fresh, eris.Wrap(rows.Err(), "postgres: domains fresh iterate")
}

func (s *PostgresStore) LatestByDomain(ctx context.Context, domain string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM analyses WHERE extracted_domain = $1 ORDER BY created_at DESC LIMIT $2`,
		domain, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest by domain %s", domain)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) Insert(ctx context.Context, rec model.AnalysisRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, insertAnalysisSQL,
		uuid.New().String(),
		rec.OriginalEmail, rec.ExtractedDomain, rec.SelectedURL,
		string(rec.ScrapingStatus), rec.WebsiteSummary, rec.ConfidenceScore,
		rec.SelectionReasoning, rec.CompletedTimestamp, rec.ProcessingTimeSeconds,
		createdAt, string(rec.RealEstate), string(rec.Infrastructure), string(rec.Industrial),
	)
	return eris.Wrapf(err, "postgres: insert analysis %s", rec.ExtractedDomain)
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM analyses ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent")
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.AnalysisStats, error) {
	var st model.AnalysisStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(DISTINCT extracted_domain),
		        COALESCE(AVG(processing_time_seconds), 0),
		        COALESCE(AVG(confidence_score), 0),
		        COUNT(*) FILTER (WHERE scraping_status IN ('success', 'success_text', 'success_fallback')),
		        COUNT(*) FILTER (WHERE scraping_status NOT IN ('success', 'success_text', 'success_fallback'))
		 FROM analyses`,
	).Scan(&st.TotalAnalyses, &st.UniqueDomains, &st.AvgProcessingTime,
		&st.AvgConfidenceScore, &st.SuccessfulScrapes, &st.FailedScrapes)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}

func scanRecords(rows pgx.Rows) ([]model.AnalysisRecord, error) {
	var records []model.AnalysisRecord
	for rows.Next() {
		var r model.AnalysisRecord
		var status, realEstate, infrastructure, industrial string
		if err := rows.Scan(
			&r.OriginalEmail, &r.ExtractedDomain, &r.SelectedURL,
			&status, &r.WebsiteSummary, &r.ConfidenceScore,
			&r.SelectionReasoning, &r.CompletedTimestamp, &r.ProcessingTimeSeconds,
			&r.CreatedAt, &realEstate, &infrastructure, &industrial,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		r.ScrapingStatus = model.ScrapingStatus(status)
		r.RealEstate = model.SectorAnswer(realEstate)
		r.Infrastructure = model.SectorAnswer(infrastructure)
		r.Industrial = model.SectorAnswer(industrial)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}
