package store

import (
	"context"
	"time"

	"github.com/sells-group/domain-intel/internal/model"
)

// Store defines the persistence interface for analysis records. It is the
// cache behind the cache-aside analysis service: readers test domain
// freshness before invoking the expensive analyzer, and every fresh analysis
// is written back through Insert.
type Store interface {
	// DomainFresh reports whether the domain has a record newer than maxAge.
	DomainFresh(ctx context.Context, domain string, maxAge time.Duration) (bool, error)

	// DomainsFresh answers DomainFresh for many domains in one query.
	// Domains absent from the result map have no fresh record.
	DomainsFresh(ctx context.Context, domains []string, maxAge time.Duration) (map[string]bool, error)

	// LatestByDomain returns up to limit records for the domain, newest first.
	LatestByDomain(ctx context.Context, domain string, limit int) ([]model.AnalysisRecord, error)

	// Insert persists one analysis record. Callers on the analysis path treat
	// a failure as log-and-continue; the record is still returned upstream.
	Insert(ctx context.Context, rec model.AnalysisRecord) error

	// Recent returns the most recently created records, newest first.
	Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error)

	// Stats aggregates counts and averages over all stored analyses.
	Stats(ctx context.Context) (*model.AnalysisStats, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string, maxConns, minConns int32) (Store, error) {
	if driver == "sqlite" {
		return NewSQLite(dsn)
	}
	return NewPostgres(ctx, dsn, maxConns, minConns)
}
