// Package analysis implements cache-aside domain resolution: stored records
// are served when fresh, and the full enrichment pipeline runs only on a
// miss, with the result written back for future callers.
package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/analyzer"
	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/normalize"
)

// Store is the slice of the persistence layer the resolver needs.
type Store interface {
	DomainFresh(ctx context.Context, domain string, maxAge time.Duration) (bool, error)
	LatestByDomain(ctx context.Context, domain string, limit int) ([]model.AnalysisRecord, error)
	Insert(ctx context.Context, rec model.AnalysisRecord) error
}

// Service resolves emails to analysis records through the store-backed cache.
type Service struct {
	store       Store
	analyzer    analyzer.Analyzer
	cacheWindow time.Duration
}

// NewService creates a Service. cacheWindow is the maximum age at which a
// stored record still satisfies a lookup.
func NewService(st Store, an analyzer.Analyzer, cacheWindow time.Duration) *Service {
	return &Service{store: st, analyzer: an, cacheWindow: cacheWindow}
}

// Resolve returns the analysis record for an email's domain. It never
// returns an error: any failure between domain extraction and persistence
// yields a synthetic error record so batch callers can treat every item
// uniformly. forceRefresh bypasses the cache and always runs the pipeline.
func (s *Service) Resolve(ctx context.Context, email string, forceRefresh bool) model.AnalysisRecord {
	domain := normalize.Domain(email)
	if domain == email || !strings.Contains(email, "@") {
		return model.ErrorRecord(email, eris.Errorf("no domain in email %q", email))
	}
	log := zap.L().With(zap.String("email", email), zap.String("domain", domain))

	if !forceRefresh {
		if rec, ok := s.cached(ctx, domain); ok {
			log.Info("serving cached analysis")
			return rec
		}
	}

	log.Info("running new analysis")
	rec, err := s.analyzer.Analyze(ctx, email)
	if err != nil {
		log.Error("analysis failed", zap.Error(err))
		return model.ErrorRecord(email, err)
	}

	// Persistence failure degrades the cache but not the response.
	if err := s.store.Insert(ctx, rec); err != nil {
		log.Warn("failed to persist analysis", zap.Error(err))
	}
	return rec
}

// cached looks up a fresh stored record for the domain. Store errors and an
// empty result set both count as a miss.
func (s *Service) cached(ctx context.Context, domain string) (model.AnalysisRecord, bool) {
	fresh, err := s.store.DomainFresh(ctx, domain, s.cacheWindow)
	if err != nil {
		zap.L().Warn("cache freshness check failed", zap.String("domain", domain), zap.Error(err))
		return model.AnalysisRecord{}, false
	}
	if !fresh {
		return model.AnalysisRecord{}, false
	}

	recs, err := s.store.LatestByDomain(ctx, domain, 1)
	if err != nil {
		zap.L().Warn("cache fetch failed", zap.String("domain", domain), zap.Error(err))
		return model.AnalysisRecord{}, false
	}
	if len(recs) == 0 {
		return model.AnalysisRecord{}, false
	}

	rec := recs[0]
	rec.FromCache = true
	return rec, true
}
