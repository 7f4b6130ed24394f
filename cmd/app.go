package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/analysis"
	"github.com/sells-group/domain-intel/internal/analyzer"
	"github.com/sells-group/domain-intel/internal/resilience"
	"github.com/sells-group/domain-intel/internal/store"
	"github.com/sells-group/domain-intel/pkg/brightdata"
	"github.com/sells-group/domain-intel/pkg/serper"
)

func openStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is not set")
	}
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
}

// buildAnalyzer assembles the enrichment pipeline from config. Returns an
// error when any required API key is missing.
func buildAnalyzer(ctx context.Context) (*analyzer.DomainAnalyzer, error) {
	if cfg.Serper.Key == "" || cfg.BrightData.Token == "" || cfg.Gemini.Key == "" {
		return nil, eris.New("missing API credentials: set SERPER_API_KEY, BRIGHTDATA_API_TOKEN, GOOGLE_API_KEY equivalents (serper.key, brightdata.token, gemini.key)")
	}

	llm, err := analyzer.NewGemini(ctx, analyzer.GeminiConfig{
		APIKey:  cfg.Gemini.Key,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	return analyzer.New(analyzer.Config{
		Search:              serper.NewClient(cfg.Serper.Key, serper.WithBaseURL(cfg.Serper.BaseURL)),
		Scraper:             brightdata.NewClient(cfg.BrightData.Token, brightdata.WithBaseURL(cfg.BrightData.BaseURL), brightdata.WithZone(cfg.BrightData.Zone)),
		LLM:                 llm,
		RequestsPerMinute:   cfg.Gemini.RequestsPerMinute,
		SearchResults:       cfg.Serper.MaxResults,
		SearchRatePerSecond: cfg.Serper.RatePerSecond,
		Retry: resilience.RetryConfig{
			MaxAttempts: 3,
			OnRetry:     resilience.RetryLogger("analyzer", "pipeline"),
		},
	}), nil
}

func cacheWindow() time.Duration {
	return time.Duration(cfg.Analysis.CacheWindowHours) * time.Hour
}

func recentWindow() time.Duration {
	return time.Duration(cfg.Analysis.RecentWindowHours) * time.Hour
}

// buildResolver wires the cache-aside resolver, or nil when the analyzer
// cannot be constructed. The server degrades to 503s in that case instead
// of refusing to start.
func buildResolver(ctx context.Context, st store.Store) *analysis.Service {
	an, err := buildAnalyzer(ctx)
	if err != nil {
		zap.L().Warn("analyzer unavailable", zap.Error(err))
		return nil
	}
	return analysis.NewService(st, an, cacheWindow())
}
