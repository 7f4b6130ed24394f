// Package analyzer runs the full domain enrichment pipeline for a single
// email: web search, URL selection, content scraping with fallbacks, and
// LLM summarization plus sector classification.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/normalize"
	"github.com/sells-group/domain-intel/internal/resilience"
	"github.com/sells-group/domain-intel/pkg/brightdata"
	"github.com/sells-group/domain-intel/pkg/serper"
)

// maxContentChars bounds how much scraped text is sent to the model.
const maxContentChars = 30000

// Analyzer produces a complete analysis record for one email address.
type Analyzer interface {
	Analyze(ctx context.Context, email string) (model.AnalysisRecord, error)
}

// Config holds the analyzer's collaborator settings.
type Config struct {
	Search  serper.Client
	Scraper brightdata.Client

	// LLM generates structured JSON. Production wiring uses NewGemini.
	LLM Generator

	// RequestsPerMinute throttles LLM calls. Zero disables throttling.
	RequestsPerMinute int

	// SearchResults caps organic results requested per query. Zero means 10.
	SearchResults int

	// SearchRatePerSecond throttles search calls. Zero disables throttling.
	SearchRatePerSecond float64

	Retry resilience.RetryConfig
}

// DomainAnalyzer is the production Analyzer implementation.
type DomainAnalyzer struct {
	search        serper.Client
	scraper       brightdata.Client
	llm           Generator
	limiter       *rate.Limiter
	searchLimiter *rate.Limiter
	searchNum     int
	retry         resilience.RetryConfig
}

// New creates a DomainAnalyzer from already-built collaborators.
func New(cfg Config) *DomainAnalyzer {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	searchLimiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SearchRatePerSecond > 0 {
		searchLimiter = rate.NewLimiter(rate.Limit(cfg.SearchRatePerSecond), 1)
	}
	searchNum := cfg.SearchResults
	if searchNum <= 0 {
		searchNum = 10
	}
	return &DomainAnalyzer{
		search:        cfg.Search,
		scraper:       cfg.Scraper,
		llm:           cfg.LLM,
		limiter:       limiter,
		searchLimiter: searchLimiter,
		searchNum:     searchNum,
		retry:         cfg.Retry,
	}
}

// Analyze runs the pipeline for a single email. The returned record carries
// the original email, the extracted domain, the selected URL and reasoning,
// the generated summary and sector answers, and the scraping status that
// records which content path succeeded.
func (a *DomainAnalyzer) Analyze(ctx context.Context, email string) (model.AnalysisRecord, error) {
	start := time.Now()
	domain := normalize.Domain(email)
	log := zap.L().With(zap.String("domain", domain))

	candidates, snippets, err := a.searchCandidates(ctx, domain)
	if err != nil {
		return model.AnalysisRecord{}, eris.Wrap(err, "analyzer: search")
	}

	selection, err := a.selectURL(ctx, domain, candidates)
	if err != nil {
		return model.AnalysisRecord{}, eris.Wrap(err, "analyzer: select url")
	}
	log.Debug("selected url",
		zap.String("url", selection.URL),
		zap.Float64("confidence", selection.Confidence))

	content, status := a.fetchContent(ctx, domain, selection.URL, snippets)
	if content == "" {
		return model.AnalysisRecord{}, eris.Errorf("analyzer: no content available for %s", domain)
	}
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}

	var summary string
	var sectors sectorAnswers
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.summarize(gctx, domain, content)
		return err
	})
	g.Go(func() error {
		var err error
		sectors, err = a.classifySectors(gctx, domain, content)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.AnalysisRecord{}, eris.Wrap(err, "analyzer: content analysis")
	}

	now := time.Now().UTC()
	elapsed := time.Since(start).Seconds()
	rec := model.AnalysisRecord{
		OriginalEmail:         email,
		ExtractedDomain:       domain,
		SelectedURL:           &selection.URL,
		ScrapingStatus:        status,
		WebsiteSummary:        &summary,
		ConfidenceScore:       &selection.Confidence,
		SelectionReasoning:    &selection.Reasoning,
		CompletedTimestamp:    &now,
		ProcessingTimeSeconds: &elapsed,
		CreatedAt:             now,
		RealEstate:            sectors.RealEstate,
		Infrastructure:        sectors.Infrastructure,
		Industrial:            sectors.Industrial,
	}
	log.Info("analysis complete",
		zap.String("status", string(status)),
		zap.Float64("seconds", elapsed))
	return rec, nil
}

// searchCandidates queries the web for the domain and returns candidate URLs
// plus the result snippets, which serve as the text-only content fallback.
func (a *DomainAnalyzer) searchCandidates(ctx context.Context, domain string) ([]serper.OrganicResult, string, error) {
	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*serper.SearchResponse, error) {
		if err := a.searchLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		return a.search.Search(ctx, serper.SearchRequest{
			Query: fmt.Sprintf("%q company website", domain),
			Num:   a.searchNum,
		})
	})
	if err != nil {
		return nil, "", err
	}

	var sb strings.Builder
	for _, o := range resp.Organic {
		fmt.Fprintf(&sb, "%s\n%s\n%s\n\n", o.Title, o.Link, o.Snippet)
	}
	return resp.Organic, sb.String(), nil
}

// fetchContent tries the selected URL, then the bare domain homepage, then
// the search snippets. The returned status records which path produced the
// content; an empty string means every path failed.
func (a *DomainAnalyzer) fetchContent(ctx context.Context, domain, selectedURL string, snippets string) (string, model.ScrapingStatus) {
	if content := a.scrape(ctx, selectedURL); content != "" {
		return content, model.StatusSuccess
	}

	homepage := "https://" + domain
	if homepage != selectedURL {
		if content := a.scrape(ctx, homepage); content != "" {
			return content, model.StatusSuccessFallback
		}
	}

	if strings.TrimSpace(snippets) != "" {
		zap.L().Warn("falling back to search snippets", zap.String("domain", domain))
		return snippets, model.StatusSuccessText
	}
	return "", model.StatusFailed
}

func (a *DomainAnalyzer) scrape(ctx context.Context, url string) string {
	if url == "" {
		return ""
	}
	content, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (string, error) {
		return a.scraper.Scrape(ctx, url)
	})
	if err != nil {
		zap.L().Warn("scrape failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(content)
}

func (a *DomainAnalyzer) generate(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	return resilience.Do(ctx, a.retry, func(ctx context.Context) error {
		return a.llm.GenerateJSON(ctx, prompt, schema, out)
	})
}

func (a *DomainAnalyzer) selectURL(ctx context.Context, domain string, candidates []serper.OrganicResult) (urlSelection, error) {
	if len(candidates) == 0 {
		// Nothing to choose from; the homepage is the only guess we have.
		return urlSelection{
			URL:        "https://" + domain,
			Reasoning:  "No search results; defaulted to domain homepage",
			Confidence: 0.3,
		}, nil
	}

	var sel urlSelection
	if err := a.generate(ctx, selectionPrompt(domain, candidates), selectionSchema, &sel); err != nil {
		return urlSelection{}, err
	}
	if sel.URL == "" {
		sel.URL = "https://" + domain
	}
	return sel, nil
}

func (a *DomainAnalyzer) summarize(ctx context.Context, domain, content string) (string, error) {
	var out summaryResult
	if err := a.generate(ctx, summaryPrompt(domain, content), summarySchema, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (a *DomainAnalyzer) classifySectors(ctx context.Context, domain, content string) (sectorAnswers, error) {
	var out sectorResult
	if err := a.generate(ctx, sectorPrompt(domain, content), sectorSchema, &out); err != nil {
		return sectorAnswers{}, err
	}
	return sectorAnswers{
		RealEstate:     parseSectorAnswer(out.RealEstate),
		Infrastructure: parseSectorAnswer(out.Infrastructure),
		Industrial:     parseSectorAnswer(out.Industrial),
	}, nil
}

type urlSelection struct {
	URL        string  `json:"selected_url"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

type summaryResult struct {
	Summary string `json:"summary"`
}

type sectorResult struct {
	RealEstate     string `json:"real_estate"`
	Infrastructure string `json:"infrastructure"`
	Industrial     string `json:"industrial"`
}

type sectorAnswers struct {
	RealEstate     model.SectorAnswer
	Infrastructure model.SectorAnswer
	Industrial     model.SectorAnswer
}

// parseSectorAnswer maps free-form model output onto the closed answer set,
// defaulting to "Can't Say".
func parseSectorAnswer(s string) model.SectorAnswer {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return model.SectorYes
	case "no":
		return model.SectorNo
	}
	return model.SectorUnknown
}
