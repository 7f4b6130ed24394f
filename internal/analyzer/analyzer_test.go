package analyzer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/resilience"
	"github.com/sells-group/domain-intel/pkg/serper"
)

type stubSearch struct {
	resp *serper.SearchResponse
	err  error
	last serper.SearchRequest
}

func (s *stubSearch) Search(_ context.Context, req serper.SearchRequest) (*serper.SearchResponse, error) {
	s.last = req
	return s.resp, s.err
}

type stubScraper struct {
	// content maps URL to page body; absent URLs fail.
	content map[string]string
	calls   []string
}

func (s *stubScraper) Scrape(_ context.Context, url string) (string, error) {
	s.calls = append(s.calls, url)
	if body, ok := s.content[url]; ok {
		return body, nil
	}
	return "", eris.Errorf("scrape failed for %s", url)
}

// stubLLM answers each schema-typed call from canned JSON.
type stubLLM struct {
	selection string
	summary   string
	sectors   string
	err       error
}

func (s *stubLLM) GenerateJSON(_ context.Context, _ string, schema *genai.Schema, out any) error {
	if s.err != nil {
		return s.err
	}
	var payload string
	switch schema {
	case selectionSchema:
		payload = s.selection
	case summarySchema:
		payload = s.summary
	case sectorSchema:
		payload = s.sectors
	}
	return json.Unmarshal([]byte(payload), out)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

func searchResults() *serper.SearchResponse {
	return &serper.SearchResponse{Organic: []serper.OrganicResult{
		{Title: "Acme Corp", Link: "https://acme.com/about", Snippet: "Widgets since 1949", Position: 1},
		{Title: "Acme LinkedIn", Link: "https://linkedin.com/company/acme", Snippet: "Profile", Position: 2},
	}}
}

func defaultLLM() *stubLLM {
	return &stubLLM{
		selection: `{"selected_url": "https://acme.com/about", "reasoning": "Official site", "confidence": 0.9}`,
		summary:   `{"summary": "Acme manufactures widgets."}`,
		sectors:   `{"real_estate": "No", "infrastructure": "Can't Say", "industrial": "Yes"}`,
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	scraper := &stubScraper{content: map[string]string{
		"https://acme.com/about": "<html>Acme makes widgets</html>",
	}}
	a := New(Config{
		Search:  &stubSearch{resp: searchResults()},
		Scraper: scraper,
		LLM:     defaultLLM(),
		Retry:   fastRetry(),
	})

	rec, err := a.Analyze(context.Background(), "jane@acme.com")

	require.NoError(t, err)
	assert.Equal(t, "jane@acme.com", rec.OriginalEmail)
	assert.Equal(t, "acme.com", rec.ExtractedDomain)
	assert.Equal(t, model.StatusSuccess, rec.ScrapingStatus)
	require.NotNil(t, rec.SelectedURL)
	assert.Equal(t, "https://acme.com/about", *rec.SelectedURL)
	require.NotNil(t, rec.WebsiteSummary)
	assert.Equal(t, "Acme manufactures widgets.", *rec.WebsiteSummary)
	require.NotNil(t, rec.ConfidenceScore)
	assert.InDelta(t, 0.9, *rec.ConfidenceScore, 0.001)
	assert.Equal(t, model.SectorNo, rec.RealEstate)
	assert.Equal(t, model.SectorUnknown, rec.Infrastructure)
	assert.Equal(t, model.SectorYes, rec.Industrial)
	require.NotNil(t, rec.CompletedTimestamp)
	require.NotNil(t, rec.ProcessingTimeSeconds)
	assert.False(t, rec.FromCache)
}

func TestAnalyzeHomepageFallback(t *testing.T) {
	// Selected URL fails but the bare homepage scrapes fine.
	scraper := &stubScraper{content: map[string]string{
		"https://acme.com": "homepage content",
	}}
	a := New(Config{
		Search:  &stubSearch{resp: searchResults()},
		Scraper: scraper,
		LLM:     defaultLLM(),
		Retry:   fastRetry(),
	})

	rec, err := a.Analyze(context.Background(), "jane@acme.com")

	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccessFallback, rec.ScrapingStatus)
	assert.Equal(t, []string{"https://acme.com/about", "https://acme.com"}, scraper.calls)
}

func TestAnalyzeSnippetFallback(t *testing.T) {
	// Every scrape fails; search snippets carry the analysis.
	scraper := &stubScraper{}
	a := New(Config{
		Search:  &stubSearch{resp: searchResults()},
		Scraper: scraper,
		LLM:     defaultLLM(),
		Retry:   fastRetry(),
	})

	rec, err := a.Analyze(context.Background(), "jane@acme.com")

	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccessText, rec.ScrapingStatus)
}

func TestAnalyzeNoContentFails(t *testing.T) {
	a := New(Config{
		Search:  &stubSearch{resp: &serper.SearchResponse{}},
		Scraper: &stubScraper{},
		LLM:     defaultLLM(),
		Retry:   fastRetry(),
	})

	_, err := a.Analyze(context.Background(), "jane@acme.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

func TestAnalyzeSearchFailure(t *testing.T) {
	a := New(Config{
		Search:  &stubSearch{err: eris.New("serper down")},
		Scraper: &stubScraper{},
		LLM:     defaultLLM(),
		Retry:   fastRetry(),
	})

	_, err := a.Analyze(context.Background(), "jane@acme.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
}

func TestAnalyzeLLMFailure(t *testing.T) {
	scraper := &stubScraper{content: map[string]string{
		"https://acme.com/about": "content",
	}}
	a := New(Config{
		Search:  &stubSearch{resp: searchResults()},
		Scraper: scraper,
		LLM:     &stubLLM{err: eris.New("model unavailable")},
		Retry:   fastRetry(),
	})

	_, err := a.Analyze(context.Background(), "jane@acme.com")

	require.Error(t, err)
}

func TestSelectURLNoCandidates(t *testing.T) {
	a := New(Config{LLM: defaultLLM(), Retry: fastRetry()})

	sel, err := a.selectURL(context.Background(), "acme.com", nil)

	require.NoError(t, err)
	assert.Equal(t, "https://acme.com", sel.URL)
	assert.InDelta(t, 0.3, sel.Confidence, 0.001)
}

func TestSearchUsesConfiguredResultCap(t *testing.T) {
	search := &stubSearch{resp: &serper.SearchResponse{}}
	a := New(Config{Search: search, LLM: defaultLLM(), SearchResults: 3, Retry: fastRetry()})

	_, _, err := a.searchCandidates(context.Background(), "acme.com")

	require.NoError(t, err)
	assert.Equal(t, 3, search.last.Num)
	assert.Contains(t, search.last.Query, "acme.com")
	assert.Equal(t, 10, New(Config{}).searchNum)
}

func TestParseSectorAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want model.SectorAnswer
	}{
		{"Yes", model.SectorYes},
		{" yes ", model.SectorYes},
		{"NO", model.SectorNo},
		{"Can't Say", model.SectorUnknown},
		{"maybe", model.SectorUnknown},
		{"", model.SectorUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSectorAnswer(tt.in), "input %q", tt.in)
	}
}

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantTransient bool
	}{
		{"api_429", genai.APIError{Code: 429}, true},
		{"api_503", genai.APIError{Code: 503}, true},
		{"api_401", genai.APIError{Code: 401}, false},
		{"plain", eris.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(got))
		})
	}
}
