package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/domain-intel/internal/resilience"
	"github.com/sells-group/domain-intel/pkg/serper"
)

// Generator produces schema-constrained JSON from a prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error
}

// GeminiConfig configures the Gemini-backed Generator.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the API base URL, mainly for tests.
	BaseURL string
}

// Gemini implements Generator against the Gemini API with structured output.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// GenerateJSON sends prompt with a response schema and unmarshals the
// structured reply into out.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	)
	if err != nil {
		return classifyErr(err)
	}
	if err := json.Unmarshal([]byte(resp.Text()), out); err != nil {
		return eris.Wrap(err, "gemini: parse structured json")
	}
	return nil
}

// classifyErr marks rate-limit and server-side API failures as transient so
// the retry layer backs off and tries again.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.Code) {
		return resilience.NewTransientError(err, apiErr.Code)
	}
	return err
}

var selectionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"selected_url": {Type: genai.TypeString},
		"reasoning":    {Type: genai.TypeString},
		"confidence":   {Type: genai.TypeNumber},
	},
	Required: []string{"selected_url", "reasoning", "confidence"},
}

var summarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {Type: genai.TypeString},
	},
	Required: []string{"summary"},
}

var sectorSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"real_estate":    {Type: genai.TypeString, Enum: []string{"Yes", "No", "Can't Say"}},
		"infrastructure": {Type: genai.TypeString, Enum: []string{"Yes", "No", "Can't Say"}},
		"industrial":     {Type: genai.TypeString, Enum: []string{"Yes", "No", "Can't Say"}},
	},
	Required: []string{"real_estate", "infrastructure", "industrial"},
}

func selectionPrompt(domain string, candidates []serper.OrganicResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You select the official company website for the domain %q from search results.

Prefer the company's own site over directories, social profiles, and news articles.
Return a JSON object with:
- selected_url: the best URL for learning what the company does
- reasoning: one sentence on why you chose it
- confidence: 0.0 to 1.0

Search results:

`, domain)
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, c.Title, c.Link, c.Snippet)
	}
	return sb.String()
}

func summaryPrompt(domain, content string) string {
	return fmt.Sprintf(`Summarize what the company behind the domain %q does, based on the website content below.
Cover: what the business does, its products or services, its customers, and anything notable about scale or location.
Write 3-5 sentences of plain prose. Return a JSON object with a single "summary" field.

Website content:

%s`, domain, content)
}

func sectorPrompt(domain, content string) string {
	return fmt.Sprintf(`Based on the website content below for the domain %q, answer whether the company operates in each sector.
Answer "Yes", "No", or "Can't Say" for each:
- real_estate: real estate development, brokerage, property management, or REITs
- infrastructure: construction or operation of transport, utility, energy, or telecom infrastructure
- industrial: manufacturing, industrial equipment, logistics, or heavy industry

Return a JSON object with fields real_estate, infrastructure, industrial.

Website content:

%s`, domain, content)
}
