// Package brightdata provides a client for the Bright Data Web Unlocker API.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.brightdata.com"
	defaultZone    = "web_unlocker1"
)

// Client fetches page content through the Web Unlocker proxy network.
type Client interface {
	Scrape(ctx context.Context, url string) (string, error)
}

type unlockerRequest struct {
	Zone   string `json:"zone"`
	URL    string `json:"url"`
	Format string `json:"format"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithZone overrides the default unlocker zone.
func WithZone(zone string) Option {
	return func(c *httpClient) {
		c.zone = zone
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiToken string
	baseURL  string
	zone     string
	http     *http.Client
}

// NewClient creates a Bright Data API client.
func NewClient(apiToken string, opts ...Option) Client {
	c := &httpClient{
		apiToken: apiToken,
		baseURL:  defaultBaseURL,
		zone:     defaultZone,
		http: &http.Client{
			Timeout: 90 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Scrape fetches the raw content of url through the unlocker zone.
func (c *httpClient) Scrape(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(unlockerRequest{Zone: c.zone, URL: url, Format: "raw"})
	if err != nil {
		return "", eris.Wrap(err, "brightdata: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/request", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "brightdata: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "brightdata: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "brightdata: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("brightdata: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return string(respBody), nil
}
