package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantLinks []string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"organic": [
					{"title": "Acme Corp", "link": "https://acme.com", "snippet": "Official site", "position": 1},
					{"title": "Acme on LinkedIn", "link": "https://linkedin.com/company/acme", "snippet": "Profile", "position": 2}
				]
			}`,
			wantLinks: []string{"https://acme.com", "https://linkedin.com/company/acme"},
		},
		{
			name:      "no_results",
			status:    http.StatusOK,
			body:      `{"organic": []}`,
			wantLinks: nil,
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"message": "rate limit exceeded"}`,
			wantErr: "unexpected status 429",
		},
		{
			name:    "unauthorized",
			status:  http.StatusForbidden,
			body:    `{"message": "invalid api key"}`,
			wantErr: "unexpected status 403",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			resp, err := client.Search(context.Background(), SearchRequest{Query: "acme.com company"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
			var links []string
			for _, o := range resp.Organic {
				links = append(links, o.Link)
			}
			assert.Equal(t, tt.wantLinks, links)
		})
	}
}

func TestSearchRequestBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "example.org", req.Query)
		assert.Equal(t, 10, req.Num)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Query: "example.org", Num: 10})
	require.NoError(t, err)
}
