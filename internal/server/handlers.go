package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/normalize"
)

type analyzeRequest struct {
	Email        string `json:"email"`
	ForceRefresh bool   `json:"force_refresh"`
}

type batchAnalyzeRequest struct {
	Emails       []string `json:"emails"`
	ForceRefresh bool     `json:"force_refresh"`
}

type batchAnalyzeResponse struct {
	Results               []model.AnalysisRecord `json:"results"`
	TotalProcessed        int                    `json:"total_processed"`
	Successful            int                    `json:"successful"`
	Failed                int                    `json:"failed"`
	FromCache             int                    `json:"from_cache"`
	ProcessingTimeSeconds float64                `json:"processing_time_seconds"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "Domain Intel API",
		"version":     "1.0.0",
		"description": "Email domain enrichment and sector classification",
		"endpoints": map[string]string{
			"analyze":       "POST /analyze - Analyze single email",
			"batch_analyze": "POST /analyze/batch - Analyze multiple emails",
			"domain":        "GET /domain/{domain} - Get cached domain results",
			"recent":        "GET /recent - Get recent results",
			"stats":         "GET /stats - Get analysis statistics",
			"health":        "GET /health - Health check",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store == nil || s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "service unhealthy: collaborators not initialized")
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check store ping failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service unhealthy: store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]string{
			"analyzer": "ready",
			"store":    "ready",
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.requireResolver(w) {
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := normalize.Clean(req.Email)
	if !normalize.Valid(email) {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}

	rec := s.resolver.Resolve(r.Context(), email, req.ForceRefresh)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireResolver(w) {
		return
	}

	var req batchAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Emails) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "emails must not be empty")
		return
	}
	if len(req.Emails) > s.cfg.MaxBatchEmails {
		writeError(w, http.StatusUnprocessableEntity,
			"too many emails: limit is "+strconv.Itoa(s.cfg.MaxBatchEmails))
		return
	}

	start := time.Now()
	resp := batchAnalyzeResponse{TotalProcessed: len(req.Emails)}
	for _, raw := range req.Emails {
		email := normalize.Clean(raw)
		rec := s.resolver.Resolve(r.Context(), email, req.ForceRefresh)
		resp.Results = append(resp.Results, rec)
		if rec.ScrapingStatus.Successful() {
			resp.Successful++
		} else {
			resp.Failed++
		}
		if rec.FromCache {
			resp.FromCache++
		}
	}
	resp.ProcessingTimeSeconds = time.Since(start).Seconds()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDomain(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	domain := chi.URLParam(r, "domain")
	limit := queryInt(r, "limit", 10)

	recs, err := s.store.LatestByDomain(r.Context(), domain, limit)
	if err != nil {
		zap.L().Error("domain lookup failed", zap.String("domain", domain), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	for i := range recs {
		recs[i].FromCache = true
	}
	writeJSON(w, http.StatusOK, records(recs))
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	limit := queryInt(r, "limit", 50)
	recs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		zap.L().Error("recent lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	for i := range recs {
		recs[i].FromCache = true
	}
	writeJSON(w, http.StatusOK, records(recs))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		zap.L().Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) requireResolver(w http.ResponseWriter) bool {
	if s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable,
			"analyzer not initialized - check SERPER_API_KEY, BRIGHTDATA_API_TOKEN, GOOGLE_API_KEY")
		return false
	}
	return true
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return false
	}
	return true
}

// records keeps empty result sets encoding as [] instead of null.
func records(recs []model.AnalysisRecord) []model.AnalysisRecord {
	if recs == nil {
		return []model.AnalysisRecord{}
	}
	return recs
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
