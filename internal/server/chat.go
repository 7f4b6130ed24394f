package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/fetcher"
	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/normalize"
)

// emailInText finds the first email-shaped token inside free-form chat text.
var emailInText = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// maxUploadBytes caps uploaded spreadsheet size.
const maxUploadBytes = 10 << 20

type chatRequest struct {
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if !s.requireResolver(w) || !s.requireStore(w) {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusUnprocessableEntity, "session_id is required")
		return
	}
	typ := model.MessageTypeUser
	if req.MessageType == string(model.MessageTypeSystem) {
		typ = model.MessageTypeSystem
	}

	sess := s.hub.GetOrCreate(req.SessionID)
	sess.AppendMessage(req.Message, typ, nil)

	match := emailInText.FindString(req.Message)
	if match == "" {
		reply := sess.Notify("Please provide a valid email address or upload a CSV file for analysis.", nil)
		writeJSON(w, http.StatusOK, reply)
		return
	}
	email := strings.ToLower(strings.TrimSpace(match))
	domain := normalize.Domain(email)

	if fresh, err := s.store.DomainFresh(r.Context(), domain, s.cfg.RecentWindow); err == nil && fresh {
		reply := sess.Notify(fmt.Sprintf(
			"Email %s was already processed recently. Please share another email address.", email), nil)
		writeJSON(w, http.StatusOK, reply)
		return
	} else if err != nil {
		zap.L().Warn("chat recency check failed", zap.String("domain", domain), zap.Error(err))
	}

	sess.Notify(fmt.Sprintf("Processing email: %s...", email), nil)

	rec := s.resolver.Resolve(r.Context(), email, false)
	reply := sess.Notify(formatAnalysisReply(email, rec),
		map[string]any{"analysis_result": rec})
	writeJSON(w, http.StatusOK, reply)
}

func formatAnalysisReply(email string, rec model.AnalysisRecord) string {
	summary := ""
	if rec.WebsiteSummary != nil {
		summary = *rec.WebsiteSummary
	}
	confidence := 0.0
	if rec.ConfidenceScore != nil {
		confidence = *rec.ConfidenceScore
	}
	return fmt.Sprintf(`Analysis complete for %s!

**Domain**: %s
**Summary**: %s
**Confidence**: %.2f

**Sector Classifications**:
- Real Estate: %s
- Infrastructure: %s
- Industrial: %s

Feel free to submit another email or upload a CSV file!`,
		email, rec.ExtractedDomain, summary, confidence,
		rec.RealEstate, rec.Infrastructure, rec.Industrial)
}

// readUpload pulls the uploaded file out of the multipart form and parses it
// into a table.
func readUpload(r *http.Request) (*fetcher.Table, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file field is required: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return fetcher.ParseUpload(header.Filename, data)
}

func (s *Server) handleChatPreview(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	table, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	batch := s.normalizer.Normalize(r.Context(), table)

	preview := batch.Emails
	if len(preview) > 10 {
		preview = preview[:10]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid_emails": preview,
		"total_count":  batch.Report.NewEmails,
		"has_more":     batch.Report.NewEmails > 10,
		"stats":        batch.Report,
	})
}

func (s *Server) handleChatUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireResolver(w) || !s.requireStore(w) {
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.FormValue("session_id")
	}
	if sessionID == "" {
		writeError(w, http.StatusUnprocessableEntity, "session_id is required")
		return
	}
	sess := s.hub.GetOrCreate(sessionID)

	table, err := readUpload(r)
	if err != nil {
		sess.Notify(fmt.Sprintf("Error processing uploaded file: %s", err.Error()), nil)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	batch := s.normalizer.Normalize(r.Context(), table)
	report := batch.Report

	if len(batch.Emails) == 0 {
		msg := fmt.Sprintf(`No new email addresses found in the uploaded file.

Processing summary:
- Total rows: %d
- Email column used: %q
- Valid emails found: %d
- Invalid emails: %d
- Duplicates removed: %d
- Already in database: %d
- Empty rows: %d

All valid emails are already processed. Please check with new email addresses.`,
			report.TotalRows, report.EmailColumn, report.ValidEmails,
			report.InvalidEmails, report.DuplicatesRemoved,
			report.AlreadyAnalyzed, report.EmptyRows)
		sess.Notify(msg, nil)
		writeJSON(w, http.StatusOK, map[string]string{"error": msg})
		return
	}

	sess.Notify(fmt.Sprintf(`File processed successfully.

Processing summary:
- Total rows: %d
- Email column used: %q
- Valid emails found: %d
- Invalid emails: %d
- Duplicates removed: %d
- Already in database: %d
- New emails to process: %d
- Empty rows skipped: %d

Starting analysis for %d new emails...`,
		report.TotalRows, report.EmailColumn, report.ValidEmails,
		report.InvalidEmails, report.DuplicatesRemoved,
		report.AlreadyAnalyzed, report.NewEmails, report.EmptyRows,
		len(batch.Emails)), map[string]any{"cleaning_report": report})

	// The run outlives this request.
	s.scheduler.Launch(context.WithoutCancel(r.Context()), batch.Emails, sess)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Processing %d emails. You'll receive updates every 10 completions.", len(batch.Emails)),
		"total_emails": len(batch.Emails),
	})
}
