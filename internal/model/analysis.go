package model

import "time"

// ScrapingStatus represents the outcome of the content acquisition step
// for one analyzed domain.
type ScrapingStatus string

const (
	StatusSuccess         ScrapingStatus = "success"
	StatusSuccessText     ScrapingStatus = "success_text"
	StatusSuccessFallback ScrapingStatus = "success_fallback"
	StatusFailed          ScrapingStatus = "failed"
	StatusError           ScrapingStatus = "error"
)

// Successful reports whether the status counts as a successful analysis.
func (s ScrapingStatus) Successful() bool {
	switch s {
	case StatusSuccess, StatusSuccessText, StatusSuccessFallback:
		return true
	}
	return false
}

// SectorAnswer is a three-valued sector classification.
type SectorAnswer string

const (
	SectorYes     SectorAnswer = "Yes"
	SectorNo      SectorAnswer = "No"
	SectorUnknown SectorAnswer = "Can't Say"
)

// AnalysisRecord is one enrichment result for an email's domain. Records are
// immutable once returned to a caller; every fresh (non-cache) analysis is
// written to the store exactly once.
type AnalysisRecord struct {
	OriginalEmail         string         `json:"original_email"`
	ExtractedDomain       string         `json:"extracted_domain"`
	SelectedURL           *string        `json:"selected_url,omitempty"`
	ScrapingStatus        ScrapingStatus `json:"scraping_status"`
	WebsiteSummary        *string        `json:"website_summary,omitempty"`
	ConfidenceScore       *float64       `json:"confidence_score,omitempty"`
	SelectionReasoning    *string        `json:"selection_reasoning,omitempty"`
	CompletedTimestamp    *time.Time     `json:"completed_timestamp,omitempty"`
	ProcessingTimeSeconds *float64       `json:"processing_time_seconds,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	FromCache             bool           `json:"from_cache"`
	RealEstate            SectorAnswer   `json:"real_estate"`
	Infrastructure        SectorAnswer   `json:"infrastructure"`
	Industrial            SectorAnswer   `json:"industrial"`
}

// ErrorRecord builds the synthetic record used when analysis of an email
// fails anywhere between domain extraction and persistence. Callers treat
// success and failure uniformly as values.
func ErrorRecord(email string, failure error) AnalysisRecord {
	now := time.Now().UTC()
	summary := "Error: " + failure.Error()
	zero := 0.0
	reasoning := "Processing failed"
	return AnalysisRecord{
		OriginalEmail:         email,
		ExtractedDomain:       "error",
		ScrapingStatus:        StatusError,
		WebsiteSummary:        &summary,
		ConfidenceScore:       &zero,
		SelectionReasoning:    &reasoning,
		CompletedTimestamp:    &now,
		ProcessingTimeSeconds: &zero,
		CreatedAt:             now,
		RealEstate:            SectorUnknown,
		Infrastructure:        SectorUnknown,
		Industrial:            SectorUnknown,
	}
}

// AnalysisStats are aggregate counts over all stored analyses.
type AnalysisStats struct {
	TotalAnalyses      int     `json:"total_analyses"`
	UniqueDomains      int     `json:"unique_domains"`
	AvgProcessingTime  float64 `json:"avg_processing_time"`
	AvgConfidenceScore float64 `json:"avg_confidence_score"`
	SuccessfulScrapes  int     `json:"successful_scrapes"`
	FailedScrapes      int     `json:"failed_scrapes"`
}

// CleaningReport describes what happened to each row of an uploaded table
// during email normalization.
type CleaningReport struct {
	TotalRows         int    `json:"total_rows"`
	EmailColumn       string `json:"email_column"`
	ValidEmails       int    `json:"valid_emails"`
	InvalidEmails     int    `json:"invalid_emails"`
	DuplicatesRemoved int    `json:"duplicates_removed"`
	EmptyRows         int    `json:"empty_rows"`
	AlreadyAnalyzed   int    `json:"already_analyzed"`
	NewEmails         int    `json:"new_emails"`
}

// BatchSummary is the final accounting of one batch run.
type BatchSummary struct {
	Total      int              `json:"total"`
	Processed  int              `json:"processed"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Duplicates int              `json:"duplicates"`
	Results    []AnalysisRecord `json:"results,omitempty"`
}
