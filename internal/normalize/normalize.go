// Package normalize turns raw tabular uploads into ordered, deduplicated
// batches of valid email addresses.
package normalize

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/fetcher"
	"github.com/sells-group/domain-intel/internal/model"
)

// emailPattern accepts local@domain.tld with a two-letter-or-longer TLD.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// columnKeywords are matched as case-insensitive substrings against column
// names; the first matching column is taken as the email source.
var columnKeywords = []string{"email", "e-mail", "mail", "address", "contact"}

// DomainChecker answers which domains already have a fresh analysis record.
// The store satisfies this.
type DomainChecker interface {
	DomainsFresh(ctx context.Context, domains []string, maxAge time.Duration) (map[string]bool, error)
}

// Batch is an ordered, deduplicated set of validated emails plus the
// diagnostic report of what was dropped and why. Immutable after creation.
type Batch struct {
	Emails []string
	Report model.CleaningReport
}

// Normalizer cleans and validates email addresses from tables. checker is
// optional; when set, emails whose domain already has a record newer than
// maxAge are filtered out as a second stage.
type Normalizer struct {
	checker DomainChecker
	maxAge  time.Duration
}

// New creates a Normalizer. Pass a nil checker to skip the freshness stage.
func New(checker DomainChecker, maxAge time.Duration) *Normalizer {
	return &Normalizer{checker: checker, maxAge: maxAge}
}

// Normalize extracts and cleans emails from the detected email column:
// missing markers become empty, whitespace is stripped, values are
// lowercased, mailto: prefixes and angle brackets removed, then validated
// and deduplicated preserving first-occurrence order. The optional freshness
// stage never fails the call; on checker error the unfiltered set is kept.
func (n *Normalizer) Normalize(ctx context.Context, table *fetcher.Table) *Batch {
	report := model.CleaningReport{TotalRows: len(table.Rows)}

	colIdx, colName := DetectEmailColumn(table.Columns)
	report.EmailColumn = colName

	seen := make(map[string]struct{})
	var unique []string
	for _, raw := range table.Column(colIdx) {
		if isMissing(raw) {
			report.EmptyRows++
			continue
		}
		cleaned := Clean(raw)
		if !emailPattern.MatchString(cleaned) {
			report.InvalidEmails++
			continue
		}
		if _, dup := seen[cleaned]; dup {
			report.DuplicatesRemoved++
			continue
		}
		seen[cleaned] = struct{}{}
		unique = append(unique, cleaned)
	}
	report.ValidEmails = len(unique)

	kept := unique
	if n.checker != nil && len(unique) > 0 {
		kept = n.filterAnalyzed(ctx, unique, &report)
	}
	report.NewEmails = len(kept)

	return &Batch{Emails: kept, Report: report}
}

// filterAnalyzed drops emails whose domain the store already holds fresh.
// Failure here falls back to the unfiltered set; normalization itself never
// fails because of the store.
func (n *Normalizer) filterAnalyzed(ctx context.Context, emails []string, report *model.CleaningReport) []string {
	domainSet := make(map[string]struct{}, len(emails))
	domains := make([]string, 0, len(emails))
	for _, email := range emails {
		d := Domain(email)
		if _, ok := domainSet[d]; !ok {
			domainSet[d] = struct{}{}
			domains = append(domains, d)
		}
	}

	fresh, err := n.checker.DomainsFresh(ctx, domains, n.maxAge)
	if err != nil {
		zap.L().Warn("normalize: freshness check failed, keeping all emails", zap.Error(err))
		return emails
	}

	kept := make([]string, 0, len(emails))
	for _, email := range emails {
		if fresh[Domain(email)] {
			report.AlreadyAnalyzed++
			continue
		}
		kept = append(kept, email)
	}
	return kept
}

// DetectEmailColumn returns the index and name of the column to read emails
// from: the first column whose name contains an email-ish keyword, else the
// first column.
func DetectEmailColumn(columns []string) (int, string) {
	for i, col := range columns {
		lower := strings.ToLower(col)
		for _, kw := range columnKeywords {
			if strings.Contains(lower, kw) {
				return i, col
			}
		}
	}
	if len(columns) == 0 {
		return 0, ""
	}
	return 0, columns[0]
}

// Clean applies the per-value cleaning sequence to a raw cell.
func Clean(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.Join(strings.Fields(v), "")
	v = strings.ToLower(v)
	v = strings.TrimPrefix(v, "mailto:")
	v = strings.NewReplacer("<", "", ">", "").Replace(v)
	return v
}

// Valid reports whether a cleaned value is a syntactically acceptable email.
func Valid(email string) bool {
	return emailPattern.MatchString(email)
}

// Domain returns the part of a validated email after the first '@'.
func Domain(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return email
}

// isMissing reports whether a raw cell is a textual form of "no value".
func isMissing(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}
