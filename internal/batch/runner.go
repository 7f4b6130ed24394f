// Package batch runs email batches in the background, resolving each email
// sequentially and streaming progress into the owning chat session.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/normalize"
)

// Resolver produces the analysis record for one email.
type Resolver interface {
	Resolve(ctx context.Context, email string, forceRefresh bool) model.AnalysisRecord
}

// RecencyChecker reports whether a domain was handled within the window.
type RecencyChecker interface {
	DomainFresh(ctx context.Context, domain string, maxAge time.Duration) (bool, error)
}

// Notifier receives progress messages and status updates. A session
// satisfies this.
type Notifier interface {
	Notify(content string, metadata map[string]any) model.Message
	UpdateStatus(status model.ProcessingStatus)
}

// Runner executes batches one email at a time.
type Runner struct {
	resolver      Resolver
	recency       RecencyChecker
	recentWindow  time.Duration
	progressEvery int
	summaryTail   int
}

// NewRunner creates a Runner. progressEvery controls the progress message
// cadence; summaryTail bounds how many trailing results the final summary
// carries.
func NewRunner(resolver Resolver, recency RecencyChecker, recentWindow time.Duration, progressEvery, summaryTail int) *Runner {
	if progressEvery <= 0 {
		progressEvery = 10
	}
	if summaryTail <= 0 {
		summaryTail = 10
	}
	return &Runner{
		resolver:      resolver,
		recency:       recency,
		recentWindow:  recentWindow,
		progressEvery: progressEvery,
		summaryTail:   summaryTail,
	}
}

// Run processes emails in order and returns the final accounting. Emails
// whose domain was handled within the recent window are skipped as
// duplicates without invoking the resolver. A panic while resolving one
// email fails that item only. Context cancellation stops the run after the
// current item; already-accumulated counts still appear in the summary.
func (r *Runner) Run(ctx context.Context, emails []string, notify Notifier) model.BatchSummary {
	total := len(emails)
	summary := model.BatchSummary{Total: total}
	log := zap.L().With(zap.Int("total", total))
	log.Info("batch started")

	notify.UpdateStatus(model.ProcessingStatus{
		Phase:   model.PhaseProcessing,
		Total:   total,
		Message: fmt.Sprintf("Processing %d emails", total),
	})

	for _, email := range emails {
		if ctx.Err() != nil {
			log.Warn("batch cancelled", zap.Int("processed", summary.Processed))
			break
		}

		if r.recentlyHandled(ctx, email) {
			summary.Duplicates++
		} else {
			rec := r.resolveSafely(ctx, email)
			summary.Results = append(summary.Results, rec)
			if rec.ScrapingStatus.Successful() {
				summary.Successful++
			} else {
				summary.Failed++
			}
		}
		summary.Processed++

		notify.UpdateStatus(model.ProcessingStatus{
			Phase:        model.PhaseProcessing,
			Progress:     summary.Processed,
			Total:        total,
			CurrentEmail: &email,
			Message:      fmt.Sprintf("Processed %d/%d", summary.Processed, total),
		})

		if summary.Processed%r.progressEvery == 0 || summary.Processed == total {
			notify.Notify(fmt.Sprintf(
				"Progress: %d/%d emails processed. %d successful, %d failed, %d duplicates skipped.",
				summary.Processed, total, summary.Successful, summary.Failed, summary.Duplicates), nil)
		}
	}

	if len(summary.Results) > r.summaryTail {
		summary.Results = summary.Results[len(summary.Results)-r.summaryTail:]
	}

	notify.UpdateStatus(model.ProcessingStatus{
		Phase:    model.PhaseCompleted,
		Progress: summary.Processed,
		Total:    total,
		Message:  "Batch complete",
		Results:  summary.Results,
	})
	notify.Notify(fmt.Sprintf(
		"Batch processing complete. Total processed: %d/%d, successful: %d, failed: %d, duplicates skipped: %d. "+
			"All results have been saved. You can submit more emails or upload another file.",
		summary.Processed, total, summary.Successful, summary.Failed, summary.Duplicates),
		map[string]any{"batch_results": summary})

	log.Info("batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Int("duplicates", summary.Duplicates))
	return summary
}

// recentlyHandled answers the duplicate check. Checker failure counts as
// not handled so the batch keeps moving.
func (r *Runner) recentlyHandled(ctx context.Context, email string) bool {
	domain := normalize.Domain(email)
	fresh, err := r.recency.DomainFresh(ctx, domain, r.recentWindow)
	if err != nil {
		zap.L().Warn("recency check failed", zap.String("domain", domain), zap.Error(err))
		return false
	}
	return fresh
}

// resolveSafely isolates a panic in the resolver to the current item.
func (r *Runner) resolveSafely(ctx context.Context, email string) (rec model.AnalysisRecord) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("panic while resolving email",
				zap.String("email", email), zap.Any("panic", p))
			rec = model.ErrorRecord(email, eris.Errorf("panic: %v", p))
		}
	}()
	return r.resolver.Resolve(ctx, email, false)
}
