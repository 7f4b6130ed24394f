package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-intel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresDomainFresh(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM analyses WHERE extracted_domain = \$1 AND created_at > \$2\)`).
		WithArgs("acme.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	fresh, err := s.DomainFresh(context.Background(), "acme.com", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDomainsFresh(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT extracted_domain FROM analyses WHERE extracted_domain = ANY\(\$1\) AND created_at > \$2`).
		WithArgs([]string{"a.com", "b.com"}, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"extracted_domain"}).AddRow("a.com"))

	fresh, err := s.DomainsFresh(context.Background(), []string{"a.com", "b.com"}, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh["a.com"])
	assert.False(t, fresh["b.com"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analyses`).
		WithArgs(pgxmock.AnyArg(), "info@acme.com", "acme.com", (*string)(nil),
			"success", (*string)(nil), (*float64)(nil), (*string)(nil),
			(*time.Time)(nil), (*float64)(nil),
			pgxmock.AnyArg(), "Yes", "No", "Can't Say").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := model.AnalysisRecord{
		OriginalEmail:   "info@acme.com",
		ExtractedDomain: "acme.com",
		ScrapingStatus:  model.StatusSuccess,
		RealEstate:      model.SectorYes,
		Infrastructure:  model.SectorNo,
		Industrial:      model.SectorUnknown,
	}
	require.NoError(t, s.Insert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analyses`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	err := s.Insert(context.Background(), model.AnalysisRecord{ExtractedDomain: "acme.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert analysis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestByDomain(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	summary := "a summary"
	rows := pgxmock.NewRows([]string{
		"original_email", "extracted_domain", "selected_url", "scraping_status",
		"website_summary", "confidence_score", "selection_reasoning",
		"completed_timestamp", "processing_time_seconds", "created_at",
		"real_estate", "infrastructure", "industrial",
	}).AddRow("info@acme.com", "acme.com", (*string)(nil), "success",
		&summary, (*float64)(nil), (*string)(nil),
		(*time.Time)(nil), (*float64)(nil), now,
		"Yes", "No", "Can't Say")

	mock.ExpectQuery(`SELECT .+ FROM analyses WHERE extracted_domain = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("acme.com", 1).
		WillReturnRows(rows)

	got, err := s.LatestByDomain(context.Background(), "acme.com", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusSuccess, got[0].ScrapingStatus)
	require.NotNil(t, got[0].WebsiteSummary)
	assert.Equal(t, "a summary", *got[0].WebsiteSummary)
	assert.Equal(t, model.SectorYes, got[0].RealEstate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WillReturnRows(pgxmock.NewRows([]string{
			"total", "domains", "avg_time", "avg_conf", "ok", "bad",
		}).AddRow(10, 7, 8.5, 0.7, 8, 2))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalAnalyses)
	assert.Equal(t, 7, stats.UniqueDomains)
	assert.Equal(t, 8, stats.SuccessfulScrapes)
	assert.Equal(t, 2, stats.FailedScrapes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
