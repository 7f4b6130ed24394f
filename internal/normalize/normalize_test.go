package normalize

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-intel/internal/fetcher"
)

type stubChecker struct {
	fresh map[string]bool
	err   error
	got   []string
}

func (s *stubChecker) DomainsFresh(_ context.Context, domains []string, _ time.Duration) (map[string]bool, error) {
	s.got = domains
	return s.fresh, s.err
}

func emailTable(column string, values ...string) *fetcher.Table {
	t := &fetcher.Table{Columns: []string{"Name", column}}
	for _, v := range values {
		t.Rows = append(t.Rows, []string{"someone", v})
	}
	return t
}

func TestNormalizeCleansAndDedupes(t *testing.T) {
	table := emailTable("Contact Email",
		"  Foo@Bar.com ",
		"foo@bar.com",
		"bad-email",
		"",
		"mailto:x@y.co",
	)

	batch := New(nil, 0).Normalize(context.Background(), table)

	assert.Equal(t, []string{"foo@bar.com", "x@y.co"}, batch.Emails)
	assert.Equal(t, "Contact Email", batch.Report.EmailColumn)
	assert.Equal(t, 5, batch.Report.TotalRows)
	assert.Equal(t, 2, batch.Report.ValidEmails)
	assert.Equal(t, 1, batch.Report.InvalidEmails)
	assert.Equal(t, 1, batch.Report.EmptyRows)
	assert.Equal(t, 1, batch.Report.DuplicatesRemoved)
	assert.Equal(t, 2, batch.Report.NewEmails)
}

func TestNormalizeMissingMarkers(t *testing.T) {
	table := emailTable("email", "nan", "None", "NULL", "ok@example.com")

	batch := New(nil, 0).Normalize(context.Background(), table)

	assert.Equal(t, []string{"ok@example.com"}, batch.Emails)
	assert.Equal(t, 3, batch.Report.EmptyRows)
}

func TestNormalizeStripsAngleBrackets(t *testing.T) {
	table := emailTable("email", "<jane@acme.io>", "MailTo:Jo hn@acme.io")

	batch := New(nil, 0).Normalize(context.Background(), table)

	assert.Equal(t, []string{"jane@acme.io", "john@acme.io"}, batch.Emails)
}

func TestNormalizeFiltersFreshDomains(t *testing.T) {
	checker := &stubChecker{fresh: map[string]bool{"bar.com": true}}
	table := emailTable("email", "a@bar.com", "b@baz.org", "c@bar.com")

	batch := New(checker, time.Hour).Normalize(context.Background(), table)

	assert.Equal(t, []string{"b@baz.org"}, batch.Emails)
	assert.Equal(t, 2, batch.Report.AlreadyAnalyzed)
	assert.Equal(t, 1, batch.Report.NewEmails)
	assert.Equal(t, []string{"bar.com", "baz.org"}, checker.got)
}

func TestNormalizeCheckerFailureKeepsAll(t *testing.T) {
	checker := &stubChecker{err: eris.New("store down")}
	table := emailTable("email", "a@bar.com", "b@baz.org")

	batch := New(checker, time.Hour).Normalize(context.Background(), table)

	assert.Equal(t, []string{"a@bar.com", "b@baz.org"}, batch.Emails)
	assert.Equal(t, 0, batch.Report.AlreadyAnalyzed)
}

func TestDetectEmailColumn(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		wantIdx int
	}{
		{"exact", []string{"id", "email"}, 1},
		{"substring", []string{"id", "Work E-Mail Address"}, 1},
		{"contact", []string{"id", "Primary Contact"}, 1},
		{"fallback first", []string{"foo", "bar"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, name := DetectEmailColumn(tt.columns)
			assert.Equal(t, tt.wantIdx, idx)
			assert.Equal(t, tt.columns[tt.wantIdx], name)
		})
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "bar.com", Domain("foo@bar.com"))
	assert.Equal(t, "b@c.com", Domain("a@b@c.com"))
}

func TestNormalizeEmptyTable(t *testing.T) {
	batch := New(nil, 0).Normalize(context.Background(), &fetcher.Table{})
	require.NotNil(t, batch)
	assert.Empty(t, batch.Emails)
	assert.Equal(t, 0, batch.Report.TotalRows)
}
