package model

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapingStatusSuccessful(t *testing.T) {
	assert.True(t, StatusSuccess.Successful())
	assert.True(t, StatusSuccessText.Successful())
	assert.True(t, StatusSuccessFallback.Successful())
	assert.False(t, StatusFailed.Successful())
	assert.False(t, StatusError.Successful())
}

func TestErrorRecord(t *testing.T) {
	rec := ErrorRecord("jane@acme.com", eris.New("dns lookup failed"))

	assert.Equal(t, "jane@acme.com", rec.OriginalEmail)
	assert.Equal(t, "error", rec.ExtractedDomain)
	assert.Equal(t, StatusError, rec.ScrapingStatus)
	require.NotNil(t, rec.WebsiteSummary)
	assert.Equal(t, "Error: dns lookup failed", *rec.WebsiteSummary)
	require.NotNil(t, rec.ConfidenceScore)
	assert.Zero(t, *rec.ConfidenceScore)
	assert.Equal(t, SectorUnknown, rec.RealEstate)
	assert.Equal(t, SectorUnknown, rec.Infrastructure)
	assert.Equal(t, SectorUnknown, rec.Industrial)
	assert.False(t, rec.FromCache)
}
