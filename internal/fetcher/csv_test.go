package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	data := []byte("Name,Contact Email\nAcme, info@acme.com \nBeta,hello@beta.io\n")

	table, err := ParseCSV(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Contact Email"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, " info@acme.com ", table.Cell(0, 1))
	assert.Equal(t, "hello@beta.io", table.Cell(1, 1))
}

func TestParseCSVRaggedRows(t *testing.T) {
	data := []byte("email\na@b.com\nc@d.com,extra,cells\n")

	table, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	// Short rows read as empty beyond their length.
	assert.Equal(t, "", table.Cell(0, 2))
	assert.Equal(t, "cells", table.Cell(1, 2))
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, table.Column(0))
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestParseUploadUnsupported(t *testing.T) {
	_, err := ParseUpload("emails.pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestParseUploadCSVByExtension(t *testing.T) {
	table, err := ParseUpload("Emails.CSV", []byte("email\nx@y.co\n"))
	require.NoError(t, err)
	assert.Equal(t, "x@y.co", table.Cell(0, 0))
}
