package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// ParseCSV parses CSV bytes into a Table. The first row is the header.
// Variable field counts are tolerated; quoting is lax to accept
// spreadsheet exports.
func ParseCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var t Table
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		if first {
			first = false
			t.Columns = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if t.Columns == nil {
		return nil, eris.New("csv: empty file")
	}
	return &t, nil
}
