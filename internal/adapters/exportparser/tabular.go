package exportparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"import-service/internal/core/domain"
	"io"
	"strings"
)

var (
	titleColumns   = []string{"title", "name"}
	noteColumns    = []string{"note", "comment"}
	urlColumns     = []string{"url"}
	addressColumns = []string{"address"}
)

type header struct {
	delimiter rune
	title     int
	notes     []int
	url       int
	address   int
}

// detectDelimiter выбирает между запятой и точкой с запятой по первой строке
func detectDelimiter(body []byte) rune {
	firstLine := body
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		firstLine = body[:i]
	}
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

func newCSVReader(body []byte, delimiter rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

func readHeader(body []byte) (*header, error) {
	delimiter := detectDelimiter(body)
	row, err := newCSVReader(body, delimiter).Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read header row: %v", domain.ErrParse, err)
	}

	columns := make(map[string]int, len(row))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}

	h := &header{
		delimiter: delimiter,
		title:     firstColumn(columns, titleColumns),
		url:       firstColumn(columns, urlColumns),
		address:   firstColumn(columns, addressColumns),
	}
	if h.title < 0 {
		return nil, fmt.Errorf("%w: header has no title column (%s)", domain.ErrParse, strings.Join(titleColumns, "/"))
	}
	for _, name := range noteColumns {
		if idx, ok := columns[name]; ok {
			h.notes = append(h.notes, idx)
		}
	}
	return h, nil
}

func firstColumn(columns map[string]int, names []string) int {
	for _, name := range names {
		if idx, ok := columns[name]; ok {
			return idx
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseTabular(body []byte) ([]domain.RawRecord, error) {
	h, err := readHeader(body)
	if err != nil {
		return nil, err
	}

	r := newCSVReader(body, h.delimiter)
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	records := make([]domain.RawRecord, 0)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}

		var note string
		for _, idx := range h.notes {
			if v := strings.TrimSpace(cell(row, idx)); v != "" {
				note = v
				break
			}
		}

		rec, ok := newRecord(cell(row, h.title), note, cell(row, h.url), cell(row, h.address), "", "", nil)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
