package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// record is one CSV row keyed by normalised header name.
type record map[string]string

// normalizeHeader lower-cases a column name and collapses spaces, slashes and
// dashes to underscores, so "Account ID" and "Debit/Credit" resolve to
// "account_id" and "debit_credit".
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(strings.ToLower(h))
	replacer := strings.NewReplacer(" ", "_", "/", "_", "-", "_")
	return replacer.Replace(h)
}

// readTable reads path into records keyed by normalised headers. Rows with a
// different field count than the header are skipped, matching the tolerant
// posture of the rest of the loader.
func readTable(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = normalizeHeader(h)
	}

	out := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(headers) {
			continue
		}
		rec := make(record, len(headers))
		for i, cell := range row {
			rec[headers[i]] = strings.TrimSpace(cell)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r record) str(key string) string {
	return r[key]
}

// intval parses an integer cell; malformed cells degrade to zero.
func (r record) intval(key string) int {
	v := r[key]
	if v == "" {
		return 0
	}
	// Some exports serialise integers as "1984.0".
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// floatval parses a float cell; malformed cells degrade to zero.
func (r record) floatval(key string) float64 {
	f, err := strconv.ParseFloat(r[key], 64)
	if err != nil {
		return 0
	}
	return f
}

// optFloat parses a float cell; empty or malformed cells degrade to nil.
func (r record) optFloat(key string) *float64 {
	v := r[key]
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// dateLayouts are tried in order when parsing date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
}

// date parses a date cell; empty or malformed cells degrade to nil.
func (r record) date(key string) *time.Time {
	v := r[key]
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
