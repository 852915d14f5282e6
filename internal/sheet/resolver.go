// Package sheet finds the header row of a spreadsheet and maps logical
// fields onto column positions.
package sheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultScanRows    = 15
	DefaultMinCoverage = 0.6
)

var ErrUnresolved = errors.New("header row unresolved")

// UnresolvedError reports the best partial resolution when it falls below
// the coverage floor.
type UnresolvedError struct {
	Kind      Kind
	BestRow   int
	Resolved  int
	Required  int
	Missing   []string
	EmptyRows bool
}

func (e *UnresolvedError) Error() string {
	if e.EmptyRows {
		return fmt.Sprintf("%s header: no non-empty rows to scan", e.Kind)
	}
	return fmt.Sprintf("%s header: resolved %d of %d required columns (best row %d), missing %s",
		e.Kind, e.Resolved, e.Required, e.BestRow, strings.Join(e.Missing, ", "))
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

type Match struct {
	Field  string `json:"field"`
	Column int    `json:"column"`
	Score  int    `json:"score"`
	Header string `json:"header"`
}

// ColumnMap is built once per sheet and is read-only afterwards.
type ColumnMap struct {
	matches map[string]Match
}

func NewColumnMap(matches ...Match) ColumnMap {
	m := make(map[string]Match, len(matches))
	for _, match := range matches {
		m[match.Field] = match
	}
	return ColumnMap{matches: m}
}

func (m ColumnMap) Index(field string) (int, bool) {
	match, ok := m.matches[field]
	return match.Column, ok
}

func (m ColumnMap) Match(field string) (Match, bool) {
	match, ok := m.matches[field]
	return match, ok
}

func (m ColumnMap) Len() int {
	return len(m.matches)
}

// Cell returns the trimmed value of field in row, or "" when the field is
// unmapped or the row is short.
func (m ColumnMap) Cell(row []string, field string) string {
	idx, ok := m.Index(field)
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Matches returns the resolved fields ordered by column.
func (m ColumnMap) Matches() []Match {
	out := make([]Match, 0, len(m.matches))
	for _, match := range m.matches {
		out = append(out, match)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Column == out[j].Column {
			return out[i].Field < out[j].Field
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func (m ColumnMap) MarshalJSON() ([]byte, error) {
	return marshalMatches(m.Matches())
}

type Resolution struct {
	Kind      Kind      `json:"kind"`
	HeaderRow int       `json:"header_row"`
	Columns   ColumnMap `json:"columns"`
	Resolved  int       `json:"resolved"`
	Required  int       `json:"required"`
	Missing   []string  `json:"missing"`
}

func (r Resolution) Coverage() float64 {
	if r.Required == 0 {
		return 0
	}
	return float64(r.Resolved) / float64(r.Required)
}

type Resolver struct {
	ScanRows    int
	MinCoverage float64
}

func NewResolver(scanRows int, minCoverage float64) Resolver {
	if scanRows <= 0 {
		scanRows = DefaultScanRows
	}
	if minCoverage <= 0 || minCoverage > 1 {
		minCoverage = DefaultMinCoverage
	}
	return Resolver{ScanRows: scanRows, MinCoverage: minCoverage}
}

// Resolve picks the candidate row among the first ScanRows rows that maps
// the most schema fields, earliest row winning ties. When the best row is
// below the coverage floor the partial Resolution is still returned together
// with an *UnresolvedError so the caller can decide whether to force it.
func (r Resolver) Resolve(rows [][]string, schema Schema) (Resolution, error) {
	limit := r.ScanRows
	if limit <= 0 {
		limit = DefaultScanRows
	}
	if limit > len(rows) {
		limit = len(rows)
	}

	targets := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		targets[i] = Normalize(f.Label)
	}

	best := Resolution{Kind: schema.Kind, HeaderRow: -1, Required: len(schema.Fields)}
	for i := 0; i < limit; i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		headers := make([]string, len(rows[i]))
		for c, cell := range rows[i] {
			headers[c] = Normalize(cell)
		}

		var matches []Match
		var missing []string
		for fi, f := range schema.Fields {
			col, score := bestColumn(headers, targets[fi])
			if col < 0 || score > schema.Threshold {
				missing = append(missing, f.Name)
				continue
			}
			matches = append(matches, Match{Field: f.Name, Column: col, Score: score, Header: strings.TrimSpace(rows[i][col])})
		}
		if best.HeaderRow == -1 || len(matches) > best.Resolved {
			best.HeaderRow = i
			best.Columns = NewColumnMap(matches...)
			best.Resolved = len(matches)
			best.Missing = missing
		}
	}

	if best.HeaderRow == -1 {
		return best, &UnresolvedError{Kind: schema.Kind, BestRow: -1, Required: best.Required, EmptyRows: true}
	}
	if float64(best.Resolved) < r.MinCoverage*float64(best.Required)-1e-9 {
		return best, &UnresolvedError{
			Kind:     schema.Kind,
			BestRow:  best.HeaderRow,
			Resolved: best.Resolved,
			Required: best.Required,
			Missing:  best.Missing,
		}
	}
	return best, nil
}

// bestColumn returns the column whose header contains target (score 0) or
// else the column with the smallest edit distance.
func bestColumn(headers []string, target string) (int, int) {
	for c, h := range headers {
		if h != "" && strings.Contains(h, target) {
			return c, 0
		}
	}
	col, score := -1, 0
	for c, h := range headers {
		if h == "" {
			continue
		}
		d := fuzzy.LevenshteinDistance(h, target)
		if col == -1 || d < score {
			col, score = c, d
		}
	}
	return col, score
}

// Normalize applies NFKC, collapses whitespace and uppercases.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\ufeff", "")
	s = norm.NFKC.String(s)
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
