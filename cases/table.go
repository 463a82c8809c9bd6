package cases

import (
	"sort"
	"strings"

	"crc-quiz-server/models"
	"crc-quiz-server/utils"
)

// PageSizes are the page sizes the browser accepts.
var PageSizes = []int{10, 20, 30, 50, 100}

// DefaultPageSize is used when the requested size is not one of PageSizes.
const DefaultPageSize = 20

// Table is an immutable, loaded case table.
type Table struct {
	rows  []models.CaseRow
	blobs []string
}

// NewTable indexes rows for searching.
func NewTable(rows []models.CaseRow) *Table {
	t := &Table{
		rows:  append([]models.CaseRow(nil), rows...),
		blobs: make([]string, len(rows)),
	}
	for i, r := range rows {
		t.blobs[i] = strings.ToLower(strings.Join([]string{r.Case, r.Indicator, r.Project, r.Phase, r.Issue}, " "))
	}
	return t
}

// Len is the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the rows.
func (t *Table) Rows() []models.CaseRow {
	return append([]models.CaseRow(nil), t.rows...)
}

// Phases returns the distinct non-empty phases, sorted.
func (t *Table) Phases() []string {
	seen := make(map[string]bool)
	var phases []string
	for _, r := range t.rows {
		if r.Phase != "" && !seen[r.Phase] {
			seen[r.Phase] = true
			phases = append(phases, r.Phase)
		}
	}
	sort.Strings(phases)
	return phases
}

// BrowseQuery selects a page of the case browser.
type BrowseQuery struct {
	Query   string
	Phase   string
	Page    int
	PerPage int
}

// BrowseItem is a row with its 1-based position in the filtered view.
type BrowseItem struct {
	Ordinal int            `json:"ordinal"`
	Row     models.CaseRow `json:"row"`
}

// Page is one page of browse results.
type Page struct {
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Items   []BrowseItem `json:"items"`
}

// Browse filters by exact phase and by a case-insensitive substring of the
// search blob, then returns the requested page.
func (t *Table) Browse(q BrowseQuery) Page {
	perPage := q.PerPage
	if !utils.ContainsInt(PageSizes, perPage) {
		perPage = DefaultPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	needle := strings.ToLower(strings.TrimSpace(q.Query))

	var matched []int
	for i, r := range t.rows {
		if q.Phase != "" && r.Phase != q.Phase {
			continue
		}
		if needle != "" && !strings.Contains(t.blobs[i], needle) {
			continue
		}
		matched = append(matched, i)
	}

	out := Page{Total: len(matched), Page: page, PerPage: perPage, Items: []BrowseItem{}}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return out
	}
	end := min(start+perPage, len(matched))
	for pos := start; pos < end; pos++ {
		out.Items = append(out.Items, BrowseItem{Ordinal: pos + 1, Row: t.rows[matched[pos]]})
	}
	return out
}
