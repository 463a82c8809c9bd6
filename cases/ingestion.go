// Package cases loads the case spreadsheet and serves the read paths over
// it: browsing, phase lists and keyword retrieval.
package cases

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"crc-quiz-server/models"
)

// Column headers of the case spreadsheet.
const (
	ColCase       = "案例"
	ColIndicator  = "能力指标"
	ColProject    = "试验项目"
	ColPhase      = "试验阶段"
	ColRole       = "岗位职责"
	ColIssue      = "问题"
	ColSolution   = "解决方法"
	ColResult     = "整改结果"
	ColReflection = "反思"
)

// Columns lists the headers in spreadsheet order.
var Columns = []string{ColCase, ColIndicator, ColProject, ColPhase, ColRole, ColIssue, ColSolution, ColResult, ColReflection}

// ErrNoSheet is returned for a workbook without worksheets.
var ErrNoSheet = errors.New("workbook has no sheets")

// LoadXLSX reads the first worksheet of the workbook at path. Missing columns
// are filled with empty strings and blank rows are skipped.
func LoadXLSX(path string) ([]models.CaseRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open case workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSheet)
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}
	rows := RowsFromGrid(grid)
	log.Printf("Loaded %d case rows from %s (sheet %q)", len(rows), path, sheets[0])
	return rows, nil
}

// RowsFromGrid maps a header row plus data rows onto CaseRows.
func RowsFromGrid(grid [][]string) []models.CaseRow {
	if len(grid) == 0 {
		return nil
	}
	index := make(map[string]int)
	for i, h := range grid[0] {
		h = cleanCell(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		log.Printf("Case sheet is missing columns %v, filling with blanks", missing)
	}

	rows := make([]models.CaseRow, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return cleanCell(rec[i])
		}
		row := models.CaseRow{
			Case:       cell(ColCase),
			Indicator:  norm.NFKC.String(cell(ColIndicator)),
			Project:    cell(ColProject),
			Phase:      cell(ColPhase),
			Role:       cell(ColRole),
			Issue:      cell(ColIssue),
			Solution:   cell(ColSolution),
			Result:     cell(ColResult),
			Reflection: cell(ColReflection),
		}
		if row == (models.CaseRow{}) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// cleanCell trims ideographic spaces as well as ASCII whitespace.
func cleanCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u3000", " "))
}
