package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"crc-quiz-server/cases"
	"crc-quiz-server/models"
	"crc-quiz-server/results"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHashCodeCommand(t *testing.T) {
	out, err := run(t, "hash-code", "123456")
	require.NoError(t, err)
	assert.Equal(t, "sha256:8d969eef6ecad3c29a3a629280e686cf0c3f5d5a86aff3ca12020c923adc6c92\n", out)

	_, err = run(t, "hash-code")
	assert.Error(t, err)
}

func TestRebuildResultsCommand(t *testing.T) {
	dir := t.TempDir()
	store := results.NewStore(dir)
	for _, u := range []string{"u001", "u002"} {
		_, err := store.Save(u, []models.RunEntry{{Index: 1, YourAnswer: "A", Correct: "A"}})
		require.NoError(t, err)
	}

	out, err := run(t, "rebuild-results", "--all", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "u001: 1 runs")
	assert.Contains(t, out, "u002: 1 runs")
}

func TestPreviewCommand(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(cases.Columns))
	for i, c := range cases.Columns {
		header[i] = c
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i := 0; i < 5; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		row := []interface{}{"案例", "1.1 源数据", "项目A", "治疗期", "CRC", "原始记录缺失", "补录", "已整改", "及时记录"}
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "cases.xlsx")
	require.NoError(t, f.SaveAs(path))

	out, err := run(t, "preview", "--cases", path, "--count", "3", "--strategy", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "3 questions")
	assert.Equal(t, 3, strings.Count(out, "distractors:"))
	assert.Equal(t, 3, strings.Count(out, "  *"), "one answer marked per question")
}
