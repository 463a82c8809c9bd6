package results

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"crc-quiz-server/models"
)

var summaryHeader = []string{"time", "score", "total", "mode", "run_id"}

// older logs were written with Chinese headers
var headerAliases = map[string]string{
	"时间": "time",
	"得分": "score",
	"题量": "total",
	"模式": "mode",
	"批次": "run_id",
}

func summaryRow(r models.ResultRecord) []string {
	return []string{
		r.Time.Format(TimeLayout),
		strconv.Itoa(r.Score),
		strconv.Itoa(r.Total),
		r.Mode,
		r.RunID,
	}
}

func appendSummary(path string, rec models.ResultRecord) error {
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(summaryHeader); err != nil {
			return err
		}
	}
	if err := w.Write(summaryRow(rec)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeSummary(path string, records []models.ResultRecord) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(summaryRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// ReadSummary parses the user's CSV log. Malformed lines are skipped.
func (s *Store) ReadSummary(userID string) ([]models.ResultRecord, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, summaryFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open summary: %w", err)
	}
	defer f.Close()
	return parseSummary(f)
}

func parseSummary(r io.Reader) ([]models.ResultRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read summary header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		cols[h] = i
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var records []models.ResultRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("Skipping summary line %d: %v", line, err)
			continue
		}
		score, err1 := strconv.Atoi(field(rec, "score"))
		total, err2 := strconv.Atoi(field(rec, "total"))
		if err1 != nil || err2 != nil {
			log.Printf("Skipping summary line %d: non-numeric score or total", line)
			continue
		}
		ts, _ := time.ParseInLocation(TimeLayout, field(rec, "time"), time.Local)
		records = append(records, models.ResultRecord{
			Time:  ts,
			Score: score,
			Total: total,
			Mode:  field(rec, "mode"),
			RunID: field(rec, "run_id"),
		})
	}
	return records, nil
}
