// Package results persists graded runs per user: one JSON detail file per
// run plus an append-only CSV summary log that can be rebuilt from the
// detail files at any time.
package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"crc-quiz-server/grading"
	"crc-quiz-server/models"
)

// ModeFast is the mode recorded for every submitted exam.
const ModeFast = "FAST"

// Layouts for run identifiers and summary timestamps.
const (
	RunIDLayout = "20060102_150405"
	TimeLayout  = "2006-01-02 15:04:05"
)

const (
	summaryFile = "results.csv"
	runsDir     = "runs"
	runPrefix   = "run_"
	runSuffix   = ".json"
)

var (
	// ErrRunNotFound means a run id has no detail file behind it.
	ErrRunNotFound = errors.New("history unavailable for this entry")
	// ErrInvalidUser is returned for user ids that cannot name a directory.
	ErrInvalidUser = errors.New("invalid user id")

	runIDPattern = regexp.MustCompile(`^\d{8}_\d{6}(_\d+)?$`)
)

// Store keeps result files under root/<user>/.
type Store struct {
	root string
	now  func() time.Time
	mu   sync.Mutex
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir, now: time.Now}
}

// Root is the directory the store writes under.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) userDir(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == "." || userID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidUser, userID)
	}
	return filepath.Join(s.root, url.PathEscape(userID)), nil
}

func runFileName(runID string) string {
	return runPrefix + runID + runSuffix
}

// ParseRunID recovers the submission time encoded in a run id.
func ParseRunID(runID string) (time.Time, error) {
	if !runIDPattern.MatchString(runID) {
		return time.Time{}, fmt.Errorf("malformed run id %q", runID)
	}
	return time.ParseInLocation(RunIDLayout, runID[:len(RunIDLayout)], time.Local)
}

// Save writes the run detail and appends its summary row. The detail file is
// written first so a summary row never points at a missing file. Once the
// detail is on disk the run is saved: a failed summary append is only logged,
// since RewriteSummary restores the log from the run files.
func (s *Store) Save(userID string, entries []models.RunEntry) (models.ResultRecord, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return models.ResultRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := filepath.Join(dir, runsDir)
	if err := os.MkdirAll(runs, 0o755); err != nil {
		return models.ResultRecord{}, fmt.Errorf("failed to create results directory: %w", err)
	}

	ts := s.now().Truncate(time.Second)
	runID := ts.Format(RunIDLayout)
	for n := 2; fileExists(filepath.Join(runs, runFileName(runID))); n++ {
		runID = fmt.Sprintf("%s_%d", ts.Format(RunIDLayout), n)
	}

	data, err := encodeRun(entries)
	if err != nil {
		return models.ResultRecord{}, err
	}
	if err := writeFileAtomic(filepath.Join(runs, runFileName(runID)), data); err != nil {
		return models.ResultRecord{}, fmt.Errorf("failed to write run %s: %w", runID, err)
	}

	score := grading.ScoreEntries(entries)
	rec := models.ResultRecord{
		Time:  ts,
		Score: score.Correct,
		Total: score.Total,
		Mode:  ModeFast,
		RunID: runID,
	}
	if err := appendSummary(filepath.Join(dir, summaryFile), rec); err != nil {
		log.Printf("Run %s for user %s saved but summary append failed (rebuild-results restores it): %v", runID, userID, err)
	}
	log.Printf("Saved run %s for user %s: %d/%d", runID, userID, rec.Score, rec.Total)
	return rec, nil
}

func encodeRun(entries []models.RunEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.RunEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("failed to encode run detail: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadRun reads one run detail. A missing or unreadable file is ErrRunNotFound.
func (s *Store) LoadRun(userID, runID string) ([]models.RunEntry, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}
	if !runIDPattern.MatchString(runID) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	entries, err := readRun(filepath.Join(dir, runsDir, runFileName(runID)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("%w: %v", ErrRunNotFound, err)
	}
	return entries, nil
}

func readRun(path string) ([]models.RunEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateRunDetail(data); err != nil {
		return nil, err
	}
	var entries []models.RunEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return entries, nil
}

// HasRun reports whether a detail file exists for runID.
func (s *Store) HasRun(userID, runID string) bool {
	dir, err := s.userDir(userID)
	if err != nil || !runIDPattern.MatchString(runID) {
		return false
	}
	return fileExists(filepath.Join(dir, runsDir, runFileName(runID)))
}

// Rebuild derives the summary from the run files alone. Files that fail to
// parse or validate are skipped.
func (s *Store) Rebuild(userID string) ([]models.ResultRecord, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}
	runs := filepath.Join(dir, runsDir)
	files, err := os.ReadDir(runs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var records []models.ResultRecord
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, runPrefix) || !strings.HasSuffix(name, runSuffix) {
			continue
		}
		runID := strings.TrimSuffix(strings.TrimPrefix(name, runPrefix), runSuffix)
		ts, err := ParseRunID(runID)
		if err != nil {
			log.Printf("Skipping run file %s: %v", name, err)
			continue
		}
		entries, err := readRun(filepath.Join(runs, name))
		if err != nil {
			log.Printf("Skipping run file %s: %v", name, err)
			continue
		}
		score := grading.ScoreEntries(entries)
		records = append(records, models.ResultRecord{
			Time:  ts,
			Score: score.Correct,
			Total: score.Total,
			Mode:  ModeFast,
			RunID: runID,
		})
	}
	sortRecords(records)
	return records, nil
}

// History returns the records shown to a user, oldest first. Rows rebuilt
// from run files win; the CSV log is only consulted when no run file exists,
// and its rows without a run file are dropped.
func (s *Store) History(userID string) ([]models.ResultRecord, error) {
	records, err := s.Rebuild(userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		records, err = s.ReadSummary(userID)
		if err != nil {
			return nil, err
		}
	}
	kept := records[:0]
	for _, r := range records {
		if s.HasRun(userID, r.RunID) {
			kept = append(kept, r)
		}
	}
	sortRecords(kept)
	return kept, nil
}

// RewriteSummary replaces the CSV log with rows rebuilt from the run files.
func (s *Store) RewriteSummary(userID string) (int, error) {
	records, err := s.Rebuild(userID)
	if err != nil {
		return 0, err
	}
	dir, err := s.userDir(userID)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create results directory: %w", err)
	}
	if err := writeSummary(filepath.Join(dir, summaryFile), records); err != nil {
		return 0, err
	}
	log.Printf("Rebuilt summary for user %s from %d runs", userID, len(records))
	return len(records), nil
}

// Users lists every user with a results directory.
func (s *Store) Users() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list results root: %w", err)
	}
	var users []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func sortRecords(records []models.ResultRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Time.Equal(records[j].Time) {
			return records[i].Time.Before(records[j].Time)
		}
		return runSeq(records[i].RunID) < runSeq(records[j].RunID)
	})
}

// runSeq is the collision counter of a run id: 1 for the bare timestamp,
// N for a "_N" suffix.
func runSeq(runID string) int {
	if len(runID) <= len(RunIDLayout)+1 {
		return 1
	}
	n, err := strconv.Atoi(runID[len(RunIDLayout)+1:])
	if err != nil {
		return 1
	}
	return n
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// into place, so readers never see a half-written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
