package exam

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"

	"crc-quiz-server/indicator"
	"crc-quiz-server/models"
)

// Strategy names accepted by Assemble.
const (
	StrategyCoverage = "coverage"
	StrategyPlain    = "plain"
)

// Default seeds used when the caller supplies none.
const (
	DefaultPlainSeed    int64 = 2025
	DefaultCoverageSeed int64 = 2026
)

const catchAllBucket = "X"

var coverageLevels = map[string]bool{"1": true, "2": true, "3": true, "4": true, "5": true, "6": true, "7": true}

// ErrUnknownStrategy is returned by Assemble for a strategy it does not know.
var ErrUnknownStrategy = errors.New("unknown exam strategy")

// Options controls row selection for both strategies.
type Options struct {
	Count     int
	Seed      *int64
	Indicator string // substring of the raw indicator text
	Phase     string // exact phase
}

func (o Options) seed(def int64) int64 {
	if o.Seed != nil {
		return *o.Seed
	}
	return def
}

// SeedPtr is a convenience for filling Options.Seed.
func SeedPtr(v int64) *int64 {
	return &v
}

// filterRows applies the indicator and phase filters. An empty result falls
// back to the whole table.
func filterRows(rows []models.CaseRow, opts Options) []models.CaseRow {
	view := make([]models.CaseRow, 0, len(rows))
	for _, row := range rows {
		if opts.Indicator != "" && !strings.Contains(row.Indicator, opts.Indicator) {
			continue
		}
		if opts.Phase != "" && row.Phase != opts.Phase {
			continue
		}
		view = append(view, row)
	}
	if len(view) == 0 {
		return rows
	}
	return view
}

func buildAll(rows []models.CaseRow) []models.Question {
	questions := make([]models.Question, 0, len(rows))
	for i, row := range rows {
		questions = append(questions, BuildQuestion(row, i+1))
	}
	return questions
}

// Generate samples min(Count, available) rows uniformly at random and builds
// one question per row, numbered in sample order.
func Generate(rows []models.CaseRow, opts Options) []models.Question {
	r := rand.New(rand.NewSource(opts.seed(DefaultPlainSeed)))
	view := filterRows(rows, opts)
	k := min(opts.Count, len(view))
	if k <= 0 {
		return nil
	}
	picked := make([]models.CaseRow, 0, k)
	for _, i := range r.Perm(len(view))[:k] {
		picked = append(picked, view[i])
	}
	return buildAll(picked)
}

// GenerateCoverage buckets rows by first-level indicator code and takes one
// row per bucket per round, so an exam touches as many top-level categories
// as possible before repeating one.
func GenerateCoverage(rows []models.CaseRow, opts Options) []models.Question {
	r := rand.New(rand.NewSource(opts.seed(DefaultCoverageSeed)))
	view := filterRows(rows, opts)
	k := min(opts.Count, len(view))
	if k <= 0 {
		return nil
	}

	buckets := make(map[string][]models.CaseRow)
	for _, row := range view {
		level := indicator.FirstLevel(indicator.Parse(row.Indicator).ID)
		if !coverageLevels[level] {
			level = catchAllBucket
		}
		buckets[level] = append(buckets[level], row)
	}

	order := make([]string, 0, len(buckets))
	for level := range buckets {
		order = append(order, level)
	}
	sort.Slice(order, func(i, j int) bool {
		if (order[i] == catchAllBucket) != (order[j] == catchAllBucket) {
			return order[j] == catchAllBucket
		}
		return order[i] < order[j]
	})
	for _, level := range order {
		b := buckets[level]
		r.Shuffle(len(b), func(i, j int) {
			b[i], b[j] = b[j], b[i]
		})
	}

	picked := make([]models.CaseRow, 0, k)
	for round := 0; len(picked) < k; round++ {
		took := false
		for _, level := range order {
			if len(picked) >= k {
				break
			}
			if round < len(buckets[level]) {
				picked = append(picked, buckets[level][round])
				took = true
			}
		}
		if !took {
			break
		}
	}
	return buildAll(picked)
}

// Assemble dispatches to the named strategy; an empty name means coverage.
func Assemble(strategy string, rows []models.CaseRow, opts Options) ([]models.Question, error) {
	var questions []models.Question
	switch strategy {
	case "", StrategyCoverage:
		questions = GenerateCoverage(rows, opts)
	case StrategyPlain:
		questions = Generate(rows, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	log.Printf("Assembled %d questions (strategy=%q indicator=%q phase=%q) from %d rows",
		len(questions), strategy, opts.Indicator, opts.Phase, len(rows))
	return questions, nil
}
