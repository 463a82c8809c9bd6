package cases

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"crc-quiz-server/models"
	"crc-quiz-server/utils"
)

// DefaultHits is how many rows Retrieve returns when k <= 0.
const DefaultHits = 5

const (
	maxPoints     = 6
	pointWidth    = 120
	refWidth      = 80
	noHitsAdvice  = "建议：对照方案与SOP核对原始依据，按缺失/错误类型完成修订，并保留可追溯留痕。"
	answerPrefix  = "针对你的问题，可落实："
	answerClosing = "。同时确保纸质与系统一致、研究者复核签名、时间与原因可追溯。"
)

var tokenSplit = regexp.MustCompile(`[\s,，。；;]+`)

// Tokens splits a free-text query into lowercase keywords.
func Tokens(query string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(strings.ToLower(strings.TrimSpace(query)), -1) {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Retrieve scores every row by how many query keywords occur in its case,
// issue, solution, result and reflection text, and returns the best k rows.
// Rows without any hit are dropped; equal scores keep table order.
func (t *Table) Retrieve(query string, k int) []models.CaseRow {
	if k <= 0 {
		k = DefaultHits
	}
	tokens := Tokens(query)
	if len(tokens) == 0 {
		return nil
	}

	type scored struct {
		score int
		row   models.CaseRow
	}
	var hits []scored
	for _, r := range t.rows {
		bag := strings.ToLower(strings.Join([]string{r.Case, r.Issue, r.Solution, r.Result, r.Reflection}, " "))
		n := 0
		for _, tok := range tokens {
			if strings.Contains(bag, tok) {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, scored{n, r})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]models.CaseRow, 0, min(k, len(hits)))
	for i := 0; i < len(hits) && i < k; i++ {
		out = append(out, hits[i].row)
	}
	return out
}

// SynthesizeAnswer composes an answer from the first non-empty of solution,
// result and reflection of each hit.
func SynthesizeAnswer(hits []models.CaseRow) string {
	var points []string
	for _, r := range hits {
		for _, text := range []string{r.Solution, r.Result, r.Reflection} {
			if t := strings.TrimSpace(text); t != "" {
				points = append(points, utils.Shorten(t, pointWidth))
				break
			}
		}
		if len(points) == maxPoints {
			break
		}
	}
	if len(points) == 0 {
		return noHitsAdvice
	}
	return answerPrefix + strings.Join(points, "；") + answerClosing
}

// References lists the hits as numbered one-line citations.
func References(hits []models.CaseRow) []string {
	refs := make([]string, 0, len(hits))
	for i, r := range hits {
		refs = append(refs, fmt.Sprintf("%d. %s｜问题：%s｜解决：%s",
			i+1, r.Case, utils.Shorten(r.Issue, refWidth), utils.Shorten(r.Solution, refWidth)))
	}
	return refs
}
