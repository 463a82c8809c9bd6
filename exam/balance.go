package exam

import (
	"math/rand"
	"regexp"
	"strings"

	"crc-quiz-server/utils"
)

const (
	minTarget   = 36
	maxTarget   = 48
	lengthBand  = 12
	closeClause = "；同时完善记录"
)

var (
	fillerClauses = []string{"；同时记录讨论要点", "；同时保留沟通时间", "；同时更新工作清单"}
	intensifiers  = regexp.MustCompile(`立即|尽快|务必|严格|重点`)
	connectives   = strings.NewReplacer("并且", "并", "以及", "并", "随后", "同时")
)

// EnsureTwoClause strips terminal punctuation and appends a closing clause
// when s has no semicolon-delimited second clause.
func EnsureTwoClause(s string) string {
	s = trimEndPunct(s)
	if strings.Contains(s, "；") {
		return s
	}
	return s + closeClause
}

// BalanceTarget is the mean option length clamped into [36,48].
func BalanceTarget(opts [4]string) int {
	total := 0
	for _, o := range opts {
		total += utils.RuneLen(o)
	}
	target := total / len(opts)
	if target > maxTarget {
		target = maxTarget
	}
	if target < minTarget {
		target = minTarget
	}
	return target
}

// BalanceOptions pulls the four options toward a common length in a single pass.
// Long options lose intensifiers and their trailing clause; short ones get a
// filler clause drawn from r.
func BalanceOptions(opts [4]string, r *rand.Rand) [4]string {
	for i := range opts {
		opts[i] = EnsureTwoClause(opts[i])
	}
	target := BalanceTarget(opts)

	var out [4]string
	for i, s := range opts {
		n := utils.RuneLen(s)
		switch {
		case n > target+lengthBand:
			s = intensifiers.ReplaceAllString(s, "")
			s = connectives.Replace(s)
			if cut := strings.LastIndex(s, "；"); cut >= 0 {
				s = s[:cut] + closeClause
			}
		case n < target-lengthBand:
			s += fillerClauses[r.Intn(len(fillerClauses))]
		}
		out[i] = s
	}
	return out
}
