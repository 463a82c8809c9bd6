package grading

import (
	"fmt"
	"sort"
	"strings"

	"crc-quiz-server/models"
)

// TopWeak is how many weak indicators get their own paragraph.
const TopWeak = 3

const (
	unlabelledIndicator = "未标注指标"
	unlabelledPhase     = "未标注阶段"
	noCommonMistakes    = "本次未见明显共性误区。"
)

var categoryProse = map[models.ErrorCategory]string{
	models.CategoryDelayed:      "【延后处理】纠偏不及时，易扩大时间窗/依从性风险。落地做法：为关键窗口与里程碑设置提醒，尽量实现当日闭环。",
	models.CategoryVerbal:       "【口头代替】记录不可追溯。落地做法：所有沟通转化为书面/系统留痕，统一标注日期与责任人。",
	models.CategoryUnauthorized: "【越权修改】CRC 代替研究者批注/修改不合规。落地做法：严格执行“研究者复核+签名”，并记录修改原因与日期。",
	models.CategoryUntraceable:  "【不留痕/不同步】纸质与系统不同步。落地做法：双端同步修订并完成版本控制。",
}

// tip sets keyed by what the indicator name mentions
var (
	tipsUnnamed = []string{"研究者复核签名", "纸质与系统同步修订", "注明原因与日期", "卷宗归档与版本控制"}
	tipsConsent = []string{"版本一致与签署先后", "谈话要点与撤回/再签记录", "签字日期与身份核验", "纸质/系统一致"}
	tipsSample  = []string{"采集-处理-保存-运输时间链完整", "标签与记录双核对", "温控/离心参数留痕", "交接与异常说明"}
	tipsAE      = []string{"定义与分级判定", "关联性与严重性评估", "时限内上报流程", "原始依据与记录一致性"}
	tipsGeneric = []string{"研究者复核签名", "纸质与系统同步修订", "注明原因与日期", "按方案与窗口处理"}
)

// WeakIndicator is one indicator the user missed, with its study plan.
type WeakIndicator struct {
	ID            string   `json:"indicator_id"`
	Name          string   `json:"indicator_name"`
	Misses        int      `json:"misses"`
	Phase         string   `json:"phase"`
	Tips          []string `json:"tips"`
	RetrainFilter string   `json:"retrain_filter"`
	Paragraph     string   `json:"paragraph"`
}

// Label is the indicator as shown to users.
func (w WeakIndicator) Label() string {
	name := w.Name
	if name == "" {
		name = unlabelledIndicator
	}
	return strings.TrimSpace(w.ID + " " + name)
}

// Advice is the feedback generated for one run.
type Advice struct {
	Score          Score                        `json:"score"`
	CategoryTally  map[models.ErrorCategory]int `json:"category_tally"`
	WeakIndicators []WeakIndicator              `json:"weak_indicators"`
	Summary        string                       `json:"summary"`
}

// TipsFor picks the study tips for an indicator name.
func TipsFor(name string) []string {
	upper := strings.ToUpper(name)
	var tips []string
	switch {
	case name == "":
		tips = tipsUnnamed
	case strings.Contains(name, "知情") || strings.Contains(upper, "ICF"):
		tips = tipsConsent
	case strings.Contains(name, "样本"):
		tips = tipsSample
	case strings.Contains(upper, "AE") || strings.Contains(name, "不良"):
		tips = tipsAE
	default:
		tips = tipsGeneric
	}
	return append([]string(nil), tips...)
}

type indicatorKey struct {
	id, name string
}

type indicatorStats struct {
	key        indicatorKey
	misses     int
	phases     map[string]int
	phaseOrder []string
}

func (s *indicatorStats) topPhase() string {
	best, bestN := unlabelledPhase, 0
	for _, ph := range s.phaseOrder {
		if n := s.phases[ph]; n > bestN {
			best, bestN = ph, n
		}
	}
	return best
}

// WeakIndicators groups wrong answers by indicator and returns the k most
// missed; ties keep encounter order.
func WeakIndicators(entries []models.RunEntry, k int) []WeakIndicator {
	var stats []*indicatorStats
	byKey := make(map[indicatorKey]*indicatorStats)
	for _, e := range entries {
		if e.IsCorrect() {
			continue
		}
		key := indicatorKey{e.IndicatorID, e.IndicatorName}
		st, ok := byKey[key]
		if !ok {
			st = &indicatorStats{key: key, phases: make(map[string]int)}
			byKey[key] = st
			stats = append(stats, st)
		}
		st.misses++
		ph := e.Phase
		if ph == "" {
			ph = unlabelledPhase
		}
		if st.phases[ph] == 0 {
			st.phaseOrder = append(st.phaseOrder, ph)
		}
		st.phases[ph]++
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].misses > stats[j].misses
	})
	if len(stats) > k {
		stats = stats[:k]
	}

	weak := make([]WeakIndicator, 0, len(stats))
	for _, st := range stats {
		w := WeakIndicator{
			ID:     st.key.id,
			Name:   st.key.name,
			Misses: st.misses,
			Phase:  st.topPhase(),
			Tips:   TipsFor(st.key.name),
		}
		w.RetrainFilter = w.ID
		if w.RetrainFilter == "" {
			w.RetrainFilter = w.Name
		}
		w.Paragraph = indicatorParagraph(w)
		weak = append(weak, w)
	}
	return weak
}

func indicatorParagraph(w WeakIndicator) string {
	keyword := w.Name
	if keyword == "" {
		keyword = "相关指标"
	}
	return fmt.Sprintf("%s：本次主要在 %s 暴露薄弱。建议复习路径：到『案例题库』中用关键字 “%s” 过滤该阶段的相关案例，先通读再对照 SOP/方案逐项核查；操作训练按以下要点完成：%s。 完成后再做 10 题专项小测巩固。",
		w.Label(), w.Phase, keyword, strings.Join(w.Tips, "；"))
}

func categoryText(tally map[models.ErrorCategory]int) string {
	var parts []string
	for _, c := range models.ErrorCategories {
		if tally[c] > 0 {
			parts = append(parts, categoryProse[c])
		}
	}
	if len(parts) == 0 {
		return noCommonMistakes
	}
	return strings.Join(parts, " ")
}

// BuildAdvice scores the entries and writes the summary and per-indicator paragraphs.
func BuildAdvice(entries []models.RunEntry) Advice {
	score := ScoreEntries(entries)
	tally := TallyCategories(entries)
	weak := WeakIndicators(entries, TopWeak)

	labels := make([]string, 0, len(weak))
	for _, w := range weak {
		labels = append(labels, w.Label())
	}
	weakList := strings.Join(labels, "、")
	if weakList == "" {
		weakList = "—"
	}

	return Advice{
		Score:          score,
		CategoryTally:  tally,
		WeakIndicators: weak,
		Summary: fmt.Sprintf("总评：本次答对 %d/%d 题（%d 分/%d 分）。薄弱能力集中在：%s。%s",
			score.Correct, score.Total, score.Points, score.MaxPoints, weakList, categoryText(tally)),
	}
}

// Paragraphs returns the summary followed by one paragraph per weak indicator.
func (a Advice) Paragraphs() []string {
	out := []string{a.Summary}
	for _, w := range a.WeakIndicators {
		out = append(out, w.Paragraph)
	}
	return out
}
