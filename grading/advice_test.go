package grading

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crc-quiz-server/models"
)

func TestTipsFor(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"", tipsUnnamed},
		{"知情同意管理", tipsConsent},
		{"icf 版本管理", tipsConsent},
		{"样本采集与运输", tipsSample},
		{"AE 记录", tipsAE},
		{"严重不良事件上报", tipsAE},
		{"源数据核查", tipsGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TipsFor(tt.name))
		})
	}
}

func TestWeakIndicatorsRanking(t *testing.T) {
	entries := []models.RunEntry{
		entry("B", "A", "1.1", "源数据核查", "筛选期"),
		entry("B", "A", "2.1", "样本管理", "治疗期"),
		entry("B", "A", "2.1", "样本管理", "随访期"),
		entry("B", "A", "3.1", "知情同意", ""),
		entry("A", "A", "9.9", "答对的指标", "治疗期"),
		entry("B", "A", "4.1", "AE报告", "治疗期"),
		entry("B", "A", "2.1", "样本管理", "随访期"),
	}
	weak := WeakIndicators(entries, TopWeak)
	require.Len(t, weak, 3)

	assert.Equal(t, "2.1", weak[0].ID)
	assert.Equal(t, 3, weak[0].Misses)
	assert.Equal(t, "随访期", weak[0].Phase)
	assert.Equal(t, tipsSample, weak[0].Tips)

	// ties keep encounter order
	assert.Equal(t, "1.1", weak[1].ID)
	assert.Equal(t, "3.1", weak[2].ID)
	assert.Equal(t, "未标注阶段", weak[2].Phase)
}

func TestWeakIndicatorPhaseTieKeepsFirstSeen(t *testing.T) {
	entries := []models.RunEntry{
		entry("B", "A", "1.1", "源数据核查", "筛选期"),
		entry("B", "A", "1.1", "源数据核查", "治疗期"),
	}
	weak := WeakIndicators(entries, TopWeak)
	require.Len(t, weak, 1)
	assert.Equal(t, "筛选期", weak[0].Phase)
}

func TestWeakIndicatorRetrainFilter(t *testing.T) {
	weak := WeakIndicators([]models.RunEntry{
		entry("B", "A", "", "沟通协调", "治疗期"),
		entry("B", "A", "5.2", "源数据", "治疗期"),
	}, TopWeak)
	require.Len(t, weak, 2)
	assert.Equal(t, "沟通协调", weak[0].RetrainFilter)
	assert.Equal(t, "5.2", weak[1].RetrainFilter)
}

func TestBuildAdvice(t *testing.T) {
	entries := []models.RunEntry{
		entry("A", "A", "1.1", "源数据核查", "筛选期", models.CategoryDelayed, models.CategoryVerbal, models.CategoryUnauthorized),
		entry("C", "A", "2.1", "样本管理", "治疗期", models.CategoryDelayed, models.CategoryVerbal, models.CategoryUntraceable),
		entry("D", "B", "2.1", "样本管理", "治疗期", models.CategoryVerbal, models.CategoryUnauthorized, models.CategoryUntraceable),
		entry("B", "B", "3.1", "知情同意", "随访期", models.CategoryDelayed, models.CategoryVerbal, models.CategoryUnauthorized),
	}
	advice := BuildAdvice(entries)

	assert.Equal(t, Score{Correct: 2, Total: 4, Points: 10, MaxPoints: 20}, advice.Score)
	assert.Equal(t, 2, advice.CategoryTally[models.CategoryVerbal])
	assert.True(t, strings.HasPrefix(advice.Summary, "总评：本次答对 2/4 题（10 分/20 分）。薄弱能力集中在：2.1 样本管理。"))
	assert.Contains(t, advice.Summary, categoryProse[models.CategoryDelayed])
	assert.Contains(t, advice.Summary, categoryProse[models.CategoryUntraceable])

	require.Len(t, advice.WeakIndicators, 1)
	p := advice.WeakIndicators[0].Paragraph
	assert.True(t, strings.HasPrefix(p, "2.1 样本管理：本次主要在 治疗期 暴露薄弱。"))
	assert.Contains(t, p, "“样本管理”")
	assert.Contains(t, p, strings.Join(tipsSample, "；")+"。 完成后再做 10 题专项小测巩固。")

	paras := advice.Paragraphs()
	require.Len(t, paras, 2)
	assert.Equal(t, advice.Summary, paras[0])
}

func TestBuildAdviceAllCorrect(t *testing.T) {
	advice := BuildAdvice([]models.RunEntry{
		entry("A", "A", "1.1", "源数据核查", "筛选期", models.CategoryDelayed),
	})
	assert.Equal(t, "总评：本次答对 1/1 题（5 分/5 分）。薄弱能力集中在：—。本次未见明显共性误区。", advice.Summary)
	assert.Empty(t, advice.WeakIndicators)
}

func TestBuildAdviceUnnamedIndicator(t *testing.T) {
	advice := BuildAdvice([]models.RunEntry{entry("B", "A", "", "", "")})
	require.Len(t, advice.WeakIndicators, 1)
	w := advice.WeakIndicators[0]
	assert.Equal(t, "未标注指标", w.Label())
	assert.Equal(t, tipsUnnamed, w.Tips)
	assert.Contains(t, w.Paragraph, "“相关指标”")
	assert.Contains(t, advice.Summary, "薄弱能力集中在：未标注指标。")
}
