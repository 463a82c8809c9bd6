package exam

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"crc-quiz-server/models"
)

func TestCorrectSentence(t *testing.T) {
	tests := []struct {
		name     string
		solution string
		result   string
		want     string
	}{
		{
			name: "no phrase falls back to defaults",
			want: "应由研究者复核签名，并纸质与系统同步修订；同时依据原始记录完善留痕",
		},
		{
			name:     "phrases kept in canonical order",
			solution: "按访视窗口处理，并注明修改原因与日期。",
			want:     "应注明修改原因与日期，并按访视窗口处理；同时依据原始记录完善留痕",
		},
		{
			name:     "phrases found across solution and result",
			solution: "依据原始证据核对",
			result:   "由研究者复核签名。",
			want:     "应由研究者复核签名，并依据原始证据核对；同时依据原始记录完善留痕",
		},
		{
			name:     "at most two phrases",
			solution: "由研究者复核签名；纸质与系统同步修订；注明修改原因与日期",
			want:     "应由研究者复核签名，并纸质与系统同步修订；同时依据原始记录完善留痕",
		},
		{
			name:   "single match padded with first default",
			result: "按访视窗口处理",
			want:   "应按访视窗口处理，并由研究者复核签名；同时依据原始记录完善留痕",
		},
		{
			name:     "single default match padded with the next default",
			solution: "已由研究者复核签名",
			want:     "应由研究者复核签名，并纸质与系统同步修订；同时依据原始记录完善留痕",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CorrectSentence(tt.solution, tt.result))
		})
	}
}

func TestDistractorSentence(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range models.ErrorCategories {
		s := DistractorSentence(c)
		assert.NotEqual(t, fallbackDistractor, s, "category %s", c)
		assert.True(t, strings.HasPrefix(s, "应"))
		assert.Contains(t, s, "；")
		seen[s] = true
	}
	assert.Len(t, seen, len(models.ErrorCategories))
	assert.Equal(t, fallbackDistractor, DistractorSentence("未知类别"))
	assert.Equal(t, fallbackDistractor, DistractorSentence(""))
}
