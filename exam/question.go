package exam

import (
	"math/rand"

	"crc-quiz-server/indicator"
	"crc-quiz-server/models"
	"crc-quiz-server/utils"
)

const (
	rightNote = "正确项。"
	wrongNote = "常见误区：仅备注或口头说明、延后处理、CRC越权或单端修补。"
	whyRight  = "补齐原始依据并由研究者复核签名，纸质与系统同步修订并注明原因/日期，确保可追溯。"
	edgeNote  = "如涉主要终点/安全事件，应按方案触发上报流程。"
)

var remediationSteps = []string{"核对原始证据", "补填纸质并研究者签名日期", "EDC同步修订并填写修改原因", "卷宗归档与版本控制"}

// RowSeed derives the question seed from the row's identity fields, so the
// same row yields the same question in every process.
func RowSeed(row models.CaseRow) int64 {
	return utils.SeedFromParts(row.Case, row.Issue, row.Result)
}

// pickCategories draws three distinct categories out of the four.
func pickCategories(r *rand.Rand) []models.ErrorCategory {
	perm := r.Perm(len(models.ErrorCategories))
	picked := make([]models.ErrorCategory, 0, 3)
	for _, i := range perm[:3] {
		picked = append(picked, models.ErrorCategories[i])
	}
	return picked
}

// BuildQuestion turns one case row into a question numbered index.
func BuildQuestion(row models.CaseRow, index int) models.Question {
	code := indicator.Parse(row.Indicator)
	stem := MakeStem(row.Project, row.Phase, row.Issue)

	r := rand.New(rand.NewSource(RowSeed(row)))
	cats := pickCategories(r)

	// slot 0 is the correct option until the shuffle below
	raw := [4]string{CorrectSentence(row.Solution, row.Result)}
	for i, c := range cats {
		raw[i+1] = DistractorSentence(c)
	}
	balanced := BalanceOptions(raw, r)

	var texts [4]string
	var answer string
	for pos, src := range r.Perm(4) {
		texts[pos] = balanced[src]
		if src == 0 {
			answer = models.Letters[pos]
		}
	}

	whyWrong := make(map[string]string, len(models.Letters))
	for _, l := range models.Letters {
		if l == answer {
			whyWrong[l] = rightNote
		} else {
			whyWrong[l] = wrongNote
		}
	}

	return models.Question{
		Index:   index,
		Stem:    stem,
		Options: models.Options{A: texts[0], B: texts[1], C: texts[2], D: texts[3]},
		Answer:  answer,
		Metadata: models.QuestionMetadata{
			IndicatorID:     code.ID,
			IndicatorName:   code.Name,
			Phase:           row.Phase,
			Project:         row.Project,
			ErrorCategories: cats,
			FirstLevel:      indicator.FirstLevel(code.ID),
		},
		Explanation: models.Explanation{
			WhyRight: whyRight,
			HowTo:    append([]string(nil), remediationSteps...),
			WhyWrong: whyWrong,
			Edge:     edgeNote,
		},
	}
}
