package exam

import (
	"regexp"
	"strings"

	"crc-quiz-server/models"
)

// goodPractices are scanned in order when composing the correct option.
var goodPractices = []string{
	"由研究者复核签名",
	"纸质与系统同步修订",
	"注明修改原因与日期",
	"依据原始证据核对",
	"按访视窗口处理",
}

var distractorTemplates = map[models.ErrorCategory]string{
	models.CategoryDelayed:      "应暂缓修订并待下次集中处理，并保持现有记录不变；同时通过口头沟通提醒窗口",
	models.CategoryVerbal:       "应先口头告知研究者留意并记录讨论要点，并在必要时再考虑修订；同时不做纸质与系统同步",
	models.CategoryUnauthorized: "应由CRC直接在系统更正并定稿，并在备注说明原因；同时纸质记录日后再补",
	models.CategoryUntraceable:  "应在EDC备注一次并上传截图，并保持纸质记录原状；同时无需另行说明原因与日期",
}

const fallbackDistractor = "应简要记录情况并持续观察，并避免影响当前流程；同时不做额外处理"

var trailingPunct = regexp.MustCompile(`[。；;.\s]+$`)

func trimEndPunct(s string) string {
	return trailingPunct.ReplaceAllString(s, "")
}

// CorrectSentence composes the correct option from the good-practice phrases
// found in the solution and remediation text. The issue text is never quoted.
func CorrectSentence(solution, result string) string {
	base := trimEndPunct(solution + "；" + result)

	var found []string
	for _, p := range goodPractices {
		if strings.Contains(base, p) {
			found = append(found, p)
		}
	}
	// one match is padded with the first default phrase it does not repeat
	for _, p := range goodPractices {
		if len(found) >= 2 {
			break
		}
		if len(found) == 0 || found[0] != p {
			found = append(found, p)
		}
	}
	return "应" + found[0] + "，并" + found[1] + "；同时依据原始记录完善留痕"
}

// DistractorSentence returns the fixed template for a category, or a generic
// sentence for an unknown label.
func DistractorSentence(category models.ErrorCategory) string {
	if s, ok := distractorTemplates[category]; ok {
		return s
	}
	return fallbackDistractor
}
