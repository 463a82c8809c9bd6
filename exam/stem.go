package exam

import (
	"regexp"
	"strings"
)

const defaultIssue = "记录与要求不一致"

var (
	trailingStops = regexp.MustCompile(`[。.]+$`)
	repeatedStops = regexp.MustCompile(`。{2,}`)
)

// MakeStem builds the question stem from project, phase and issue text.
// Empty project or phase drop their clause.
func MakeStem(project, phase, issue string) string {
	project = strings.TrimSpace(project)
	phase = strings.TrimSpace(phase)
	issue = strings.TrimSpace(issue)

	var b strings.Builder
	if project != "" {
		b.WriteString("在“" + project + "”")
	} else {
		b.WriteString("在研究现场")
	}
	if phase != "" {
		b.WriteString("的" + phase + "中")
	} else {
		b.WriteString("中")
	}
	if issue = trailingStops.ReplaceAllString(issue, ""); issue == "" {
		issue = defaultIssue
	}
	b.WriteString("，" + issue + "。下一步最合适的处置是？")

	stem := b.String()
	for strings.Contains(stem, "阶段阶段") {
		stem = strings.ReplaceAll(stem, "阶段阶段", "阶段")
	}
	return repeatedStops.ReplaceAllString(stem, "。")
}
