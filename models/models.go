package models

import (
	"time"
)

// CaseRow is one record of the case spreadsheet. All fields are blank-filled strings.
type CaseRow struct {
	Case       string `json:"case"`       // 案例
	Indicator  string `json:"indicator"`  // 能力指标
	Project    string `json:"project"`    // 试验项目
	Phase      string `json:"phase"`      // 试验阶段
	Role       string `json:"role"`       // 岗位职责
	Issue      string `json:"issue"`      // 问题
	Solution   string `json:"solution"`   // 解决方法
	Result     string `json:"result"`     // 整改结果
	Reflection string `json:"reflection"` // 反思
}

// IndicatorCode is the parsed form of a capability-indicator string.
type IndicatorCode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorCategory labels a kind of procedural mistake a distractor dramatizes.
type ErrorCategory string

const (
	CategoryDelayed      ErrorCategory = "延后处理"
	CategoryVerbal       ErrorCategory = "口头代替"
	CategoryUnauthorized ErrorCategory = "越权修改"
	CategoryUntraceable  ErrorCategory = "不留痕或不同步"
)

// ErrorCategories is the closed set, in canonical order.
var ErrorCategories = []ErrorCategory{
	CategoryDelayed,
	CategoryVerbal,
	CategoryUnauthorized,
	CategoryUntraceable,
}

// Letters are the option labels in display order.
var Letters = []string{"A", "B", "C", "D"}

// Options holds the four option texts by letter.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the option text for a letter, or "" for an unknown letter.
func (o Options) Get(letter string) string {
	switch letter {
	case "A":
		return o.A
	case "B":
		return o.B
	case "C":
		return o.C
	case "D":
		return o.D
	}
	return ""
}

// QuestionMetadata carries the indicator and distractor data of a question.
type QuestionMetadata struct {
	IndicatorID     string          `json:"indicator_id"`
	IndicatorName   string          `json:"indicator_name"`
	Phase           string          `json:"phase"`
	Project         string          `json:"project"`
	ErrorCategories []ErrorCategory `json:"error_cats"`
	FirstLevel      string          `json:"first_level"`
}

// Explanation is the fixed rationale bundle attached to every question.
type Explanation struct {
	WhyRight string            `json:"why_right"`
	HowTo    []string          `json:"how_to"`
	WhyWrong map[string]string `json:"why_wrong"`
	Edge     string            `json:"edge"`
}

// Question is a generated single-answer multiple-choice question.
type Question struct {
	Index       int              `json:"index"`
	Stem        string           `json:"stem"`
	Options     Options          `json:"options"`
	Answer      string           `json:"answer"`
	Metadata    QuestionMetadata `json:"meta"`
	Explanation Explanation      `json:"explain"`
}

// RunEntry is one question of a persisted RunDetail.
type RunEntry struct {
	Index           int             `json:"index"`
	YourAnswer      string          `json:"your_answer"`
	Correct         string          `json:"correct"`
	Stem            string          `json:"stem"`
	A               string          `json:"A"`
	B               string          `json:"B"`
	C               string          `json:"C"`
	D               string          `json:"D"`
	IndicatorID     string          `json:"indicator_id"`
	IndicatorName   string          `json:"indicator_name"`
	Phase           string          `json:"phase"`
	ErrorCategories []ErrorCategory `json:"error_cats"`
	Explanation     Explanation     `json:"explain"`
}

// IsCorrect reports whether the chosen letter matches the key.
func (e RunEntry) IsCorrect() bool {
	return e.YourAnswer == e.Correct
}

// ResultRecord is one row of a user's summary log.
type ResultRecord struct {
	Time  time.Time `json:"time"`
	Score int       `json:"score"` // count of correct answers
	Total int       `json:"total"`
	Mode  string    `json:"mode"`
	RunID string    `json:"run_id"`
}

// Points is the numeric score, five per correct answer.
func (r ResultRecord) Points() int {
	return r.Score * 5
}

// Identity is what the auth collaborator hands to the rest of the system.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
}

// AdminEvent represents an entry in the audit log
type AdminEvent struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Notes     string    `json:"notes"`
}

// ErrorLog represents an entry in the error_logs table
type ErrorLog struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	FilePath     string    `json:"file_path"`
	LineNumber   int       `json:"line_number"`
	FieldName    string    `json:"field_name"`
	ErrorMessage string    `json:"error_message"`
}
