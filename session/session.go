// Package session holds a user's exam state: the generated questions, the
// answers given so far and, once submitted, the graded outcome.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"crc-quiz-server/grading"
	"crc-quiz-server/models"
	"crc-quiz-server/utils"
)

var (
	ErrNoExam          = errors.New("no exam in progress")
	ErrSubmitted       = errors.New("exam already submitted")
	ErrUnknownQuestion = errors.New("no such question")
	ErrInvalidLetter   = errors.New("answer must be one of A, B, C, D")
)

// UnansweredError rejects a submission and lists the questions still open.
type UnansweredError struct {
	Indices []int
}

func (e *UnansweredError) Error() string {
	parts := make([]string, len(e.Indices))
	for i, n := range e.Indices {
		parts[i] = fmt.Sprint(n)
	}
	return "unanswered questions: " + strings.Join(parts, ", ")
}

// Recorder persists a graded run; results.Store implements it.
type Recorder interface {
	Save(userID string, entries []models.RunEntry) (models.ResultRecord, error)
}

// Outcome is what a successful submission produced.
type Outcome struct {
	Record  models.ResultRecord `json:"record"`
	Entries []models.RunEntry   `json:"detail"`
	Advice  grading.Advice      `json:"advice"`
}

// Session is one exam attempt. It is created on generation, mutated by
// Answer and Submit, and replaced wholesale by the next generation.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Strategy  string            `json:"strategy"`
	Filter    string            `json:"filter,omitempty"`
	Phase     string            `json:"phase,omitempty"`
	Questions []models.Question `json:"questions"`
	Answers   map[int]string    `json:"answers"`
	Submitted bool              `json:"submitted"`
	CreatedAt time.Time         `json:"created_at"`
	Outcome   *Outcome          `json:"outcome,omitempty"`
}

// New starts a session over questions.
func New(userID, strategy string, questions []models.Question) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Strategy:  strategy,
		Questions: questions,
		Answers:   make(map[int]string),
		CreatedAt: time.Now(),
	}
}

func (s *Session) hasQuestion(index int) bool {
	for _, q := range s.Questions {
		if q.Index == index {
			return true
		}
	}
	return false
}

// Answer records the chosen letter for a question. Answers can be changed
// until the exam is submitted.
func (s *Session) Answer(index int, letter string) error {
	if s.Submitted {
		return ErrSubmitted
	}
	if !s.hasQuestion(index) {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, index)
	}
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if !utils.ContainsString(models.Letters, letter) {
		return fmt.Errorf("%w: got %q", ErrInvalidLetter, letter)
	}
	if s.Answers == nil {
		s.Answers = make(map[int]string)
	}
	s.Answers[index] = letter
	return nil
}

// Unanswered lists question indices without an answer, ascending.
func (s *Session) Unanswered() []int {
	var open []int
	for _, q := range s.Questions {
		if s.Answers[q.Index] == "" {
			open = append(open, q.Index)
		}
	}
	sort.Ints(open)
	return open
}

// Submit grades the exam and hands the run to rec. Nothing changes when a
// question is still open or the recorder fails.
func (s *Session) Submit(rec Recorder) (*Outcome, error) {
	if s.Submitted {
		return nil, ErrSubmitted
	}
	if len(s.Questions) == 0 {
		return nil, ErrNoExam
	}
	if open := s.Unanswered(); len(open) > 0 {
		return nil, &UnansweredError{Indices: open}
	}

	entries := grading.Reconcile(s.Questions, s.Answers)
	record, err := rec.Save(s.UserID, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}
	s.Submitted = true
	s.Outcome = &Outcome{
		Record:  record,
		Entries: entries,
		Advice:  grading.BuildAdvice(entries),
	}
	return s.Outcome, nil
}

// Clone returns a copy whose answer map can be mutated independently.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}
