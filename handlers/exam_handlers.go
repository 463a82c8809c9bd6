package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"crc-quiz-server/db"
	"crc-quiz-server/exam"
	"crc-quiz-server/grading"
	"crc-quiz-server/middleware"
	"crc-quiz-server/models"
	"crc-quiz-server/session"
)

// questionView is a question as sent to the client. Answer and Explanation
// stay empty until the exam is submitted.
type questionView struct {
	Index       int                     `json:"index"`
	Stem        string                  `json:"stem"`
	Options     models.Options          `json:"options"`
	Metadata    models.QuestionMetadata `json:"meta"`
	YourAnswer  string                  `json:"your_answer,omitempty"`
	Answer      string                  `json:"answer,omitempty"`
	Explanation *models.Explanation     `json:"explain,omitempty"`
}

type examView struct {
	ID         string         `json:"id"`
	Strategy   string         `json:"strategy"`
	Indicator  string         `json:"indicator,omitempty"`
	Phase      string         `json:"phase,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Submitted  bool           `json:"submitted"`
	Questions  []questionView `json:"questions"`
	Unanswered []int          `json:"unanswered"`
	Outcome    *outcomeView   `json:"outcome,omitempty"`
}

type outcomeView struct {
	Record     models.ResultRecord `json:"record"`
	Points     int                 `json:"points"`
	Advice     grading.Advice      `json:"advice"`
	Paragraphs []string            `json:"paragraphs"`
	Detail     []models.RunEntry   `json:"detail"`
}

func newOutcomeView(o *session.Outcome) *outcomeView {
	return &outcomeView{
		Record:     o.Record,
		Points:     o.Record.Points(),
		Advice:     o.Advice,
		Paragraphs: o.Advice.Paragraphs(),
		Detail:     o.Entries,
	}
}

func newExamView(s *session.Session) examView {
	v := examView{
		ID:         s.ID,
		Strategy:   s.Strategy,
		Indicator:  s.Filter,
		Phase:      s.Phase,
		CreatedAt:  s.CreatedAt,
		Submitted:  s.Submitted,
		Questions:  make([]questionView, 0, len(s.Questions)),
		Unanswered: s.Unanswered(),
	}
	if v.Unanswered == nil {
		v.Unanswered = []int{}
	}
	for _, q := range s.Questions {
		qv := questionView{
			Index:      q.Index,
			Stem:       q.Stem,
			Options:    q.Options,
			Metadata:   q.Metadata,
			YourAnswer: s.Answers[q.Index],
		}
		if s.Submitted {
			explain := q.Explanation
			qv.Answer = q.Answer
			qv.Explanation = &explain
		}
		v.Questions = append(v.Questions, qv)
	}
	if s.Submitted && s.Outcome != nil {
		v.Outcome = newOutcomeView(s.Outcome)
	}
	return v
}

// examError maps session and generation errors onto HTTP responses.
func examError(c *gin.Context, err error) {
	var unanswered *session.UnansweredError
	switch {
	case errors.As(err, &unanswered):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Please answer every question before submitting", "unanswered": unanswered.Indices})
	case errors.Is(err, session.ErrNoExam):
		c.JSON(http.StatusNotFound, gin.H{"error": "No exam in progress"})
	case errors.Is(err, session.ErrSubmitted):
		c.JSON(http.StatusConflict, gin.H{"error": "Exam already submitted"})
	case errors.Is(err, session.ErrUnknownQuestion), errors.Is(err, session.ErrInvalidLetter),
		errors.Is(err, session.ErrInvalidCount), errors.Is(err, exam.ErrUnknownStrategy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Exam error for %s: %v", middleware.UserID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Exam operation failed"})
	}
}

// StartExam generates a new exam, replacing any previous one.
// POST /api/v1/exam
func StartExam(exams *session.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req session.GenerateRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}
		s, err := exams.Generate(c.Request.Context(), middleware.UserID(c), req)
		if err != nil {
			examError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newExamView(s))
	}
}

// GetExam returns the current exam.
// GET /api/v1/exam
func GetExam(exams *session.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := exams.Current(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			examError(c, err)
			return
		}
		c.JSON(http.StatusOK, newExamView(s))
	}
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// RecordAnswer sets the answer for one question.
// PUT /api/v1/exam/answers/:index
func RecordAnswer(exams *session.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question index"})
			return
		}
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		s, err := exams.Answer(c.Request.Context(), middleware.UserID(c), index, req.Answer)
		if err != nil {
			examError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"index": index, "answer": s.Answers[index], "unanswered": len(s.Unanswered())})
	}
}

// SubmitExam grades the current exam and stores the run.
// POST /api/v1/exam/submit
func SubmitExam(exams *session.Service, audit db.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		outcome, err := exams.Submit(c.Request.Context(), userID)
		if err != nil {
			examError(c, err)
			return
		}
		audit.LogAdminEvent(c.Request.Context(), userID, db.ActionSubmit, outcome.Record.RunID,
			strconv.Itoa(outcome.Record.Score)+"/"+strconv.Itoa(outcome.Record.Total))
		c.JSON(http.StatusOK, newOutcomeView(outcome))
	}
}

type retrainRequest struct {
	IndicatorID   string `json:"indicator_id"`
	IndicatorName string `json:"indicator_name"`
}

// RetrainExam starts a short plain exam on one weak indicator.
// POST /api/v1/exam/retrain
func RetrainExam(exams *session.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req retrainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		filter := strings.TrimSpace(req.IndicatorID)
		if filter == "" {
			filter = strings.TrimSpace(req.IndicatorName)
		}
		if filter == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "indicator_id or indicator_name is required"})
			return
		}
		s, err := exams.Retrain(c.Request.Context(), middleware.UserID(c), filter)
		if err != nil {
			examError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newExamView(s))
	}
}
