package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"crc-quiz-server/cases"
	"crc-quiz-server/exam"
)

// MaxCount caps the number of questions per exam.
const MaxCount = 100

// ErrInvalidCount is returned for a requested question count above MaxCount.
var ErrInvalidCount = errors.New("invalid question count")

// GenerateRequest describes a new exam.
type GenerateRequest struct {
	Strategy  string `json:"strategy"`
	Count     int    `json:"count"`
	Seed      *int64 `json:"seed,omitempty"`
	Indicator string `json:"indicator"`
	Phase     string `json:"phase"`
}

// Service ties the case catalog, the session store and the result store
// together into the exam lifecycle.
type Service struct {
	Catalog      *cases.Catalog
	Sessions     Store
	Results      Recorder
	DefaultCount int
	RetrainCount int
}

// Generate replaces the user's current session with a freshly assembled exam.
func (svc *Service) Generate(ctx context.Context, userID string, req GenerateRequest) (*Session, error) {
	count := req.Count
	if count <= 0 {
		count = svc.DefaultCount
	}
	if count > MaxCount {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidCount, count, MaxCount)
	}
	questions, err := exam.Assemble(req.Strategy, svc.Catalog.Table().Rows(), exam.Options{
		Count:     count,
		Seed:      req.Seed,
		Indicator: req.Indicator,
		Phase:     req.Phase,
	})
	if err != nil {
		return nil, err
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = exam.StrategyCoverage
	}
	s := New(userID, strategy, questions)
	s.Filter = req.Indicator
	s.Phase = req.Phase
	if err := svc.Sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	log.Printf("User %s started exam %s with %d questions", userID, s.ID, len(questions))
	return s, nil
}

// Retrain starts a plain exam restricted to one weak indicator.
func (svc *Service) Retrain(ctx context.Context, userID, indicatorFilter string) (*Session, error) {
	return svc.Generate(ctx, userID, GenerateRequest{
		Strategy:  exam.StrategyPlain,
		Count:     svc.RetrainCount,
		Indicator: indicatorFilter,
	})
}

// Current returns the user's session or ErrNoExam.
func (svc *Service) Current(ctx context.Context, userID string) (*Session, error) {
	return svc.Sessions.Get(ctx, userID)
}

// Answer records one answer on the current session.
func (svc *Service) Answer(ctx context.Context, userID string, index int, letter string) (*Session, error) {
	s, err := svc.Sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Answer(index, letter); err != nil {
		return nil, err
	}
	if err := svc.Sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Submit grades the current session. On *UnansweredError the session is left
// as it was.
func (svc *Service) Submit(ctx context.Context, userID string) (*Outcome, error) {
	s, err := svc.Sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	outcome, err := s.Submit(svc.Results)
	if err != nil {
		return nil, err
	}
	if err := svc.Sessions.Put(ctx, s); err != nil {
		log.Printf("Run %s for user %s saved but session update failed: %v", outcome.Record.RunID, userID, err)
	}
	return outcome, nil
}

// Clear drops the user's session, e.g. on logout.
func (svc *Service) Clear(ctx context.Context, userID string) error {
	return svc.Sessions.Delete(ctx, userID)
}
