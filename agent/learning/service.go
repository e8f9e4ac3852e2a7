// Package learning closes the predict/observe loop: every plan gets an
// outcome prediction logged up front, and once the real outcome is known
// the pair is distilled into a lesson and indexed for future retrieval.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	promptx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/prompt"
	retrievalx "github.com/nawinto99/Helia-Clinical-Agent-Core/retrieval"
)

var ErrLogNotFound = errors.New("learning log not found")

// Entry is one predict/observe cycle for a plan.
type Entry struct {
	ID               string    `json:"id"`
	CaseID           string    `json:"case_id"`
	PatientSummary   string    `json:"patient_summary"`
	ActionPlan       string    `json:"action_plan"`
	PredictedOutcome string    `json:"predicted_outcome"`
	ActualOutcome    string    `json:"actual_outcome,omitempty"`
	Lesson           string    `json:"lesson,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Service predicts plan outcomes and converts observed outcomes into
// retrievable lessons. Entries live in memory; lessons are durable through
// the retrieval store's reserved system partition.
type Service struct {
	gen       contractx.Generator
	retriever contractx.Retriever
	prompts   promptx.PromptSet
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry
}

func NewService(gen contractx.Generator, retriever contractx.Retriever) *Service {
	return &Service{
		gen:       gen,
		retriever: retriever,
		prompts:   promptx.LoadPromptSet(),
		logger:    log.With().Str("component", "learning").Logger(),
		now:       time.Now,
		entries:   make(map[string]*Entry),
	}
}

// Predict forecasts the outcome of a proposed plan and logs the prediction.
// Returns the entry so the caller can later record the actual outcome
// against its ID. A backend failure still logs the entry with a placeholder
// prediction: the observe half of the loop matters more than the forecast.
func (s *Service) Predict(ctx context.Context, caseID, patientSummary, planText string) (*Entry, error) {
	prediction := "Prediction unavailable."
	if s.gen != nil {
		resp, err := s.gen.Generate(ctx, contractx.GenerateRequest{
			Prompt: fmt.Sprintf(s.prompts.Prediction, patientSummary, planText),
			Tier:   contractx.TierLight,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("case_id", caseID).Msg("outcome prediction failed")
		} else {
			prediction = resp.Text
		}
	}

	entry := &Entry{
		ID:               uuid.NewString(),
		CaseID:           caseID,
		PatientSummary:   patientSummary,
		ActionPlan:       planText,
		PredictedOutcome: prediction,
		CreatedAt:        s.now().UTC(),
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	return entry, nil
}

// RecordOutcome stores the observed outcome, distills the prediction/
// reality pair into a lesson, and indexes the lesson under the system
// learning partition keyed by the situation so similar future situations
// retrieve it.
func (s *Service) RecordOutcome(ctx context.Context, logID, actualOutcome string) (string, error) {
	s.mu.Lock()
	entry, ok := s.entries[logID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: id=%s", ErrLogNotFound, logID)
	}

	if s.gen == nil {
		return "", fmt.Errorf("%w: lesson generation requires a backend", contractx.ErrModelUnavailable)
	}

	resp, err := s.gen.Generate(ctx, contractx.GenerateRequest{
		Prompt: fmt.Sprintf(s.prompts.Lesson, entry.PatientSummary, entry.ActionPlan, entry.PredictedOutcome, actualOutcome),
		Tier:   contractx.TierHeavy,
	})
	if err != nil {
		return "", fmt.Errorf("generate lesson: %w", err)
	}
	lesson := resp.Text

	s.mu.Lock()
	entry.ActualOutcome = actualOutcome
	entry.Lesson = lesson
	s.mu.Unlock()

	if s.retriever != nil {
		// index the situation, not the lesson: retrieval should trigger when
		// a similar context/action pair comes around again
		indexText := fmt.Sprintf("Context: %s\nAction: %s", entry.PatientSummary, entry.ActionPlan)
		metadata := map[string]any{
			"type":           "lesson",
			"case_id":        entry.CaseID,
			"lesson_content": lesson,
			"timestamp":      s.now().UTC().Format(time.RFC3339),
		}
		if err := s.retriever.Add(ctx, retrievalx.SystemLearningKey, indexText, metadata); err != nil {
			s.logger.Error().Err(err).Str("log_id", logID).Msg("lesson indexing failed")
		}
	}

	return lesson, nil
}

// Entry returns a logged cycle by ID.
func (s *Service) Entry(logID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[logID]
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", ErrLogNotFound, logID)
	}
	copied := *entry
	return &copied, nil
}
