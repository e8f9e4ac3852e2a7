package state

import (
	"errors"
	"strings"
	"time"
)

// PersonalizationState is the durable per-principal agent memory.
// Created lazily on first write; preferences merge (latest write per key
// wins), learning points append in insertion order and never rewrite.
type PersonalizationState struct {
	PrincipalID        string            `json:"principal_id"`
	Preferences        map[string]string `json:"preferences,omitempty"`
	LearningPoints     []string          `json:"learning_points,omitempty"`
	InteractionSummary string            `json:"interaction_summary,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrStateNotFound    = errors.New("personalization state not found")
	ErrNilState         = errors.New("personalization state is nil")
	ErrInvalidPrincipal = errors.New("principal id is empty")
)

func NewPersonalizationState(principalID string, now time.Time) *PersonalizationState {
	return &PersonalizationState{
		PrincipalID: principalID,
		Preferences: make(map[string]string, 4),
		UpdatedAt:   now.UTC(),
	}
}

func (s *PersonalizationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsurePreferences makes sure s.Preferences is initialized.
func (s *PersonalizationState) EnsurePreferences() {
	if s.Preferences == nil {
		s.Preferences = make(map[string]string, 4)
	}
}

// MergePreferences overlays prefs onto the state, most recent write wins.
func (s *PersonalizationState) MergePreferences(prefs map[string]string) {
	s.EnsurePreferences()
	for k, v := range prefs {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		s.Preferences[key] = v
	}
}

// AppendLearningPoint adds a point unless an identical one is already
// recorded. Order of first insertion is preserved.
func (s *PersonalizationState) AppendLearningPoint(point string) bool {
	trimmed := strings.TrimSpace(point)
	if trimmed == "" {
		return false
	}
	for _, existing := range s.LearningPoints {
		if existing == trimmed {
			return false
		}
	}
	s.LearningPoints = append(s.LearningPoints, trimmed)
	return true
}

// RecentLearningPoints returns the last n points in insertion order.
func (s *PersonalizationState) RecentLearningPoints(n int) []string {
	if n <= 0 || len(s.LearningPoints) == 0 {
		return nil
	}
	if len(s.LearningPoints) <= n {
		return s.LearningPoints
	}
	return s.LearningPoints[len(s.LearningPoints)-n:]
}

func (s *PersonalizationState) Validate() error {
	if s == nil {
		return ErrNilState
	}
	if strings.TrimSpace(s.PrincipalID) == "" {
		return ErrInvalidPrincipal
	}
	return nil
}
