package handlers

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// TriageResult is the ESI-style outcome of a rule-based triage pass.
// Priority 1 is resuscitation, 5 is non-urgent.
type TriageResult struct {
	Priority          int    `json:"priority"`
	Rationale         string `json:"rationale"`
	RecommendedAction string `json:"recommended_action"`
}

// Nurse handles triage, vitals checks, monitoring setup, and initial
// assessments. Triage scoring is rule-based so it works with the backend
// offline; assessments use the backend when one is wired.
type Nurse struct {
	Binding
	deps Deps
}

func NewNurse(deps Deps) *Nurse {
	return &Nurse{
		Binding: Binding{
			name:        "NurseAgent",
			role:        "Nurse",
			description: "Responsible for patient triage, initial assessments, and vital sign monitoring.",
			capabilities: []contractx.TaskName{
				contractx.TaskTriage,
				contractx.TaskVitalsCheck,
				contractx.TaskMonitor,
				contractx.TaskInitialAssessment,
			},
		},
		deps: deps,
	}
}

func (n *Nurse) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	case contractx.TaskTriage:
		return n.triage(payload)
	case contractx.TaskVitalsCheck, contractx.TaskMonitor:
		return n.vitals(payload)
	case contractx.TaskInitialAssessment:
		return n.assess(ctx, payload, rc)
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}
}

func (n *Nurse) triage(payload contractx.Payload) (contractx.AgentResponse, error) {
	symptoms := payload.String("symptoms")
	if symptoms == "" {
		symptoms = payload.String("query")
	}
	result := TriagePriority(symptoms)
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: fmt.Sprintf("Triage priority %d: %s", result.Priority, result.Rationale),
		Data: map[string]any{
			"priority":           result.Priority,
			"rationale":          result.Rationale,
			"recommended_action": result.RecommendedAction,
		},
	}, nil
}

func (n *Nurse) vitals(payload contractx.Payload) (contractx.AgentResponse, error) {
	vitals := payload.String("vitals")
	if vitals == "" {
		return contractx.AgentResponse{
			Status:  contractx.StatusWarning,
			Message: "No vitals recorded for this patient yet.",
		}, nil
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Vitals recorded. Monitoring schedule active.",
		Data:    map[string]any{"vitals": vitals},
	}, nil
}

func (n *Nurse) assess(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	complaint := payload.String("symptoms")
	if complaint == "" {
		complaint = payload.String("query")
	}

	system := n.deps.systemInstruction(ctx, rc, complaint)
	system += "\nAct as a Senior Triage Nurse. Prioritize patient safety above all."

	prompt := fmt.Sprintf(
		"Perform an initial nursing assessment for the presenting complaint below. "+
			"Note red flags, immediate nursing interventions, and what to escalate to the physician.\n\nComplaint: %s",
		complaint)

	resp, ok, err := n.deps.generate(ctx, contractx.GenerateRequest{
		System: system,
		Prompt: prompt,
		Tier:   contractx.TierLight,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		// degrade to the rule-based score rather than going dark
		result := TriagePriority(complaint)
		return contractx.AgentResponse{
			Status:  contractx.StatusWarning,
			Message: fmt.Sprintf("AI assessment unavailable. Rule-based triage priority %d: %s", result.Priority, result.Rationale),
			Data:    map[string]any{"priority": result.Priority},
		}, nil
	}

	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: resp.Text,
	}, nil
}

// TriagePriority scores a symptom description on the ESI 1-5 scale using
// keyword bands. Deterministic; safe without any backend.
func TriagePriority(symptoms string) TriageResult {
	lower := strings.ToLower(symptoms)

	containsAny := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return true
			}
		}
		return false
	}

	result := TriageResult{Priority: 5, Rationale: "Non-urgent symptoms.", RecommendedAction: "Wait Room"}
	switch {
	case containsAny("cardiac arrest", "unresponsive", "not breathing", "severe bleeding"):
		result = TriageResult{Priority: 1, Rationale: "Immediate life-saving intervention required.", RecommendedAction: "Admit to Trauma"}
	case containsAny("chest pain", "stroke", "difficulty breathing", "confusion"):
		result = TriageResult{Priority: 2, Rationale: "High risk situation, rapid care needed.", RecommendedAction: "Admit to Trauma"}
	case containsAny("abdominal pain", "fracture", "fever > 40"):
		result = TriageResult{Priority: 3, Rationale: "Urgent, requires multiple resources.", RecommendedAction: "Wait Room"}
	case containsAny("sore throat", "minor cut", "sprain"):
		result = TriageResult{Priority: 4, Rationale: "Less urgent, requires one resource.", RecommendedAction: "Wait Room"}
	}
	return result
}
