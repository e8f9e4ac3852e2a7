package handlers

import (
	"context"
	"fmt"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// Emergency handles critical-path tasks: stabilization protocols, crash
// cart preparation, and rapid triage. Rapid triage reuses the rule-based
// scorer so it never depends on the backend.
type Emergency struct {
	Binding
	deps Deps
}

func NewEmergency(deps Deps) *Emergency {
	return &Emergency{
		Binding: Binding{
			name:        "EmergencyAgent",
			role:        "Emergency",
			description: "High-priority triage, rapid protocol generation, and critical alert management.",
			capabilities: []contractx.TaskName{
				contractx.TaskEmergencyProtocol,
				contractx.TaskCrashCartRecommendation,
				contractx.TaskRapidTriage,
			},
		},
		deps: deps,
	}
}

func (e *Emergency) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	case contractx.TaskEmergencyProtocol:
		return e.protocol(ctx, payload, rc)
	case contractx.TaskCrashCartRecommendation:
		return e.crashCart(ctx, payload, rc)
	case contractx.TaskRapidTriage:
		return e.rapidTriage(payload)
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}
}

func (e *Emergency) protocol(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	symptoms := payload.String("symptoms")
	vitals := payload.String("vitals")
	if vitals == "" {
		vitals = "Unknown"
	}

	prompt := fmt.Sprintf(
		"CRITICAL EMERGENCY:\nSymptoms: %s\nVitals: %s\n\n"+
			`Generate an immediate, step-by-step emergency stabilization protocol. `+
			`Return JSON: {"steps": ["step 1"], "equipment_needed": ["item 1"], "alert_level": "RED/YELLOW"}`,
		symptoms, vitals)

	resp, ok, err := e.deps.generate(ctx, contractx.GenerateRequest{
		System:     e.deps.systemInstruction(ctx, rc, symptoms),
		Prompt:     prompt,
		Tier:       contractx.TierHeavy,
		Structured: true,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		// an ER cannot wait for a backend: hand back the static ABC protocol
		return contractx.AgentResponse{
			Status:  contractx.StatusWarning,
			Message: "AI protocol generation offline. Follow standard ABC protocol: Airway, Breathing, Circulation. Escalate to attending immediately.",
		}, nil
	}

	protocol, err := decodeStructured(resp.Text)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Emergency stabilization protocol generated.",
		Data:    protocol,
	}, nil
}

func (e *Emergency) crashCart(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	scenario := payload.String("symptoms")
	if scenario == "" {
		scenario = payload.String("query")
	}

	prompt := fmt.Sprintf(
		"Scenario: %s\n\nList the crash cart drugs and equipment to stage for this scenario, "+
			"with doses for a standard adult. Order by priority.",
		scenario)

	resp, ok, err := e.deps.generate(ctx, contractx.GenerateRequest{
		System: e.deps.systemInstruction(ctx, rc, scenario),
		Prompt: prompt,
		Tier:   contractx.TierLight,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}
	return contractx.AgentResponse{Status: contractx.StatusSuccess, Message: resp.Text}, nil
}

func (e *Emergency) rapidTriage(payload contractx.Payload) (contractx.AgentResponse, error) {
	symptoms := payload.String("symptoms")
	if symptoms == "" {
		symptoms = payload.String("query")
	}
	result := TriagePriority(symptoms)

	status := contractx.StatusSuccess
	if result.Priority <= 2 {
		status = contractx.StatusWarning
	}
	return contractx.AgentResponse{
		Status:  status,
		Message: fmt.Sprintf("Rapid triage priority %d: %s", result.Priority, result.Rationale),
		Data: map[string]any{
			"priority":           result.Priority,
			"rationale":          result.Rationale,
			"recommended_action": result.RecommendedAction,
		},
	}, nil
}
