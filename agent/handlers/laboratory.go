package handlers

import (
	"context"
	"fmt"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// Laboratory analyzes lab panels and validates result sets against their
// reference ranges.
type Laboratory struct {
	Binding
	deps Deps
}

func NewLaboratory(deps Deps) *Laboratory {
	return &Laboratory{
		Binding: Binding{
			name:        "LaboratoryAgent",
			role:        "Laboratory",
			description: "Analyzes lab results, flags abnormalities, and suggests follow-up tests.",
			capabilities: []contractx.TaskName{
				contractx.TaskAnalyzeLabs,
				contractx.TaskValidateResults,
			},
		},
		deps: deps,
	}
}

func (l *Laboratory) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	case contractx.TaskAnalyzeLabs:
		return l.analyze(ctx, payload, rc)
	case contractx.TaskValidateResults:
		return l.validate(ctx, payload, rc)
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}
}

func (l *Laboratory) analyze(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	labData := payload.String("lab_results")
	if labData == "" {
		return contractx.AgentResponse{
			Status:  contractx.StatusWarning,
			Message: "No lab results found in case record.",
		}, nil
	}

	prompt := fmt.Sprintf(
		"ACT AS: Clinical Pathologist.\nTASK: Analyze these lab results: %s\n\n"+
			`Return JSON with fields: "abnormalities" (list of {"test", "flag": "High"|"Low"|"Critical", "explanation"}), `+
			`"clinical_significance" (summary string), "recommended_followup" (list of strings).`,
		labData)

	resp, ok, err := l.deps.generate(ctx, contractx.GenerateRequest{
		System:     l.deps.systemInstruction(ctx, rc, labData),
		Prompt:     prompt,
		Tier:       contractx.TierLight,
		Structured: true,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}

	analysis, err := decodeStructured(resp.Text)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Lab analysis complete.",
		Data:    analysis,
	}, nil
}

func (l *Laboratory) validate(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	labData := payload.String("lab_results")
	if labData == "" {
		return contractx.AgentResponse{
			Status:  contractx.StatusWarning,
			Message: "No lab results to validate.",
		}, nil
	}

	prompt := fmt.Sprintf(
		"Validate these lab values against standard adult reference ranges. "+
			"Flag physiologically implausible values (possible transcription or unit errors) separately from true abnormals.\n\nResults: %s",
		labData)

	resp, ok, err := l.deps.generate(ctx, contractx.GenerateRequest{
		System: l.deps.systemInstruction(ctx, rc, labData),
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
