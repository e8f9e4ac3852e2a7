package handlers

import (
	"context"
	"fmt"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	modeltierx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/modeltier"
)

// Doctor handles diagnosis, treatment planning, case augmentation, and
// clinical summaries. It is also the consult fallback when no specialist
// matches a classified domain.
type Doctor struct {
	Binding
	deps Deps
}

func NewDoctor(deps Deps) *Doctor {
	return &Doctor{
		Binding: Binding{
			name:        "DoctorAgent",
			role:        "Doctor",
			description: "Responsible for clinical diagnosis, treatment planning, and complex case analysis.",
			capabilities: []contractx.TaskName{
				contractx.TaskDiagnose,
				contractx.TaskTreatmentPlan,
				contractx.TaskAugmentCase,
				contractx.TaskClinicalSummary,
			},
		},
		deps: deps,
	}
}

func (d *Doctor) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	// specialist_consult lands here when no specialist covers the domain
	case contractx.TaskDiagnose, contractx.TaskSpecialistConsult:
		return d.diagnose(ctx, payload, rc)
	case contractx.TaskTreatmentPlan:
		return d.treatmentPlan(ctx, payload, rc)
	case contractx.TaskAugmentCase:
		return d.augmentCase(ctx, payload, rc)
	case contractx.TaskClinicalSummary:
		return d.clinicalSummary(ctx, payload, rc)
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}
}

func (d *Doctor) diagnose(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	query := payload.String("query")
	if query == "" {
		query = payload.String("case_data")
	}

	prompt := fmt.Sprintf(
		"Provide a differential diagnosis for the following presentation. "+
			"Rank candidates by likelihood, note the discriminating findings for each, and state the next diagnostic step.\n\n%s",
		query)

	resp, ok, err := d.deps.generate(ctx, contractx.GenerateRequest{
		System: d.deps.systemInstruction(ctx, rc, query),
		Prompt: prompt,
		Tier:   modeltierx.Select(query, ""),
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}
	return contractx.AgentResponse{Status: contractx.StatusSuccess, Message: resp.Text}, nil
}

func (d *Doctor) treatmentPlan(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	diagnosis := payload.String("diagnosis")
	findings := payload.String("findings")
	if diagnosis == "" {
		diagnosis = payload.String("query")
	}

	prompt := fmt.Sprintf(
		"Generate a detailed clinical treatment plan for:\nDiagnosis: %s\nPatient Findings: %s\n\n"+
			"Include: Immediate actions, Medication(s), Labs needed.",
		diagnosis, findings)

	resp, ok, err := d.deps.generate(ctx, contractx.GenerateRequest{
		System: d.deps.systemInstruction(ctx, rc, diagnosis),
		Prompt: prompt,
		Tier:   contractx.TierHeavy,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: resp.Text,
		Data:    map[string]any{"plan": resp.Text},
	}, nil
}

func (d *Doctor) augmentCase(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	extracted := payload.String("extracted_data")
	baseline := payload.String("baseline_illnesses")

	prompt := fmt.Sprintf(
		"Review these extracted case details against the patient's baseline history.\n"+
			"Extracted: %s\nBaseline: %s\n\n"+
			`Identify 3 potential conflicts or missing checks. Return JSON: {"suggestions": [{"suggestion": "string", "rationale": "string"}]}`,
		extracted, baseline)

	resp, ok, err := d.deps.generate(ctx, contractx.GenerateRequest{
		System:     d.deps.systemInstruction(ctx, rc, ""),
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

	suggestions, err := decodeStructured(resp.Text)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Case augmentation suggestions ready.",
		Data:    suggestions,
	}, nil
}

func (d *Doctor) clinicalSummary(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	complaint := payload.String("complaint")
	history := payload.String("history")
	findings := payload.String("findings")
	if complaint == "" {
		complaint = payload.String("query")
	}

	prompt := fmt.Sprintf(
		"Analyze the following case.\nComplaint: %s\nHistory: %s\nFindings: %s\n\n"+
			`Return JSON: {"diagnosisConfidence": float (0-1), "primaryDiagnosis": "string", "patientRisks": ["string"], "keySymptoms": ["string"]}`,
		complaint, history, findings)

	resp, ok, err := d.deps.generate(ctx, contractx.GenerateRequest{
		System:     d.deps.systemInstruction(ctx, rc, complaint),
		Prompt:     prompt,
		Tier:       contractx.TierHeavy,
		Structured: true,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}

	summary, err := decodeStructured(resp.Text)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Clinical summary generated.",
		Data:    summary,
	}, nil
}
