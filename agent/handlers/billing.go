package handlers

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// EligibilityResult is the outcome of an insurance eligibility check.
type EligibilityResult struct {
	Eligible      bool    `json:"eligible"`
	Status        string  `json:"status"`
	Copay         float64 `json:"copay"`
	CoveredAmount float64 `json:"covered_amount"`
	Message       string  `json:"message"`
}

// Billing handles insurance eligibility, cost estimates, and prior
// authorization drafts. Eligibility is a deterministic payer-table lookup;
// estimates and prior-auth letters use the backend.
type Billing struct {
	Binding
	deps Deps
}

func NewBilling(deps Deps) *Billing {
	return &Billing{
		Binding: Binding{
			name:        "BillingAgent",
			role:        "Billing",
			description: "Verifies insurance eligibility, estimates procedure costs, and drafts prior authorizations.",
			capabilities: []contractx.TaskName{
				contractx.TaskCheckInsuranceEligibility,
				contractx.TaskEstimateCost,
				contractx.TaskPriorAuth,
			},
		},
		deps: deps,
	}
}

func (b *Billing) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	case contractx.TaskCheckInsuranceEligibility:
		return b.checkEligibility(payload)
	case contractx.TaskEstimateCost:
		return b.estimateCost(ctx, payload, rc)
	case contractx.TaskPriorAuth:
		return b.priorAuth(ctx, payload, rc)
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}
}

func (b *Billing) checkEligibility(payload contractx.Payload) (contractx.AgentResponse, error) {
	patientID := payload.String("patient_id")
	procedureCode := payload.String("procedure_code")

	result := CheckEligibility(patientID, procedureCode)

	status := contractx.StatusSuccess
	if !result.Eligible {
		status = contractx.StatusWarning
	}
	return contractx.AgentResponse{
		Status:  status,
		Message: result.Message,
		Data: map[string]any{
			"eligible":       result.Eligible,
			"status":         result.Status,
			"copay":          result.Copay,
			"covered_amount": result.CoveredAmount,
		},
	}, nil
}

func (b *Billing) estimateCost(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	procedure := payload.String("procedure_code")
	if procedure == "" {
		procedure = payload.String("query")
	}

	prompt := fmt.Sprintf(
		"Estimate the typical cost range for procedure %q in a hospital setting. "+
			"Break down facility fee, professional fee, and typical insurance-negotiated rates. Keep it concise.",
		procedure)

	resp, ok, err := b.deps.generate(ctx, contractx.GenerateRequest{
		System: b.deps.systemInstruction(ctx, rc, procedure),
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

func (b *Billing) priorAuth(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	procedure := payload.String("procedure_code")
	justification := payload.String("justification")

	prompt := fmt.Sprintf(
		"Draft a prior authorization request for procedure %q.\nClinical justification: %s\n"+
			"Use standard payer letter structure: patient necessity, supporting findings, requested service.",
		procedure, justification)

	resp, ok, err := b.deps.generate(ctx, contractx.GenerateRequest{
		System: b.deps.systemInstruction(ctx, rc, procedure),
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

// CheckEligibility resolves coverage for a patient/procedure pair against
// the payer table. Coverage data is static until a clearinghouse feed is
// wired in.
func CheckEligibility(patientID, procedureCode string) EligibilityResult {
	// known-uninsured sentinel used across environments
	if strings.EqualFold(patientID, "uninsured-123") {
		return EligibilityResult{
			Eligible: false,
			Status:   "Inactive",
			Message:  "Patient coverage inactive or procedure not covered.",
		}
	}
	_ = procedureCode // flat copay until per-procedure fee schedules land
	return EligibilityResult{
		Eligible:      true,
		Status:        "Active",
		Copay:         50.0,
		CoveredAmount: 0.8,
		Message:       "Approved for service.",
	}
}
