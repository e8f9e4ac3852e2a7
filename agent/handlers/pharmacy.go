package handlers

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// InteractionResult is the outcome of a drug-pair screening pass.
type InteractionResult struct {
	Found        bool     `json:"interactions_found"`
	Interactions []string `json:"interactions"`
	Severity     string   `json:"severity"`
}

// knownInteractions is the local screening table, checked before any
// backend deep-dive so the critical pairs fire even fully offline.
var knownInteractions = []struct {
	a, b     string
	warning  string
	severity string
}{
	{"warfarin", "aspirin", "Warfarin + Aspirin: Increased bleeding risk.", "High"},
	{"lisinopril", "potassium", "Lisinopril + Potassium: Risk of hyperkalemia.", "Moderate"},
	{"sildenafil", "nitroglycerin", "Sildenafil + Nitroglycerin: Severe hypotension risk.", "Critical"},
}

// severityRank orders severities so the worst pair wins the headline.
var severityRank = map[string]int{"None": 0, "Moderate": 1, "High": 2, "Critical": 3}

// Pharmacy screens medication lists for interactions. The local pair table
// always runs; when a backend is available it adds a pharmacology deep-dive
// on top.
type Pharmacy struct {
	Binding
	deps Deps
}

func NewPharmacy(deps Deps) *Pharmacy {
	return &Pharmacy{
		Binding: Binding{
			name:        "PharmacyAgent",
			role:        "Pharmacy",
			description: "Checks drug-drug interactions and medication safety.",
			capabilities: []contractx.TaskName{
				contractx.TaskCheckDrugInteraction,
				contractx.TaskCheckInteractions,
			},
		},
		deps: deps,
	}
}

func (p *Pharmacy) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	case contractx.TaskCheckDrugInteraction, contractx.TaskCheckInteractions:
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}

	medications := medicationList(payload)
	if len(medications) == 0 {
		return contractx.AgentResponse{}, fmt.Errorf("%w: no medications provided for interaction check", contractx.ErrInvalidPayload)
	}

	result := ScreenInteractions(medications)

	data := map[string]any{
		"interactions_found": result.Found,
		"interactions":       result.Interactions,
		"severity":           result.Severity,
	}

	message := "No known interactions in the local screening table."
	status := contractx.StatusSuccess
	if result.Found {
		status = contractx.StatusWarning
		message = fmt.Sprintf("%d interaction(s) found, worst severity %s.", len(result.Interactions), result.Severity)
	}

	// backend deep-dive on top of the local table, best effort
	if deepDive := p.deepDive(ctx, medications, rc); deepDive != "" {
		data["deep_dive"] = deepDive
	}

	return contractx.AgentResponse{
		Status:  status,
		Message: message,
		Data:    data,
	}, nil
}

func (p *Pharmacy) deepDive(ctx context.Context, medications []string, rc contractx.RequestContext) string {
	prompt := fmt.Sprintf(
		"Perform a deep-dive interaction check on these medications: %s.\n"+
			"Focus on CYP450 interactions, QT prolongation, and bioavailability. Keep it brief and clinical.",
		strings.Join(medications, ", "))

	resp, ok, err := p.deps.generate(ctx, contractx.GenerateRequest{
		System: p.deps.systemInstruction(ctx, rc, strings.Join(medications, " ")),
		Prompt: prompt,
		Tier:   contractx.TierLight,
	})
	if err != nil || !ok {
		return ""
	}
	return resp.Text
}

// ScreenInteractions checks every pair in the medication list against the
// local table. Deterministic and order-independent.
func ScreenInteractions(medications []string) InteractionResult {
	present := make(map[string]bool, len(medications))
	for _, m := range medications {
		present[strings.ToLower(strings.TrimSpace(m))] = true
	}

	result := InteractionResult{Severity: "None", Interactions: []string{}}
	for _, pair := range knownInteractions {
		if present[pair.a] && present[pair.b] {
			result.Found = true
			result.Interactions = append(result.Interactions, pair.warning)
			if severityRank[pair.severity] > severityRank[result.Severity] {
				result.Severity = pair.severity
			}
		}
	}
	return result
}

// medicationList accepts medications under the keys callers actually use.
func medicationList(payload contractx.Payload) []string {
	for _, key := range []string{"medications", "drugs", "meds"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case []string:
			return v
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, s)
				}
			}
			return out
		case string:
			if strings.TrimSpace(v) == "" {
				return nil
			}
			parts := strings.Split(v, ",")
			out := make([]string, 0, len(parts))
			for _, part := range parts {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					out = append(out, trimmed)
				}
			}
			return out
		}
	}
	return nil
}
