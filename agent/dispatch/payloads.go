package dispatch

import (
	"fmt"
	"strings"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// requiredFields is the per-task payload schema enforced at the dispatch
// boundary. Tasks absent from the table accept any payload; their handlers
// validate internally.
var requiredFields = map[contractx.TaskName][]string{
	contractx.TaskCheckInsuranceEligibility: {"patient_id", "procedure_code"},
	contractx.TaskEstimateCost:              {"procedure_code"},
	contractx.TaskPriorAuth:                 {"patient_id", "procedure_code"},

	contractx.TaskCheckDrugInteraction: {"medications"},
	contractx.TaskCheckInteractions:    {"medications"},

	contractx.TaskEmergencyProtocol: {"symptoms"},

	contractx.TaskAnalyzeLabs:     {"lab_results"},
	contractx.TaskValidateResults: {"lab_results"},

	contractx.TaskResearchCondition: {"query"},
	contractx.TaskFindGuidelines:    {"condition"},
	contractx.TaskContributeData:    {"case_data"},

	contractx.TaskDiagnose:      {"query"},
	contractx.TaskTreatmentPlan: {"diagnosis"},
	contractx.TaskAugmentCase:   {"extracted_data"},

	contractx.TaskConsultGuidelines: {"query"},
	contractx.TaskAssessRisk:        {"case_data"},
}

// anyOfFields lists tasks whose payload is valid when any one of the named
// fields is present. A specialist consult carries either a direct query or
// a full case record for the specialist to work from.
var anyOfFields = map[contractx.TaskName][]string{
	contractx.TaskSpecialistConsult: {"query", "case_data"},
}

// validatePayload surfaces malformed payloads as ErrInvalidPayload before
// the handler runs, instead of letting it fail deep inside business logic.
func validatePayload(task contractx.TaskName, payload contractx.Payload) error {
	var missing []string
	for _, field := range requiredFields[task] {
		if !present(payload, field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: task=%s missing fields: %s", contractx.ErrInvalidPayload, task, strings.Join(missing, ", "))
	}

	if alternatives, ok := anyOfFields[task]; ok {
		satisfied := false
		for _, field := range alternatives {
			if present(payload, field) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return fmt.Errorf("%w: task=%s requires one of: %s", contractx.ErrInvalidPayload, task, strings.Join(alternatives, ", "))
		}
	}

	return nil
}

func present(payload contractx.Payload, field string) bool {
	if payload == nil {
		return false
	}
	v, ok := payload[field]
	if !ok || v == nil {
		return false
	}
	switch tv := v.(type) {
	case string:
		return strings.TrimSpace(tv) != ""
	case []any:
		return len(tv) > 0
	case []string:
		return len(tv) > 0
	default:
		return true
	}
}
