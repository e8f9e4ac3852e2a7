package handlers

import contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"

// actionsForDomain is the static per-domain catalog of UI affordances a
// specialist may suggest. Actions flagged RiskHigh are clinician-only and
// filtered per request by FilterActions.
func actionsForDomain(domain string) []contractx.Action {
	switch domain {
	case "Cardiology":
		return []contractx.Action{
			{Label: "Calculate Wells Score", Action: "dvt_calc", RiskLevel: contractx.RiskHigh, Icon: "riskHigh"},
			{Label: "ECG Analysis", Action: "ecg_analyze", Icon: "activity"},
			{Label: "Heart Failure Risk (Framingham)", Action: "hf_risk", Icon: "heart"},
			{Label: "Anticoagulation Guidelines", Action: "guidelines_anticoag", RiskLevel: contractx.RiskHigh, Icon: "document"},
		}
	case "Orthopedics":
		return []contractx.Action{
			{Label: "Ottawa Ankle Rules", Action: "ottawa_ankle", Icon: "activity"},
			{Label: "Fracture Classification", Action: "fracture_classify", Icon: "document"},
			{Label: "Rehab Protocol", Action: "rehab_plan", Icon: "calendar"},
		}
	case "Pulmonology":
		return []contractx.Action{
			{Label: "Pneumonia Severity (CURB-65)", Action: "curb65_calc", RiskLevel: contractx.RiskHigh, Icon: "riskHigh"},
			{Label: "Interpret Spirometry", Action: "pft_interpret", Icon: "activity"},
			{Label: "Asthma Action Plan", Action: "asthma_plan", Icon: "document"},
			{Label: "ABG Analysis", Action: "abg_analyze", Icon: "lab"},
		}
	case "Endocrinology":
		return []contractx.Action{
			{Label: "Insulin Titration", Action: "insulin_titrate", RiskLevel: contractx.RiskHigh, Icon: "riskHigh"},
			{Label: "Thyroid Panel Interpretation", Action: "thyroid_interpret", Icon: "lab"},
			{Label: "Diabetes Care Plan", Action: "diabetes_plan", Icon: "document"},
		}
	default:
		return nil
	}
}

// FilterActions drops high-risk actions for everyone but doctors.
func FilterActions(actions []contractx.Action, role string) []contractx.Action {
	filtered := make([]contractx.Action, 0, len(actions))
	for _, a := range actions {
		if a.RiskLevel == contractx.RiskHigh && role != "Doctor" {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}
