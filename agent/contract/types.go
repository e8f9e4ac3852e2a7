package contract

import "time"

// TaskName identifies a capability a handler can perform. The set of task
// names is closed at construction time; handlers declare membership via
// Capabilities().
type TaskName string

const (
	// Nurse
	TaskTriage            TaskName = "triage"
	TaskVitalsCheck       TaskName = "vitals_check"
	TaskMonitor           TaskName = "monitor"
	TaskInitialAssessment TaskName = "initial_assessment"

	// Billing
	TaskCheckInsuranceEligibility TaskName = "check_insurance_eligibility"
	TaskEstimateCost              TaskName = "estimate_cost"
	TaskPriorAuth                 TaskName = "prior_auth"

	// Pharmacy
	TaskCheckDrugInteraction TaskName = "check_drug_interaction"
	TaskCheckInteractions    TaskName = "check_interactions"

	// Emergency
	TaskEmergencyProtocol       TaskName = "emergency_protocol"
	TaskCrashCartRecommendation TaskName = "crash_cart_recommendation"
	TaskRapidTriage             TaskName = "rapid_triage"

	// Laboratory
	TaskAnalyzeLabs     TaskName = "analyze_labs"
	TaskValidateResults TaskName = "validate_results"

	// Researcher (restricted: requires data-sharing consent)
	TaskResearchCondition TaskName = "research_condition"
	TaskFindGuidelines    TaskName = "find_guidelines"
	TaskContributeData    TaskName = "contribute_data"

	// Doctor
	TaskDiagnose        TaskName = "diagnose"
	TaskTreatmentPlan   TaskName = "treatment_plan"
	TaskAugmentCase     TaskName = "augment_case"
	TaskClinicalSummary TaskName = "clinical_summary"

	// Specialist family
	TaskSpecialistConsult TaskName = "specialist_consult"
	TaskConsultGuidelines TaskName = "consult_guidelines"
	TaskAssessRisk        TaskName = "assess_risk"
)

// Tier is the coarse cost/quality class chosen before a generation call.
type Tier string

const (
	TierLight Tier = "light"
	TierHeavy Tier = "heavy"
)

// Payload carries task input. Validated against the per-task field table at
// the dispatch boundary before any handler runs.
type Payload map[string]any

// String returns the payload value for key if it is a non-empty string.
func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// RequestContext identifies the principal a dispatch acts on behalf of.
type RequestContext struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
	TraceID     string `json:"trace_id,omitempty"`
}

// DispatchEnvelope is the normalized request passed to Dispatcher.Dispatch.
// Ephemeral: constructed per call, never persisted.
type DispatchEnvelope struct {
	Task    TaskName       `json:"task"`
	Payload Payload        `json:"payload"`
	Context RequestContext `json:"context"`
}

// Action is a UI affordance a handler suggests alongside its response.
type Action struct {
	Label     string `json:"label"`
	Action    string `json:"action"`
	RiskLevel string `json:"risk_level,omitempty"`
	Icon      string `json:"icon,omitempty"`
}

const RiskHigh = "HIGH"

// AgentResponse is the uniform handler output surfaced to callers.
type AgentResponse struct {
	Status  string         `json:"status"`
	Domain  string         `json:"domain,omitempty"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Actions []Action       `json:"actions,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusWarning = "warning"
)

// CapabilityDescriptor is a catalog row. Unique key = (OwnerRole, Name);
// mutated only through Registry.Upsert.
type CapabilityDescriptor struct {
	OwnerRole    string         `json:"owner_role"`
	Name         TaskName       `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema,omitempty"`
	OutputSchema map[string]any `json:"output_schema,omitempty"`
	Active       bool           `json:"active"`
}

// RouteDecision is the structured outcome of free-text routing.
type RouteDecision struct {
	Task    TaskName `json:"task"`
	Payload Payload  `json:"payload"`
}

// Consent is the read-only consent view of a principal.
type Consent struct {
	GDPR        bool `json:"gdpr_consent"`
	DataSharing bool `json:"data_sharing_consent"`
}

// ClinicalProfile is the compact patient summary folded into the identity
// layer of a composed instruction. A nil profile means the principal has no
// clinical record.
type ClinicalProfile struct {
	ChronicConditions []string `json:"chronic_conditions,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
}

// GenerateRequest goes to the generation backend. Structured requests must
// come back as parseable JSON or fail with ErrMalformedOutput.
type GenerateRequest struct {
	System     string
	Prompt     string
	Tier       Tier
	Structured bool
}

type GenerateResponse struct {
	Text string
}

// AuditRecord is one append-only row per specialist invocation.
type AuditRecord struct {
	ID             string    `json:"id"`
	Domain         string    `json:"domain"`
	Query          string    `json:"query"`
	Response       string    `json:"response"`
	ContextSummary string    `json:"context_summary"`
	PrincipalID    string    `json:"principal_id"`
	CreatedAt      time.Time `json:"created_at"`
}
