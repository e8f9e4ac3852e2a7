package handlers

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

type fakeGenerator struct {
	text    string
	err     error
	lastReq contractx.GenerateRequest
	calls   int
}

func (f *fakeGenerator) Generate(_ context.Context, req contractx.GenerateRequest) (contractx.GenerateResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return contractx.GenerateResponse{}, f.err
	}
	return contractx.GenerateResponse{Text: f.text}, nil
}

func TestTriagePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		symptoms string
		want     int
	}{
		{"patient in cardiac arrest", 1},
		{"unresponsive and not breathing", 1},
		{"crushing chest pain radiating to left arm", 2},
		{"sudden confusion and difficulty breathing", 2},
		{"severe abdominal pain since morning", 3},
		{"suspected wrist fracture after a fall", 3},
		{"sore throat for two days", 4},
		{"mild seasonal allergies", 5},
		{"", 5},
	}

	for _, tt := range tests {
		got := TriagePriority(tt.symptoms)
		if got.Priority != tt.want {
			t.Fatalf("TriagePriority(%q).Priority = %d, want %d", tt.symptoms, got.Priority, tt.want)
		}
	}
}

func TestTriagePriorityRecommendsTraumaForCritical(t *testing.T) {
	t.Parallel()

	got := TriagePriority("stroke symptoms, facial droop")
	if got.RecommendedAction != "Admit to Trauma" {
		t.Fatalf("RecommendedAction = %q, want trauma admission for priority %d", got.RecommendedAction, got.Priority)
	}
}

func TestNurseTriageWorksOffline(t *testing.T) {
	t.Parallel()

	nurse := NewNurse(Deps{})
	resp, err := nurse.Process(context.Background(), contractx.TaskTriage,
		contractx.Payload{"symptoms": "chest pain"}, contractx.RequestContext{PrincipalID: "u1", Role: "Nurse"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Status != contractx.StatusSuccess {
		t.Fatalf("Status = %q, want success without any backend", resp.Status)
	}
	if resp.Data["priority"] != 2 {
		t.Fatalf("priority = %v, want 2", resp.Data["priority"])
	}
}

func TestCheckEligibility(t *testing.T) {
	t.Parallel()

	got := CheckEligibility("patient-1", "MRI-100")
	if !got.Eligible || got.Status != "Active" {
		t.Fatalf("CheckEligibility() = %#v, want active coverage", got)
	}
	if got.Copay != 50.0 {
		t.Fatalf("Copay = %f, want 50.0", got.Copay)
	}

	denied := CheckEligibility("uninsured-123", "MRI-100")
	if denied.Eligible || denied.Status != "Inactive" {
		t.Fatalf("CheckEligibility(uninsured) = %#v, want inactive coverage", denied)
	}
}

func TestScreenInteractions(t *testing.T) {
	t.Parallel()

	got := ScreenInteractions([]string{"Warfarin", "aspirin", "metformin"})
	if !got.Found || len(got.Interactions) != 1 {
		t.Fatalf("ScreenInteractions() = %#v, want one interaction", got)
	}
	if got.Severity != "High" {
		t.Fatalf("Severity = %q, want High", got.Severity)
	}

	clean := ScreenInteractions([]string{"metformin", "atorvastatin"})
	if clean.Found || clean.Severity != "None" {
		t.Fatalf("ScreenInteractions(clean list) = %#v, want no findings", clean)
	}
}

func TestScreenInteractionsWorstSeverityWins(t *testing.T) {
	t.Parallel()

	got := ScreenInteractions([]string{"warfarin", "aspirin", "sildenafil", "nitroglycerin"})
	if len(got.Interactions) != 2 {
		t.Fatalf("Interactions = %#v, want 2", got.Interactions)
	}
	if got.Severity != "Critical" {
		t.Fatalf("Severity = %q, want Critical", got.Severity)
	}
}

func TestPharmacyRejectsEmptyMedicationList(t *testing.T) {
	t.Parallel()

	pharmacy := NewPharmacy(Deps{})
	_, err := pharmacy.Process(context.Background(), contractx.TaskCheckDrugInteraction,
		contractx.Payload{"medications": []any{}}, contractx.RequestContext{PrincipalID: "u1"})
	if !errors.Is(err, contractx.ErrInvalidPayload) {
		t.Fatalf("Process() error = %v, want ErrInvalidPayload", err)
	}
}

func TestMedicationListAcceptsAlternateKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload contractx.Payload
		want    int
	}{
		{"typed slice", contractx.Payload{"medications": []string{"a", "b"}}, 2},
		{"decoded json slice", contractx.Payload{"drugs": []any{"a", "b", "c"}}, 3},
		{"comma separated string", contractx.Payload{"meds": "warfarin, aspirin"}, 2},
		{"missing", contractx.Payload{}, 0},
	}

	for _, tt := range tests {
		if got := medicationList(tt.payload); len(got) != tt.want {
			t.Fatalf("%s: medicationList() = %#v, want %d entries", tt.name, got, tt.want)
		}
	}
}

func TestFilterActionsDropsHighRiskForNonDoctors(t *testing.T) {
	t.Parallel()

	actions := actionsForDomain("Cardiology")

	forDoctor := FilterActions(actions, "Doctor")
	if len(forDoctor) != len(actions) {
		t.Fatalf("doctor sees %d of %d actions, want all", len(forDoctor), len(actions))
	}

	forNurse := FilterActions(actions, "Nurse")
	for _, a := range forNurse {
		if a.RiskLevel == contractx.RiskHigh {
			t.Fatalf("high-risk action %q leaked to a nurse", a.Action)
		}
	}
	if len(forNurse) >= len(actions) {
		t.Fatal("filtering removed nothing from a catalog with high-risk entries")
	}
}

func TestGenerateReportsOfflineBackend(t *testing.T) {
	t.Parallel()

	// nil generator
	_, ok, err := Deps{}.generate(context.Background(), contractx.GenerateRequest{Prompt: "x"})
	if err != nil || ok {
		t.Fatalf("generate() = ok=%t err=%v, want offline without error", ok, err)
	}

	// generator reporting unavailable
	gen := &fakeGenerator{err: contractx.ErrModelUnavailable}
	_, ok, err = Deps{Gen: gen}.generate(context.Background(), contractx.GenerateRequest{Prompt: "x"})
	if err != nil || ok {
		t.Fatalf("generate() = ok=%t err=%v, want offline without error", ok, err)
	}

	// other errors propagate
	gen = &fakeGenerator{err: errors.New("boom")}
	_, _, err = Deps{Gen: gen}.generate(context.Background(), contractx.GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func TestEmergencyRapidTriageFlagsCritical(t *testing.T) {
	t.Parallel()

	emergency := NewEmergency(Deps{})
	resp, err := emergency.Process(context.Background(), contractx.TaskRapidTriage,
		contractx.Payload{"symptoms": "unresponsive, severe bleeding"}, contractx.RequestContext{PrincipalID: "u1"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Status != contractx.StatusWarning {
		t.Fatalf("Status = %q, want warning for a priority-1 patient", resp.Status)
	}
}

func TestDoctorDiagnoseOffline(t *testing.T) {
	t.Parallel()

	doctor := NewDoctor(Deps{})
	resp, err := doctor.Process(context.Background(), contractx.TaskDiagnose,
		contractx.Payload{"query": "fever and rash"}, contractx.RequestContext{PrincipalID: "u1", Role: "Doctor"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Status != contractx.StatusError {
		t.Fatalf("Status = %q, want the service-offline response", resp.Status)
	}
}

func TestDoctorUsesHeavyTierForTreatmentPlans(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "plan"}
	doctor := NewDoctor(Deps{Gen: gen})
	if _, err := doctor.Process(context.Background(), contractx.TaskTreatmentPlan,
		contractx.Payload{"diagnosis": "CAP"}, contractx.RequestContext{PrincipalID: "u1", Role: "Doctor"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if gen.lastReq.Tier != contractx.TierHeavy {
		t.Fatalf("Tier = %q, want heavy for treatment planning", gen.lastReq.Tier)
	}
}

func TestLaboratoryAnalyzeWithoutResults(t *testing.T) {
	t.Parallel()

	lab := NewLaboratory(Deps{})
	resp, err := lab.Process(context.Background(), contractx.TaskAnalyzeLabs,
		contractx.Payload{}, contractx.RequestContext{PrincipalID: "u1"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Status != contractx.StatusWarning {
		t.Fatalf("Status = %q, want a warning when no lab data exists", resp.Status)
	}
}
