package compose

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	statex "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/state"
)

// the concrete state manager must satisfy the composer's read interface
var _ PersonalizationStore = (*statex.Manager)(nil)

// fakeRetriever answers queries from a fixed table, keyed by query text.
type fakeRetriever struct {
	snippets map[string][]string
	pinned   []string
}

func (f *fakeRetriever) Add(_ context.Context, _, _ string, _ map[string]any) error { return nil }

func (f *fakeRetriever) Query(_ context.Context, _, text string, _ int) ([]string, error) {
	return f.snippets[text], nil
}

func (f *fakeRetriever) Pinned(_ string) []string { return f.pinned }

type fakeProfiles struct {
	profile *contractx.ClinicalProfile
}

func (f *fakeProfiles) Profile(_ context.Context, _ string) (*contractx.ClinicalProfile, error) {
	return f.profile, nil
}

func seededState(t *testing.T, principalID string) *statex.Manager {
	t.Helper()
	manager := statex.NewManager(statex.NewMemoryStore())
	ctx := context.Background()

	if err := manager.MergePreferences(ctx, principalID, map[string]string{
		"language": "en",
		"tone":     "concise",
	}); err != nil {
		t.Fatalf("MergePreferences() error = %v", err)
	}
	for _, point := range []string{"Prefers metric units", "Responds well to checklists"} {
		if err := manager.AppendLearningPoint(ctx, principalID, point); err != nil {
			t.Fatalf("AppendLearningPoint() error = %v", err)
		}
	}
	return manager
}

func TestBuildInstructionGolden(t *testing.T) {
	t.Parallel()

	const principalID = "user-7"

	retriever := &fakeRetriever{
		snippets: map[string][]string{
			"patient preferences communication style care priorities": {"Patient prefers morning appointments"},
			"chest pain workup (context for a Doctor)":                {"Prior ECG normal in 2025"},
		},
		pinned: []string{"Always check renal function before contrast imaging"},
	}
	profiles := &fakeProfiles{profile: &contractx.ClinicalProfile{
		ChronicConditions: []string{"hypertension", "type 2 diabetes"},
		Allergies:         []string{"penicillin"},
	}}

	composer := New(seededState(t, principalID), retriever, profiles)

	got, err := composer.BuildInstruction(context.Background(), principalID, "Doctor", "chest pain workup")
	if err != nil {
		t.Fatalf("BuildInstruction() error = %v", err)
	}

	g := goldie.New(t, goldie.WithNameSuffix(".golden"))
	g.Assert(t, "composer_instruction", []byte(got))
}

func TestBuildInstructionLayerOrder(t *testing.T) {
	t.Parallel()

	const principalID = "user-7"

	retriever := &fakeRetriever{
		snippets: map[string][]string{
			"lab review (context for a Nurse)": {"CURRENT-QUERY-SNIPPET"},
		},
		pinned: []string{"PINNED-SNIPPET"},
	}
	composer := New(seededState(t, principalID), retriever, nil)

	got, err := composer.BuildInstruction(context.Background(), principalID, "Nurse", "lab review")
	if err != nil {
		t.Fatalf("BuildInstruction() error = %v", err)
	}

	pinnedAt := strings.Index(got, "PINNED-SNIPPET")
	queryAt := strings.Index(got, "CURRENT-QUERY-SNIPPET")
	if pinnedAt == -1 || queryAt == -1 {
		t.Fatalf("instruction missing layers:\n%s", got)
	}
	if pinnedAt > queryAt {
		t.Fatal("pinned knowledge must precede current-query retrieval")
	}
	if !strings.HasPrefix(got, "You are a helpful AI assistant for a Nurse.") {
		t.Fatalf("instruction does not start with the identity layer:\n%s", got)
	}
	if !strings.Contains(got, "Guidelines:") {
		t.Fatal("instruction missing closing guideline block")
	}
}

func TestBuildInstructionEmptyStateSkipsLayers(t *testing.T) {
	t.Parallel()

	composer := New(statex.NewManager(statex.NewMemoryStore()), &fakeRetriever{}, nil)

	got, err := composer.BuildInstruction(context.Background(), "fresh-user", "Doctor", "")
	if err != nil {
		t.Fatalf("BuildInstruction() error = %v", err)
	}

	for _, header := range []string{"User preferences:", "Things you've learned", "Pinned knowledge:", "Relevant context:"} {
		if strings.Contains(got, header) {
			t.Fatalf("instruction contains %q for an empty state:\n%s", header, got)
		}
	}
	if !strings.Contains(got, "Guidelines:") {
		t.Fatal("closing guideline block must always be present")
	}
}

func TestBuildInstructionIsReproducible(t *testing.T) {
	t.Parallel()

	const principalID = "user-9"
	composer := New(seededState(t, principalID), &fakeRetriever{}, nil)

	first, err := composer.BuildInstruction(context.Background(), principalID, "Doctor", "follow up")
	if err != nil {
		t.Fatalf("BuildInstruction() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := composer.BuildInstruction(context.Background(), principalID, "Doctor", "follow up")
		if err != nil {
			t.Fatalf("BuildInstruction() error = %v", err)
		}
		if again != first {
			t.Fatalf("instruction changed between identical calls:\n%s\n---\n%s", first, again)
		}
	}
}
