package registry

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, _ contractx.GenerateRequest) (contractx.GenerateResponse, error) {
	if f.err != nil {
		return contractx.GenerateResponse{}, f.err
	}
	return contractx.GenerateResponse{Text: f.text}, nil
}

func descriptor(role string, name contractx.TaskName) contractx.CapabilityDescriptor {
	return contractx.CapabilityDescriptor{
		OwnerRole:   role,
		Name:        name,
		Description: "test capability",
		Active:      true,
	}
}

func TestUpsertIsIdempotentOnKey(t *testing.T) {
	t.Parallel()

	r := New(nil)
	desc := descriptor("NurseAgent", contractx.TaskTriage)

	if _, err := r.Upsert(desc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	desc.Description = "updated description"
	desc.Active = false
	if _, err := r.Upsert(desc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rows := r.List()
	if len(rows) != 1 {
		t.Fatalf("List() returned %d rows, want 1", len(rows))
	}
	if rows[0].Description != "updated description" {
		t.Fatalf("Description = %q, want the updated value", rows[0].Description)
	}
	if rows[0].Active {
		t.Fatal("Active flag was not overwritten")
	}
}

func TestUpsertValidation(t *testing.T) {
	t.Parallel()

	r := New(nil)
	if _, err := r.Upsert(descriptor("  ", contractx.TaskTriage)); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Upsert(empty role) error = %v, want ErrValidation", err)
	}
	if _, err := r.Upsert(descriptor("NurseAgent", "")); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Upsert(empty name) error = %v, want ErrValidation", err)
	}
}

func TestIsActive(t *testing.T) {
	t.Parallel()

	r := New(nil)
	if !r.IsActive(contractx.TaskDiagnose) {
		t.Fatal("IsActive(unregistered) = false, want true")
	}

	desc := descriptor("NurseAgent", contractx.TaskTriage)
	desc.Active = false
	if _, err := r.Upsert(desc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if r.IsActive(contractx.TaskTriage) {
		t.Fatal("IsActive(disabled) = true, want false")
	}
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	t.Parallel()

	r := New(nil)
	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() second call error = %v", err)
	}

	if got := len(r.List()); got != 3 {
		t.Fatalf("List() returned %d rows after double seed, want 3", got)
	}
	if got := len(r.Active()); got != 3 {
		t.Fatalf("Active() returned %d rows, want 3", got)
	}
}

func TestFindByIntentMatchesAgainstCatalog(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: `{"matches": ["triage", "check_drug_interaction"]}`}
	r := New(gen)
	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	got, err := r.FindByIntent(context.Background(), "my patient has a headache and takes warfarin")
	if err != nil {
		t.Fatalf("FindByIntent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FindByIntent() returned %d matches, want 2", len(got))
	}
	if got[0].Name != contractx.TaskTriage {
		t.Fatalf("first match = %q, want triage (catalog order)", got[0].Name)
	}
}

func TestFindByIntentWithoutBackend(t *testing.T) {
	t.Parallel()

	r := New(nil)
	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	_, err := r.FindByIntent(context.Background(), "anything")
	if !errors.Is(err, contractx.ErrRoutingUnavailable) {
		t.Fatalf("FindByIntent() error = %v, want ErrRoutingUnavailable", err)
	}
}

func TestFindByIntentMalformedReply(t *testing.T) {
	t.Parallel()

	r := New(&fakeGenerator{text: "not json"})
	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	_, err := r.FindByIntent(context.Background(), "anything")
	if !errors.Is(err, contractx.ErrMalformedOutput) {
		t.Fatalf("FindByIntent() error = %v, want ErrMalformedOutput", err)
	}
}

func TestFindByIntentEmptyCatalog(t *testing.T) {
	t.Parallel()

	r := New(&fakeGenerator{text: `{"matches": []}`})
	got, err := r.FindByIntent(context.Background(), "anything")
	if err != nil {
		t.Fatalf("FindByIntent() error = %v", err)
	}
	if got != nil {
		t.Fatalf("FindByIntent() = %#v, want nil for empty catalog", got)
	}
}
