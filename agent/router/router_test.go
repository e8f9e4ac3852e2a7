package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

type fakeGenerator struct {
	text       string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, req contractx.GenerateRequest) (contractx.GenerateResponse, error) {
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return contractx.GenerateResponse{}, f.err
	}
	return contractx.GenerateResponse{Text: f.text}, nil
}

type stubHandler struct {
	name  string
	tasks []contractx.TaskName
}

func (s *stubHandler) Name() string        { return s.name }
func (s *stubHandler) Role() string        { return "Test" }
func (s *stubHandler) Description() string { return "stub handler" }

func (s *stubHandler) Capabilities() []contractx.TaskName { return s.tasks }

func (s *stubHandler) Process(_ context.Context, _ contractx.TaskName, _ contractx.Payload, _ contractx.RequestContext) (contractx.AgentResponse, error) {
	return contractx.AgentResponse{}, nil
}

func TestRouteFreeTextSuccess(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: `{"task": "triage", "payload": {"symptoms": "chest pain"}}`}
	r := New(gen, []contractx.Handler{
		&stubHandler{name: "NurseAgent", tasks: []contractx.TaskName{contractx.TaskTriage}},
	})

	got, err := r.RouteFreeText(context.Background(), "my patient has chest pain")
	if err != nil {
		t.Fatalf("RouteFreeText() error = %v", err)
	}
	if got.Task != contractx.TaskTriage {
		t.Fatalf("Task = %q, want triage", got.Task)
	}
	if got.Payload.String("symptoms") != "chest pain" {
		t.Fatalf("Payload = %#v, want symptoms=chest pain", got.Payload)
	}

	// the prompt must carry the handler menu
	if !strings.Contains(gen.lastPrompt, "NurseAgent") {
		t.Fatal("prompt does not contain the capability summary")
	}
}

func TestRouteFreeTextEmptyQuery(t *testing.T) {
	t.Parallel()

	r := New(&fakeGenerator{}, nil)
	_, err := r.RouteFreeText(context.Background(), "   ")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("RouteFreeText() error = %v, want ErrValidation", err)
	}
}

func TestRouteFreeTextWithoutBackend(t *testing.T) {
	t.Parallel()

	r := New(nil, nil)
	_, err := r.RouteFreeText(context.Background(), "anything")
	if !errors.Is(err, contractx.ErrRoutingUnavailable) {
		t.Fatalf("RouteFreeText() error = %v, want ErrRoutingUnavailable", err)
	}
}

func TestRouteFreeTextBackendFailure(t *testing.T) {
	t.Parallel()

	r := New(&fakeGenerator{err: errors.New("timeout")}, nil)
	_, err := r.RouteFreeText(context.Background(), "anything")
	if !errors.Is(err, contractx.ErrRouting) {
		t.Fatalf("RouteFreeText() error = %v, want ErrRouting", err)
	}
}

func TestRouteFreeTextMalformedReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want error
	}{
		{"non json", "sure, here is the routing", contractx.ErrMalformedOutput},
		{"empty task", `{"task": "", "payload": {}}`, contractx.ErrMalformedOutput},
		{"backend declined", `{"error": "no matching capability"}`, contractx.ErrRouting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New(&fakeGenerator{text: tt.text}, nil)
			_, err := r.RouteFreeText(context.Background(), "anything")
			if !errors.Is(err, tt.want) {
				t.Fatalf("RouteFreeText() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRouteFreeTextNilPayloadBecomesEmpty(t *testing.T) {
	t.Parallel()

	r := New(&fakeGenerator{text: `{"task": "triage"}`}, nil)
	got, err := r.RouteFreeText(context.Background(), "triage please")
	if err != nil {
		t.Fatalf("RouteFreeText() error = %v", err)
	}
	if got.Payload == nil {
		t.Fatal("Payload is nil, want empty map")
	}
}
