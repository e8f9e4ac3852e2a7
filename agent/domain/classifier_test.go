package domain

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

func TestClassifySuccess(t *testing.T) {
	t.Parallel()

	c := NewClassifier(&fakeGenerator{text: `{"domain": "Cardiology", "confidence": "High", "reason": "chest pain with ST elevation"}`})
	got := c.Classify(context.Background(), "chest pain with ST elevation on ECG")
	if got.Domain != "Cardiology" {
		t.Fatalf("Domain = %q, want Cardiology", got.Domain)
	}
	if got.Confidence != "High" {
		t.Fatalf("Confidence = %q, want High", got.Confidence)
	}
}

func TestClassifyNeverFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    *Classifier
	}{
		{"nil classifier", nil},
		{"nil backend", NewClassifier(nil)},
		{"backend error", NewClassifier(&fakeGenerator{err: errors.New("down")})},
		{"malformed reply", NewClassifier(&fakeGenerator{text: "not json"})},
		{"unknown domain", NewClassifier(&fakeGenerator{text: `{"domain": "Dermatology"}`})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.c.Classify(context.Background(), "some case")
			if got.Domain != General {
				t.Fatalf("Domain = %q, want General fallback", got.Domain)
			}
		})
	}
}
