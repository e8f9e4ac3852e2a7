package modeltier

import (
	"strings"
	"testing"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  contractx.Tier
	}{
		{"short simple query", "check blood pressure", contractx.TierLight},
		{"empty query", "", contractx.TierLight},
		{"analyze trigger", "please analyze this ECG result", contractx.TierHeavy},
		{"trigger case insensitive", "COMPARE these two treatment options", contractx.TierHeavy},
		{"treatment plan trigger", "draft a treatment plan for this patient", contractx.TierHeavy},
		{"differential diagnosis trigger", "give me a differential diagnosis", contractx.TierHeavy},
		{"synthesize trigger", "synthesize the findings from these reports", contractx.TierHeavy},
		{"long query over threshold", strings.Repeat("patient reports mild headache ", 40), contractx.TierHeavy},
		{"trigger word inside larger word is still a match", "reanalyzed results", contractx.TierHeavy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Select(tt.query, "Cardiology"); got != tt.want {
				t.Fatalf("Select(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	t.Parallel()

	const query = "analyze this 1200 character case"
	first := Select(query, "")
	for i := 0; i < 100; i++ {
		if got := Select(query, ""); got != first {
			t.Fatalf("Select() flipped from %q to %q on call %d", first, got, i)
		}
	}
}
