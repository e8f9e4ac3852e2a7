// Package modeltier picks the cost/quality class for a generation call
// before the call is made. Pure heuristic: no I/O, no state.
package modeltier

import (
	"strings"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

const heavyQueryLength = 1000

// heavyTriggers are query fragments that demand high-reasoning models
// regardless of query length.
var heavyTriggers = []string{
	"analyze",
	"compare",
	"synthesize",
	"treatment plan",
	"differential diagnosis",
}

// Select returns the tier for a query in a given clinical domain. Long
// queries and queries carrying a heavy-reasoning trigger go to TierHeavy;
// everything else stays on TierLight.
func Select(query, domain string) contractx.Tier {
	_ = domain // reserved for per-domain overrides

	if len(query) > heavyQueryLength {
		return contractx.TierHeavy
	}

	lowered := strings.ToLower(query)
	for _, trigger := range heavyTriggers {
		if strings.Contains(lowered, trigger) {
			return contractx.TierHeavy
		}
	}

	return contractx.TierLight
}
