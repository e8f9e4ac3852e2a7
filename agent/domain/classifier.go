// Package domain classifies case text into a clinical specialty so
// specialist consults can be routed without an explicit domain.
package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	promptx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/prompt"
)

// Domains the classifier can produce. General is both the fallback and the
// answer for cases spanning multiple specialties.
var Domains = []string{"Cardiology", "Orthopedics", "Pulmonology", "Endocrinology", "General"}

const General = "General"

type Classification struct {
	Domain     string `json:"domain"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

type Classifier struct {
	gen     contractx.Generator
	prompts promptx.PromptSet
	logger  zerolog.Logger
}

func NewClassifier(gen contractx.Generator) *Classifier {
	return &Classifier{
		gen:     gen,
		prompts: promptx.LoadPromptSet(),
		logger:  log.With().Str("component", "domain_classifier").Logger(),
	}
}

// Classify never fails the caller: an offline or misbehaving backend yields
// the General domain with Low confidence.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	offline := Classification{Domain: General, Confidence: "Low", Reason: "Offline"}
	if c == nil || c.gen == nil {
		return offline
	}

	resp, err := c.gen.Generate(ctx, contractx.GenerateRequest{
		Prompt:     fmt.Sprintf(c.prompts.DomainClassifier, strings.Join(Domains, ", "), text),
		Tier:       contractx.TierLight,
		Structured: true,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("domain classification failed")
		return offline
	}

	var parsed Classification
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err != nil {
		c.logger.Warn().Err(err).Msg("domain classification returned malformed output")
		return Classification{Domain: General, Confidence: "Low", Reason: "Error in classification"}
	}

	if !known(parsed.Domain) {
		parsed.Domain = General
	}
	return parsed
}

func known(domain string) bool {
	for _, d := range Domains {
		if d == domain {
			return true
		}
	}
	return false
}
