// Package registry keeps the catalog of declared agent capabilities. It is
// read-mostly process-wide state: admin upserts are the only write path.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	promptx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/prompt"
)

const maxIntentMatches = 3

type key struct {
	ownerRole string
	name      contractx.TaskName
}

// Registry is safe for concurrent use. Construct one at process start and
// pass it by reference; there is no package-level instance.
type Registry struct {
	gen     contractx.Generator
	prompts promptx.PromptSet
	logger  zerolog.Logger

	mu    sync.RWMutex
	rows  map[key]contractx.CapabilityDescriptor
	order []key
}

// New builds an empty registry. gen may be nil; intent lookup then reports
// ErrRoutingUnavailable instead of matching.
func New(gen contractx.Generator) *Registry {
	return &Registry{
		gen:     gen,
		prompts: promptx.LoadPromptSet(),
		logger:  log.With().Str("component", "registry").Logger(),
		rows:    make(map[key]contractx.CapabilityDescriptor),
	}
}

// Upsert registers a capability keyed by (OwnerRole, Name). A repeated key
// overwrites description, schemas, and the active flag; it never creates a
// second row. Returns the stored descriptor.
func (r *Registry) Upsert(desc contractx.CapabilityDescriptor) (contractx.CapabilityDescriptor, error) {
	desc.OwnerRole = strings.TrimSpace(desc.OwnerRole)
	if desc.OwnerRole == "" {
		return contractx.CapabilityDescriptor{}, fmt.Errorf("%w: owner role is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(string(desc.Name)) == "" {
		return contractx.CapabilityDescriptor{}, fmt.Errorf("%w: capability name is required", contractx.ErrValidation)
	}

	k := key{ownerRole: desc.OwnerRole, name: desc.Name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rows[k]; !exists {
		r.order = append(r.order, k)
	}
	r.rows[k] = desc

	return desc, nil
}

// List returns all descriptors in registration order.
func (r *Registry) List() []contractx.CapabilityDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contractx.CapabilityDescriptor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.rows[k])
	}
	return out
}

// Active returns the active subset in registration order.
func (r *Registry) Active() []contractx.CapabilityDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contractx.CapabilityDescriptor, 0, len(r.order))
	for _, k := range r.order {
		if row := r.rows[k]; row.Active {
			out = append(out, row)
		}
	}
	return out
}

// IsActive reports whether any row for the task exists and is disabled.
// Unknown tasks count as active: the kill switch only applies to
// capabilities an administrator has explicitly registered.
func (r *Registry) IsActive(task contractx.TaskName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.order {
		if k.name != task {
			continue
		}
		if !r.rows[k].Active {
			return false
		}
	}
	return true
}

type intentMatches struct {
	Matches []string `json:"matches"`
}

// FindByIntent maps a free-text query to up to three matching descriptors
// by rendering the active catalog as a menu for the generation backend.
func (r *Registry) FindByIntent(ctx context.Context, query string) ([]contractx.CapabilityDescriptor, error) {
	active := r.Active()
	if len(active) == 0 {
		return nil, nil
	}
	if r.gen == nil {
		return nil, contractx.ErrRoutingUnavailable
	}

	var menu strings.Builder
	for _, desc := range active {
		fmt.Fprintf(&menu, "- %s (Agent: %s): %s\n", desc.Name, desc.OwnerRole, desc.Description)
	}

	resp, err := r.gen.Generate(ctx, contractx.GenerateRequest{
		Prompt:     fmt.Sprintf(r.prompts.Intent, query, menu.String()),
		Tier:       contractx.TierLight,
		Structured: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRoutingUnavailable, err)
	}

	var parsed intentMatches
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: intent matches are not valid JSON: %v", contractx.ErrMalformedOutput, err)
	}

	wanted := make(map[contractx.TaskName]struct{}, len(parsed.Matches))
	for _, name := range parsed.Matches {
		wanted[contractx.TaskName(strings.TrimSpace(name))] = struct{}{}
	}

	results := make([]contractx.CapabilityDescriptor, 0, maxIntentMatches)
	for _, desc := range active {
		if _, ok := wanted[desc.Name]; !ok {
			continue
		}
		results = append(results, desc)
		if len(results) == maxIntentMatches {
			break
		}
	}

	r.logger.Debug().Str("query", query).Int("matches", len(results)).Msg("intent lookup")
	return results, nil
}

// SeedDefaults registers the stock capabilities shipped with the platform.
// Idempotent: repeated calls upsert the same rows.
func (r *Registry) SeedDefaults() error {
	defaults := []contractx.CapabilityDescriptor{
		{
			OwnerRole:   "BillingAgent",
			Name:        contractx.TaskCheckInsuranceEligibility,
			Description: "Verifies patient insurance coverage and eligibility for specific procedures.",
			InputSchema: map[string]any{
				"patient_id":     "string",
				"procedure_code": "string",
			},
			OutputSchema: map[string]any{
				"eligible": "boolean",
				"copay":    "number",
			},
			Active: true,
		},
		{
			OwnerRole:   "NurseAgent",
			Name:        contractx.TaskTriage,
			Description: "Assess patient symptoms and assign priority level (1-5).",
			InputSchema: map[string]any{
				"symptoms": "string",
				"vitals":   "object",
			},
			OutputSchema: map[string]any{
				"priority": "integer",
				"notes":    "string",
			},
			Active: true,
		},
		{
			OwnerRole:   "PharmacyAgent",
			Name:        contractx.TaskCheckDrugInteraction,
			Description: "Checks for adverse interactions between a list of medications.",
			InputSchema: map[string]any{
				"medications": "list[string]",
			},
			OutputSchema: map[string]any{
				"interactions": "list[string]",
				"severity":     "string",
			},
			Active: true,
		},
	}

	for _, desc := range defaults {
		if _, err := r.Upsert(desc); err != nil {
			return err
		}
	}
	return nil
}
