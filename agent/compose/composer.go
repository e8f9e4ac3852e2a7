// Package compose builds the layered system instruction consumed by
// generation calls: identity, durable personalization, pinned knowledge,
// and retrieved context, in a fixed order so the same state always yields
// the same instruction.
package compose

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	promptx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/prompt"
	statex "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/state"
)

// PersonalizationStore is the slice of the state manager the composer
// reads. The concrete manager carries the write side as well.
type PersonalizationStore interface {
	Load(ctx context.Context, principalID string) (*statex.PersonalizationState, error)
}

const (
	defaultLearningLimit = 5
	defaultSnippetLimit  = 3

	// fixed query used to surface preference-flavored snippets
	preferenceQuery = "patient preferences communication style care priorities"
)

type Composer struct {
	state     PersonalizationStore
	retriever contractx.Retriever
	profiles  contractx.ProfileSource
	prompts   promptx.PromptSet
	logger    zerolog.Logger

	learningLimit int
	snippetLimit  int
}

type Option func(*Composer)

func WithLearningLimit(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.learningLimit = n
		}
	}
}

func WithSnippetLimit(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.snippetLimit = n
		}
	}
}

// New builds a composer. profiles may be nil when no clinical record source
// is wired; the identity layer then omits the patient summary.
func New(state PersonalizationStore, retriever contractx.Retriever, profiles contractx.ProfileSource, opts ...Option) *Composer {
	c := &Composer{
		state:         state,
		retriever:     retriever,
		profiles:      profiles,
		prompts:       promptx.LoadPromptSet(),
		logger:        log.With().Str("component", "composer").Logger(),
		learningLimit: defaultLearningLimit,
		snippetLimit:  defaultSnippetLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BuildInstruction layers the instruction in a fixed order:
// identity, preferences, learning points, preference snippets, pinned
// knowledge, current-query retrieval, closing guidelines. Pure with respect
// to its inputs at call time; retrieval failures skip their layer rather
// than fail the composition.
func (c *Composer) BuildInstruction(ctx context.Context, principalID, role, currentQuery string) (string, error) {
	st, err := c.state.Load(ctx, principalID)
	if err != nil {
		return "", fmt.Errorf("load personalization state: %w", err)
	}

	sections := make([]string, 0, 8)

	// 1. identity preamble
	identity := fmt.Sprintf("You are a helpful AI assistant for a %s.\nPrincipal: %s", role, principalID)
	if profile := c.clinicalSummary(ctx, principalID); profile != "" {
		identity += "\n" + profile
	}
	sections = append(sections, identity)

	// 2. durable preferences, keys sorted for reproducibility
	if len(st.Preferences) > 0 {
		keys := make([]string, 0, len(st.Preferences))
		for k := range st.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString("User preferences:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %s: %s", k, st.Preferences[k])
		}
		sections = append(sections, b.String())
	}

	// 3. recent learning points, insertion order
	if points := st.RecentLearningPoints(c.learningLimit); len(points) > 0 {
		var b strings.Builder
		b.WriteString("Things you've learned about this user:")
		for _, p := range points {
			b.WriteString("\n- " + p)
		}
		sections = append(sections, b.String())
	}

	// 4. preference-flavored retrieval
	if snippets := c.retrieve(ctx, principalID, preferenceQuery); len(snippets) > 0 {
		sections = append(sections, block("Personalization notes:", snippets))
	}

	// 5. pinned knowledge, verbatim
	if pinned := c.retriever.Pinned(principalID); len(pinned) > 0 {
		sections = append(sections, block("Pinned knowledge:", pinned))
	}

	// 6. current-query retrieval, expanded with role context
	if strings.TrimSpace(currentQuery) != "" {
		expanded := fmt.Sprintf("%s (context for a %s)", currentQuery, role)
		if snippets := c.retrieve(ctx, principalID, expanded); len(snippets) > 0 {
			sections = append(sections, block("Relevant context:", snippets))
		}
	}

	// 7. closing guideline block
	sections = append(sections, c.prompts.Closing)

	return strings.Join(sections, "\n\n"), nil
}

func (c *Composer) clinicalSummary(ctx context.Context, principalID string) string {
	if c.profiles == nil {
		return ""
	}
	profile, err := c.profiles.Profile(ctx, principalID)
	if err != nil {
		c.logger.Warn().Err(err).Str("principal_id", principalID).Msg("clinical profile lookup failed")
		return ""
	}
	if profile == nil {
		return ""
	}

	parts := make([]string, 0, 2)
	if len(profile.ChronicConditions) > 0 {
		parts = append(parts, "chronic conditions: "+strings.Join(profile.ChronicConditions, ", "))
	}
	if len(profile.Allergies) > 0 {
		parts = append(parts, "allergies: "+strings.Join(profile.Allergies, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Patient record: " + strings.Join(parts, "; ") + "."
}

func (c *Composer) retrieve(ctx context.Context, ownerKey, query string) []string {
	snippets, err := c.retriever.Query(ctx, ownerKey, query, c.snippetLimit)
	if err != nil {
		c.logger.Warn().Err(err).Str("owner_key", ownerKey).Msg("retrieval failed, skipping layer")
		return nil
	}
	return snippets
}

func block(header string, lines []string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, line := range lines {
		b.WriteString("\n- " + line)
	}
	return b.String()
}
