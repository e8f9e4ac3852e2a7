package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	modeltierx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/modeltier"
	promptx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/prompt"
)

const specialistSnippetLimit = 3

// Specialist is the domain-expert consult handler. One instance per
// clinical domain; all instances share the same consult protocol and
// differ only in domain instruction and action catalog.
type Specialist struct {
	Binding
	deps        Deps
	domain      string
	instruction string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewSpecialist(domain string, deps Deps) *Specialist {
	prompts := promptx.LoadPromptSet()
	return &Specialist{
		Binding: Binding{
			name:        domain + "Specialist",
			role:        "Specialist",
			description: fmt.Sprintf("Domain expert in %s. Handles consults, guidelines, and risk assessment.", domain),
			capabilities: []contractx.TaskName{
				contractx.TaskSpecialistConsult,
				contractx.TaskConsultGuidelines,
				contractx.TaskAssessRisk,
			},
		},
		deps:        deps,
		domain:      domain,
		instruction: prompts.SpecialistInstruction(domain),
		logger:      log.With().Str("component", "specialist").Str("domain", domain).Logger(),
		now:         time.Now,
	}
}

func (s *Specialist) Domain() string {
	return s.domain
}

// Process runs the consult protocol: retrieve principal-scoped context,
// compose the prompt, call the backend on the selected tier, attach the
// role-filtered action list, and append one audit row.
func (s *Specialist) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	case contractx.TaskSpecialistConsult, contractx.TaskConsultGuidelines, contractx.TaskAssessRisk:
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}

	query := payload.String("query")
	if query == "" {
		query = payload.String("case_data")
	}
	caseData := payload.String("case_data")

	snippets := s.retrieveContext(ctx, rc.PrincipalID, query)

	var prompt strings.Builder
	if caseData != "" {
		fmt.Fprintf(&prompt, "Case Context:\n%s\n\n", caseData)
	}
	if len(snippets) > 0 {
		prompt.WriteString("Known Context:\n")
		for _, snip := range snippets {
			prompt.WriteString("- " + snip + "\n")
		}
		prompt.WriteString("\n")
	}
	fmt.Fprintf(&prompt, "Specific Query:\n%s\n\n", query)
	fmt.Fprintf(&prompt, "Provide a detailed, domain-specific response based on your expertise in %s. Cite relevant guidelines if applicable.", s.domain)

	tier := modeltierx.Select(query, s.domain)
	resp, ok, err := s.deps.generate(ctx, contractx.GenerateRequest{
		System: s.instruction,
		Prompt: prompt.String(),
		Tier:   tier,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(s.domain), nil
	}

	actions := FilterActions(actionsForDomain(s.domain), rc.Role)

	out := contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Domain:  s.domain,
		Message: resp.Text,
		Actions: actions,
	}

	s.audit(ctx, rc, query, resp.Text, snippets)

	return out, nil
}

func (s *Specialist) retrieveContext(ctx context.Context, principalID, query string) []string {
	if s.deps.Retriever == nil || strings.TrimSpace(principalID) == "" {
		return nil
	}
	snippets, err := s.deps.Retriever.Query(ctx, principalID, s.domain+" "+query, specialistSnippetLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("context retrieval failed, consulting without snippets")
		return nil
	}
	return snippets
}

// audit appends one record per consult, fire-and-forget: a logging failure
// must never fail the consult itself.
func (s *Specialist) audit(ctx context.Context, rc contractx.RequestContext, query, response string, snippets []string) {
	if s.deps.Audit == nil {
		return
	}

	rec := contractx.AuditRecord{
		ID:             uuid.NewString(),
		Domain:         s.domain,
		Query:          query,
		Response:       response,
		ContextSummary: strings.Join(snippets, "; "),
		PrincipalID:    rc.PrincipalID,
		CreatedAt:      s.now().UTC(),
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.deps.Audit.Append(writeCtx, rec); err != nil {
			s.logger.Error().Err(err).Str("audit_id", rec.ID).Msg("audit append failed")
		}
	}()
}
