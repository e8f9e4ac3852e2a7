package handlers

import (
	"context"
	"fmt"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	retrievalx "github.com/nawinto99/Helia-Clinical-Agent-Core/retrieval"
)

// Researcher conducts literature research and guideline lookups. All of its
// tasks are restricted: the dispatcher requires data-sharing consent before
// any of them reach this handler.
type Researcher struct {
	Binding
	deps Deps
}

func NewResearcher(deps Deps) *Researcher {
	return &Researcher{
		Binding: Binding{
			name:        "ResearcherAgent",
			role:        "Researcher",
			description: "Conducts medical literature research, finds clinical guidelines, and cross-references external databases.",
			capabilities: []contractx.TaskName{
				contractx.TaskResearchCondition,
				contractx.TaskFindGuidelines,
				contractx.TaskContributeData,
			},
		},
		deps: deps,
	}
}

func (r *Researcher) Process(ctx context.Context, task contractx.TaskName, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	switch task {
	case contractx.TaskResearchCondition:
		return r.researchCondition(ctx, payload, rc)
	case contractx.TaskFindGuidelines:
		return r.findGuidelines(ctx, payload, rc)
	case contractx.TaskContributeData:
		return r.contributeData(ctx, payload, rc)
	default:
		return contractx.AgentResponse{}, unknownTask(task)
	}
}

func (r *Researcher) researchCondition(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	query := payload.String("query")

	prompt := fmt.Sprintf(
		"ACT AS: Medical Research Librarian.\nTASK: Conduct a comprehensive research summary for: %q\n"+
			"SOURCES: Cite standard medical texts (e.g., Harrison's, UpToDate style).\n\n"+
			`Return JSON: {"summary": "string", "recent_advancements": ["string"], "key_references": ["string"]}`,
		query)

	resp, ok, err := r.deps.generate(ctx, contractx.GenerateRequest{
		System:     r.deps.systemInstruction(ctx, rc, query),
		Prompt:     prompt,
		Tier:       contractx.TierHeavy,
		Structured: true,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}

	research, err := decodeStructured(resp.Text)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Research summary compiled.",
		Data:    research,
	}, nil
}

func (r *Researcher) findGuidelines(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	condition := payload.String("condition")
	if condition == "" {
		condition = payload.String("query")
	}
	region := payload.String("region")
	if region == "" {
		region = "US/International"
	}

	prompt := fmt.Sprintf(
		"ACT AS: Clinical Guidelines Expert.\nTASK: Find the current gold-standard clinical guidelines for %q in region %q.\n\n"+
			`Return JSON: {"guideline_title": "string", "organization": "string (e.g. AHA, ACC, WHO)", "year": "latest", "key_recommendations": ["string"], "url_stub": "string"}`,
		condition, region)

	resp, ok, err := r.deps.generate(ctx, contractx.GenerateRequest{
		System:     r.deps.systemInstruction(ctx, rc, condition),
		Prompt:     prompt,
		Tier:       contractx.TierLight,
		Structured: true,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}

	guidelines, err := decodeStructured(resp.Text)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Guidelines located.",
		Data:    guidelines,
	}, nil
}

// contributeData anonymizes a case writeup and indexes it in the shared
// guidelines partition so future consults can retrieve it.
func (r *Researcher) contributeData(ctx context.Context, payload contractx.Payload, rc contractx.RequestContext) (contractx.AgentResponse, error) {
	caseData := payload.String("case_data")
	if caseData == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: case_data is required", contractx.ErrInvalidPayload)
	}

	prompt := fmt.Sprintf(
		"Anonymize the following case for a research registry: strip every identifier "+
			"(names, dates, locations, IDs) and rewrite it as a concise clinical vignette.\n\nCase: %s",
		caseData)

	resp, ok, err := r.deps.generate(ctx, contractx.GenerateRequest{
		System: r.deps.systemInstruction(ctx, rc, ""),
		Prompt: prompt,
		Tier:   contractx.TierLight,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if !ok {
		return serviceOffline(""), nil
	}

	if r.deps.Retriever != nil {
		meta := map[string]any{"source": "contribute_data", "contributed_by": rc.PrincipalID}
		if err := r.deps.Retriever.Add(ctx, retrievalx.GlobalGuidelinesKey, resp.Text, meta); err != nil {
			return contractx.AgentResponse{}, fmt.Errorf("index contributed case: %w", err)
		}
	}

	return contractx.AgentResponse{
		Status:  contractx.StatusSuccess,
		Message: "Case anonymized and contributed to the research registry.",
		Data:    map[string]any{"vignette": resp.Text},
	}, nil
}
