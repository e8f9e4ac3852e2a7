// Package router translates free-text queries into structured dispatch
// requests via the generation backend.
package router

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

type Router struct {
	gen      contractx.Generator
	handlers []contractx.Handler
	prompts  promptx.PromptSet
	logger   zerolog.Logger
}

// New builds a router over the ordered handler list. gen may be nil; routing
// then reports ErrRoutingUnavailable.
func New(gen contractx.Generator, handlers []contractx.Handler) *Router {
	return &Router{
		gen:      gen,
		handlers: handlers,
		prompts:  promptx.LoadPromptSet(),
		logger:   log.With().Str("component", "router").Logger(),
	}
}

type routedOutput struct {
	Task    string            `json:"task"`
	Payload contractx.Payload `json:"payload"`
	Error   string            `json:"error"`
}

// RouteFreeText asks the backend for a structured {task, payload} decision.
// A non-JSON or schema-violating response is a routing error, never a
// silent empty success.
func (r *Router) RouteFreeText(ctx context.Context, query string) (contractx.RouteDecision, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: query is empty", contractx.ErrValidation)
	}
	if r.gen == nil {
		return contractx.RouteDecision{}, contractx.ErrRoutingUnavailable
	}

	resp, err := r.gen.Generate(ctx, contractx.GenerateRequest{
		Prompt:     fmt.Sprintf(r.prompts.Router, r.capabilitySummary(), query),
		Tier:       contractx.TierLight,
		Structured: true,
	})
	if err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: %v", contractx.ErrRouting, err)
	}

	var parsed routedOutput
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: %v", contractx.ErrMalformedOutput, err)
	}
	if parsed.Error != "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: %s", contractx.ErrRouting, parsed.Error)
	}

	task := contractx.TaskName(strings.TrimSpace(parsed.Task))
	if task == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: routed task is empty", contractx.ErrMalformedOutput)
	}

	payload := parsed.Payload
	if payload == nil {
		payload = contractx.Payload{}
	}

	r.logger.Debug().Str("query", query).Str("task", string(task)).Msg("routed free text")
	return contractx.RouteDecision{Task: task, Payload: payload}, nil
}

func (r *Router) capabilitySummary() string {
	var b strings.Builder
	for _, h := range r.handlers {
		tasks := h.Capabilities()
		names := make([]string, 0, len(tasks))
		for _, t := range tasks {
			names = append(names, string(t))
		}
		fmt.Fprintf(&b, "- %s: %s (Tasks: %s)\n", h.Name(), h.Description(), strings.Join(names, ", "))
	}
	return b.String()
}
