// Package handlers contains the capability-bearing agents resolved by the
// dispatcher. Capability sets are fixed at construction; the dispatcher
// owns task-to-handler resolution.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	composex "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/compose"
	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// Binding carries the identity every handler shares: name, owner role,
// description, and the closed capability set.
type Binding struct {
	name         string
	role         string
	description  string
	capabilities []contractx.TaskName
}

func (b Binding) Name() string        { return b.name }
func (b Binding) Role() string        { return b.role }
func (b Binding) Description() string { return b.description }

func (b Binding) Capabilities() []contractx.TaskName { return b.capabilities }

// Deps are the collaborators shared across handlers. Gen may be nil
// (backend offline); Composer may be nil (no personalization wired).
type Deps struct {
	Gen       contractx.Generator
	Composer  *composex.Composer
	Retriever contractx.Retriever
	Audit     contractx.AuditSink
}

// systemInstruction builds the personalized instruction for a request, or
// a bare role instruction when no composer is wired.
func (d Deps) systemInstruction(ctx context.Context, rc contractx.RequestContext, currentQuery string) string {
	if d.Composer == nil {
		return fmt.Sprintf("You are an expert medical AI assistant helping a %s.", rc.Role)
	}
	instruction, err := d.Composer.BuildInstruction(ctx, rc.PrincipalID, rc.Role, currentQuery)
	if err != nil {
		return fmt.Sprintf("You are an expert medical AI assistant helping a %s.", rc.Role)
	}
	return instruction
}

// generate wraps the backend call. The bool result is false when the
// backend is offline and the handler should answer with a service-offline
// response instead of an error.
func (d Deps) generate(ctx context.Context, req contractx.GenerateRequest) (contractx.GenerateResponse, bool, error) {
	if d.Gen == nil {
		return contractx.GenerateResponse{}, false, nil
	}
	resp, err := d.Gen.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, contractx.ErrModelUnavailable) {
			return contractx.GenerateResponse{}, false, nil
		}
		return contractx.GenerateResponse{}, false, err
	}
	return resp, true, nil
}

func serviceOffline(domain string) contractx.AgentResponse {
	return contractx.AgentResponse{
		Status:  contractx.StatusError,
		Domain:  domain,
		Message: "AI service offline. Please try again later.",
	}
}

func unknownTask(task contractx.TaskName) error {
	return fmt.Errorf("%w: task=%s", contractx.ErrNoCapableAgent, task)
}

// decodeStructured parses a structured backend reply, distinguishing a
// malformed reply from a successful-but-empty one.
func decodeStructured(text string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrMalformedOutput, err)
	}
	return out, nil
}
