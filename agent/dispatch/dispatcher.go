// Package dispatch is the single entry point external callers use to run a
// task: consent gate, handler resolution, payload validation, invocation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	domainx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/domain"
	registryx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/registry"
)

// restrictedTasks additionally require data-sharing consent because they
// hand case material to external research backends.
var restrictedTasks = map[contractx.TaskName]struct{}{
	contractx.TaskResearchCondition: {},
	contractx.TaskContributeData:    {},
}

type Dispatcher struct {
	consent    contractx.ConsentSource
	registry   *registryx.Registry
	classifier *domainx.Classifier
	handlers   []contractx.Handler
	byTask     map[contractx.TaskName]contractx.Handler
	logger     zerolog.Logger
}

// New builds the dispatcher over an ordered handler list. The task map is
// frozen here: the first handler to claim a task keeps it, and every
// shadowed claim is logged so overlapping capability sets are visible at
// startup instead of silently losing at runtime.
func New(
	consent contractx.ConsentSource,
	reg *registryx.Registry,
	classifier *domainx.Classifier,
	handlers []contractx.Handler,
) (*Dispatcher, error) {
	if consent == nil {
		return nil, errors.New("consent source is required")
	}
	if len(handlers) == 0 {
		return nil, errors.New("at least one handler is required")
	}

	logger := log.With().Str("component", "dispatcher").Logger()

	byTask := make(map[contractx.TaskName]contractx.Handler)
	for _, h := range handlers {
		for _, task := range h.Capabilities() {
			if first, claimed := byTask[task]; claimed {
				logger.Warn().
					Str("task", string(task)).
					Str("kept", first.Name()).
					Str("shadowed", h.Name()).
					Msg("duplicate capability claim, keeping first registrant")
				continue
			}
			byTask[task] = h
		}
	}

	return &Dispatcher{
		consent:    consent,
		registry:   reg,
		classifier: classifier,
		handlers:   handlers,
		byTask:     byTask,
		logger:     logger,
	}, nil
}

// Dispatch runs one task under the consent gate. Handler-level results and
// errors propagate unchanged; the dispatcher only adds the consent and
// resolution envelope around them.
func (d *Dispatcher) Dispatch(ctx context.Context, env contractx.DispatchEnvelope) (contractx.AgentResponse, error) {
	task := contractx.TaskName(strings.TrimSpace(string(env.Task)))
	if task == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: task is required", contractx.ErrValidation)
	}
	principalID := strings.TrimSpace(env.Context.PrincipalID)
	if principalID == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: principal id is required", contractx.ErrValidation)
	}

	consent, err := d.consent.Consent(ctx, principalID)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("consent lookup for principal=%s: %w", principalID, err)
	}
	if !consent.GDPR {
		return contractx.AgentResponse{}, fmt.Errorf(
			"%w: enable GDPR consent in your profile to use AI agents", contractx.ErrConsentDenied)
	}
	if _, restricted := restrictedTasks[task]; restricted && !consent.DataSharing {
		return contractx.AgentResponse{}, fmt.Errorf(
			"%w: enable data sharing to use research agents", contractx.ErrConsentDenied)
	}

	if d.registry != nil && !d.registry.IsActive(task) {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s", contractx.ErrCapabilityDisabled, task)
	}

	payload := env.Payload
	if payload == nil {
		payload = contractx.Payload{}
	}

	handler, err := d.resolve(ctx, task, payload)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	if err := validatePayload(task, payload); err != nil {
		return contractx.AgentResponse{}, err
	}

	d.logger.Info().
		Str("task", string(task)).
		Str("handler", handler.Name()).
		Str("principal_id", principalID).
		Msg("dispatching")

	return handler.Process(ctx, task, payload, env.Context)
}

// resolve picks the handler for a task. Resolution order is the
// registration order frozen at construction, so the same task always maps
// to the same handler.
func (d *Dispatcher) resolve(ctx context.Context, task contractx.TaskName, payload contractx.Payload) (contractx.Handler, error) {
	if task == contractx.TaskSpecialistConsult {
		return d.resolveSpecialist(ctx, payload)
	}

	handler, ok := d.byTask[task]
	if !ok {
		return nil, fmt.Errorf("%w: task=%s", contractx.ErrNoCapableAgent, task)
	}
	return handler, nil
}

// resolveSpecialist routes a specialist consult by its declared or
// classified domain, falling back to the doctor with the domain folded into
// the query when no specialist matches.
func (d *Dispatcher) resolveSpecialist(ctx context.Context, payload contractx.Payload) (contractx.Handler, error) {
	dom := strings.TrimSpace(payload.String("domain"))
	if dom == "" {
		if caseData := payload.String("case_data"); caseData != "" {
			classification := d.classifier.Classify(ctx, caseData)
			dom = classification.Domain
			payload["domain"] = dom
		} else {
			dom = domainx.General
		}
	}

	for _, h := range d.handlers {
		if dh, ok := h.(contractx.DomainHandler); ok && dh.Domain() == dom {
			return dh, nil
		}
	}

	// no specialist for this domain: hand the consult to the doctor
	if doctor, ok := d.byTask[contractx.TaskDiagnose]; ok {
		query := strings.TrimSpace(payload.String("query"))
		if query == "" {
			query = payload.String("case_data")
		}
		payload["query"] = fmt.Sprintf("[Domain: %s] %s", dom, query)
		return doctor, nil
	}

	return nil, fmt.Errorf("%w: task=%s domain=%s", contractx.ErrNoCapableAgent, contractx.TaskSpecialistConsult, dom)
}
