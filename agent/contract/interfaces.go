package contract

import "context"

// Handler is a capability-bearing agent. Capability membership is fixed at
// construction; Process receives only tasks the dispatcher resolved to this
// handler.
type Handler interface {
	Name() string
	Role() string
	Description() string
	Capabilities() []TaskName
	Process(ctx context.Context, task TaskName, payload Payload, rc RequestContext) (AgentResponse, error)
}

// DomainHandler is implemented by specialists bound to a clinical domain.
// The dispatcher uses it to route specialist_consult by classified domain.
type DomainHandler interface {
	Handler
	Domain() string
}

// Generator is the opaque generation backend. Never assumed available;
// implementations surface ErrModelUnavailable / ErrModelTimeout.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// Retriever is the slice of the retrieval store the context pipeline needs.
type Retriever interface {
	Add(ctx context.Context, ownerKey, text string, metadata map[string]any) error
	Query(ctx context.Context, ownerKey, text string, limit int) ([]string, error)
	Pinned(ownerKey string) []string
}

// ConsentSource exposes per-principal consent flags, read-only.
type ConsentSource interface {
	Consent(ctx context.Context, principalID string) (Consent, error)
}

// ProfileSource optionally resolves a clinical profile for a principal.
// Returning (nil, nil) means no clinical record exists.
type ProfileSource interface {
	Profile(ctx context.Context, principalID string) (*ClinicalProfile, error)
}

// AuditSink appends consult audit rows. Append is fire-and-forget from the
// caller's perspective; failures are logged, never propagated.
type AuditSink interface {
	Append(ctx context.Context, rec AuditRecord) error
}
