// Package audit persists one append-only row per specialist consult.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// row maps an AuditRecord onto the agent_audit_log table.
type row struct {
	bun.BaseModel `bun:"table:agent_audit_log"`

	ID             string    `bun:"id,pk"`
	Domain         string    `bun:"domain,notnull"`
	Query          string    `bun:"query"`
	Response       string    `bun:"response"`
	ContextSummary string    `bun:"context_summary"`
	PrincipalID    string    `bun:"principal_id,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresSink writes audit rows to Postgres. Appends are at-least-once:
// a retried insert with the same id is a no-op.
type PostgresSink struct {
	db     *bun.DB
	logger zerolog.Logger
}

func NewPostgresSink(db *bun.DB) *PostgresSink {
	return &PostgresSink{
		db:     db,
		logger: log.With().Str("component", "audit").Logger(),
	}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*row)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create agent_audit_log: %w", err)
	}
	return nil
}

func (s *PostgresSink) Append(ctx context.Context, rec contractx.AuditRecord) error {
	r := row{
		ID:             rec.ID,
		Domain:         rec.Domain,
		Query:          rec.Query,
		Response:       rec.Response,
		ContextSummary: rec.ContextSummary,
		PrincipalID:    rec.PrincipalID,
		CreatedAt:      rec.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&r).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("%w: append audit row: %v", contractx.ErrPersistenceWrite, err)
	}
	return nil
}

// Recent returns the latest audit rows for a principal, newest first.
func (s *PostgresSink) Recent(ctx context.Context, principalID string, limit int) ([]contractx.AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []row
	err := s.db.NewSelect().Model(&rows).
		Where("principal_id = ?", principalID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select audit rows: %w", err)
	}

	out := make([]contractx.AuditRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.AuditRecord{
			ID:             r.ID,
			Domain:         r.Domain,
			Query:          r.Query,
			Response:       r.Response,
			ContextSummary: r.ContextSummary,
			PrincipalID:    r.PrincipalID,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

// NopSink discards audit records. Used in tests and single-node runs
// without Postgres.
type NopSink struct{}

func (NopSink) Append(context.Context, contractx.AuditRecord) error { return nil }
