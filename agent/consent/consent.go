// Package consent reads per-principal consent flags and clinical profiles.
// Both views are read-only here; consent is granted and revoked through the
// account surface, never by agents.
package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

var ErrPrincipalNotFound = errors.New("principal not found")

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID                 string `bun:"id,pk"`
	GDPRConsent        bool   `bun:"gdpr_consent"`
	DataSharingConsent bool   `bun:"data_sharing_consent"`
}

type patientRow struct {
	bun.BaseModel `bun:"table:patients"`

	ID                string   `bun:"id,pk"`
	UserID            string   `bun:"user_id"`
	BaselineIllnesses []string `bun:"baseline_illnesses,type:jsonb"`
	Allergies         []string `bun:"allergies,type:jsonb"`
}

// PostgresSource resolves consent and clinical profiles from the users and
// patients tables.
type PostgresSource struct {
	db *bun.DB
}

func NewPostgresSource(db *bun.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Consent(ctx context.Context, principalID string) (contractx.Consent, error) {
	var u userRow
	err := s.db.NewSelect().Model(&u).
		Column("id", "gdpr_consent", "data_sharing_consent").
		Where("id = ?", principalID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Consent{}, fmt.Errorf("%w: id=%s", ErrPrincipalNotFound, principalID)
	}
	if err != nil {
		return contractx.Consent{}, fmt.Errorf("select consent: %w", err)
	}
	return contractx.Consent{GDPR: u.GDPRConsent, DataSharing: u.DataSharingConsent}, nil
}

// Profile returns the clinical profile linked to a principal, or (nil, nil)
// when the principal has no patient record.
func (s *PostgresSource) Profile(ctx context.Context, principalID string) (*contractx.ClinicalProfile, error) {
	var p patientRow
	err := s.db.NewSelect().Model(&p).
		Column("id", "user_id", "baseline_illnesses", "allergies").
		Where("user_id = ?", principalID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select patient profile: %w", err)
	}
	return &contractx.ClinicalProfile{
		ChronicConditions: p.BaselineIllnesses,
		Allergies:         p.Allergies,
	}, nil
}

// StaticSource serves consent and profiles from memory. Used in tests and
// single-node runs without Postgres.
type StaticSource struct {
	mu       sync.RWMutex
	consents map[string]contractx.Consent
	profiles map[string]*contractx.ClinicalProfile
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		consents: make(map[string]contractx.Consent),
		profiles: make(map[string]*contractx.ClinicalProfile),
	}
}

func (s *StaticSource) SetConsent(principalID string, c contractx.Consent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consents[principalID] = c
}

func (s *StaticSource) SetProfile(principalID string, p *contractx.ClinicalProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[principalID] = p
}

func (s *StaticSource) Consent(_ context.Context, principalID string) (contractx.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consents[principalID]
	if !ok {
		return contractx.Consent{}, fmt.Errorf("%w: id=%s", ErrPrincipalNotFound, principalID)
	}
	return c, nil
}

func (s *StaticSource) Profile(_ context.Context, principalID string) (*contractx.ClinicalProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[principalID], nil
}
