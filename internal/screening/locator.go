package screening

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
)

// RecordStore is the tenant-scoped record query interface the locator reads
// from. Implementations must never return records outside the given tenant.
type RecordStore interface {
	FindByNationalID(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, idNorm string) ([]domain.NormalizedRecord, error)
	FindByPassport(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, passportNorm string) ([]domain.NormalizedRecord, error)
	FindByResidentCard(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, cardNorm string) ([]domain.NormalizedRecord, error)
	ListByCategory(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, limit int) ([]domain.NormalizedRecord, error)
}

// candidateStrategy is one step of the key-priority fallback chain. The
// first strategy whose key is present handles the lookup; later strategies
// are not consulted even when the chosen one returns no rows.
type candidateStrategy interface {
	name() string
	applies(q domain.NormalizedIdentity) bool
	locate(ctx context.Context, store RecordStore, tenantID uuid.UUID, cat domain.SourceCategory, q domain.NormalizedIdentity) ([]domain.NormalizedRecord, error)
	matchType() domain.MatchType
}

type nationalIDStrategy struct{}

func (nationalIDStrategy) name() string { return "national_id" }
func (nationalIDStrategy) applies(q domain.NormalizedIdentity) bool { return q.NationalIDNorm != "" }
func (nationalIDStrategy) matchType() domain.MatchType { return domain.MatchTypeIDExact }
func (nationalIDStrategy) locate(ctx context.Context, store RecordStore, tenantID uuid.UUID, cat domain.SourceCategory, q domain.NormalizedIdentity) ([]domain.NormalizedRecord, error) {
	return store.FindByNationalID(ctx, tenantID, cat, q.NationalIDNorm)
}

type passportStrategy struct{}

func (passportStrategy) name() string { return "passport" }
func (passportStrategy) applies(q domain.NormalizedIdentity) bool { return q.PassportNorm != "" }
func (passportStrategy) matchType() domain.MatchType { return domain.MatchTypeIDExact }
func (passportStrategy) locate(ctx context.Context, store RecordStore, tenantID uuid.UUID, cat domain.SourceCategory, q domain.NormalizedIdentity) ([]domain.NormalizedRecord, error) {
	return store.FindByPassport(ctx, tenantID, cat, q.PassportNorm)
}

type residentCardStrategy struct{}

func (residentCardStrategy) name() string { return "resident_card" }
func (residentCardStrategy) applies(q domain.NormalizedIdentity) bool {
	return q.ResidentCardNorm != ""
}
func (residentCardStrategy) matchType() domain.MatchType { return domain.MatchTypeIDExact }
func (residentCardStrategy) locate(ctx context.Context, store RecordStore, tenantID uuid.UUID, cat domain.SourceCategory, q domain.NormalizedIdentity) ([]domain.NormalizedRecord, error) {
	return store.FindByResidentCard(ctx, tenantID, cat, q.ResidentCardNorm)
}

// fuzzyNameStrategy scans all in-scope records of the category, bounded by
// the candidate cap. The similarity threshold is applied downstream, after
// scoring.
type fuzzyNameStrategy struct {
	cap int
}

func (fuzzyNameStrategy) name() string { return "fuzzy_name" }
func (fuzzyNameStrategy) applies(q domain.NormalizedIdentity) bool { return q.FullNameNorm != "" }
func (fuzzyNameStrategy) matchType() domain.MatchType { return domain.MatchTypeNameFuzzy }
func (s fuzzyNameStrategy) locate(ctx context.Context, store RecordStore, tenantID uuid.UUID, cat domain.SourceCategory, q domain.NormalizedIdentity) ([]domain.NormalizedRecord, error) {
	return store.ListByCategory(ctx, tenantID, cat, s.cap)
}

// Locator retrieves candidate records for one source category via the
// key-priority fallback chain.
type Locator struct {
	store      RecordStore
	strategies []candidateStrategy
	log        *logger.Logger
}

// NewLocator creates a locator with the standard strategy order: exact
// national ID, exact passport, exact resident card, capped fuzzy name scan.
func NewLocator(store RecordStore, fuzzyCandidateCap int, log *logger.Logger) *Locator {
	return &Locator{
		store: store,
		strategies: []candidateStrategy{
			nationalIDStrategy{},
			passportStrategy{},
			residentCardStrategy{},
			fuzzyNameStrategy{cap: fuzzyCandidateCap},
		},
		log: log.Named("locator"),
	}
}

// Locate returns the candidate records for the category together with how
// they were located. No identity key at all yields an empty set and an empty
// match type; that is a valid outcome, not an error.
func (l *Locator) Locate(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, q domain.NormalizedIdentity) ([]domain.NormalizedRecord, domain.MatchType, error) {
	for _, s := range l.strategies {
		if !s.applies(q) {
			continue
		}
		records, err := s.locate(ctx, l.store, tenantID, cat, q)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, s.matchType(), nil
			}
			return nil, "", fmt.Errorf("locate %s via %s: %w", cat, s.name(), err)
		}
		return records, s.matchType(), nil
	}
	return nil, "", nil
}
