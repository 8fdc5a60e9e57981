package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/screening"
)

// InMemory is a store implementation backed by maps. It mirrors the
// semantics of the postgres store, including tenant isolation, the
// delete-then-insert reimport contract, and the subject key fallback for
// history queries. Used by tests and local development.
type InMemory struct {
	mu sync.RWMutex

	records       []domain.NormalizedRecord
	assessments   []domain.RiskAssessment
	policies      []domain.PolicyRecord
	payments      []domain.PaymentRecord
	claims        []domain.ClaimRecord
	cancellations []domain.CancellationRecord
	fraud         []domain.FraudIndicator

	// subjects maps a history row ID to its subject, standing in for the
	// join columns of the relational schema.
	subjects map[uuid.UUID]domain.SubjectKeys
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{subjects: make(map[uuid.UUID]domain.SubjectKeys)}
}

// --- RecordStore ---

func (s *InMemory) FindByNationalID(_ context.Context, tenantID uuid.UUID, cat domain.SourceCategory, idNorm string) ([]domain.NormalizedRecord, error) {
	return s.findRecords(tenantID, cat, func(r domain.NormalizedRecord) bool {
		return r.NationalIDNorm == idNorm
	}), nil
}

func (s *InMemory) FindByPassport(_ context.Context, tenantID uuid.UUID, cat domain.SourceCategory, passportNorm string) ([]domain.NormalizedRecord, error) {
	return s.findRecords(tenantID, cat, func(r domain.NormalizedRecord) bool {
		return r.PassportNorm == passportNorm
	}), nil
}

func (s *InMemory) FindByResidentCard(_ context.Context, tenantID uuid.UUID, cat domain.SourceCategory, cardNorm string) ([]domain.NormalizedRecord, error) {
	return s.findRecords(tenantID, cat, func(r domain.NormalizedRecord) bool {
		return r.ResidentCardNorm == cardNorm
	}), nil
}

func (s *InMemory) ListByCategory(_ context.Context, tenantID uuid.UUID, cat domain.SourceCategory, limit int) ([]domain.NormalizedRecord, error) {
	records := s.findRecords(tenantID, cat, func(domain.NormalizedRecord) bool { return true })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *InMemory) findRecords(tenantID uuid.UUID, cat domain.SourceCategory, match func(domain.NormalizedRecord) bool) []domain.NormalizedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.NormalizedRecord
	for _, r := range s.records {
		if r.TenantID == tenantID && r.Category == cat && match(r) {
			out = append(out, r)
		}
	}
	return out
}

// --- RecordWriter ---

// ReplaceSource deletes every record tied to the source reference and
// inserts the new set under one lock, so readers never observe a partial
// replacement.
func (s *InMemory) ReplaceSource(_ context.Context, tenantID uuid.UUID, sourceRef string, _ domain.SourceCategory, records []domain.NormalizedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if r.TenantID == tenantID && r.SourceRef == sourceRef {
			continue
		}
		kept = append(kept, r)
	}
	s.records = append(kept, records...)
	return nil
}

// RecordCount returns the number of records for a tenant + source reference.
func (s *InMemory) RecordCount(tenantID uuid.UUID, sourceRef string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.records {
		if r.TenantID == tenantID && r.SourceRef == sourceRef {
			n++
		}
	}
	return n
}

// --- AssessmentStore ---

func (s *InMemory) InsertAssessment(_ context.Context, a *domain.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, *a)
	return nil
}

// GetAssessment loads one persisted assessment.
func (s *InMemory) GetAssessment(_ context.Context, tenantID, id uuid.UUID) (*domain.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.assessments {
		if a.TenantID == tenantID && a.ID == id {
			out := a
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Assessments returns the persisted assessments for a tenant.
func (s *InMemory) Assessments(tenantID uuid.UUID) []domain.RiskAssessment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RiskAssessment
	for _, a := range s.assessments {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out
}

// --- HistoryStore ---

// Seed helpers for tests and local fixtures.

func (s *InMemory) AddPolicy(p domain.PolicyRecord, holder domain.SubjectKeys) {
	s.seedSubject(p.ID, holder)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = append(s.policies, p)
}

func (s *InMemory) AddPayment(p domain.PaymentRecord, holder domain.SubjectKeys) {
	s.seedSubject(p.ID, holder)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
}

func (s *InMemory) AddClaim(c domain.ClaimRecord, holder domain.SubjectKeys) {
	s.seedSubject(c.ID, holder)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = append(s.claims, c)
}

func (s *InMemory) AddCancellation(c domain.CancellationRecord, holder domain.SubjectKeys) {
	s.seedSubject(c.ID, holder)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancellations = append(s.cancellations, c)
}

func (s *InMemory) AddFraudIndicator(f domain.FraudIndicator, holder domain.SubjectKeys) {
	s.seedSubject(f.ID, holder)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fraud = append(s.fraud, f)
}

func (s *InMemory) seedSubject(rowID uuid.UUID, holder domain.SubjectKeys) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[rowID] = holder
}

// subjectMatches applies the key-priority fallback: exact national ID, exact
// passport, then case-insensitive name substring.
func subjectMatches(query, holder domain.SubjectKeys) bool {
	if query.NationalID != "" {
		return screening.NormalizeID(query.NationalID) == screening.NormalizeID(holder.NationalID)
	}
	if query.Passport != "" {
		return screening.NormalizeID(query.Passport) == screening.NormalizeID(holder.Passport)
	}
	if query.FullName != "" {
		return strings.Contains(screening.NormalizeName(holder.FullName), screening.NormalizeName(query.FullName))
	}
	return false
}

// rowSubjectMatches must be called with s.mu held.
func (s *InMemory) rowSubjectMatches(rowID uuid.UUID, query domain.SubjectKeys) bool {
	holder, ok := s.subjects[rowID]
	return ok && subjectMatches(query, holder)
}

func (s *InMemory) Policies(_ context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.PolicyRecord, error) {
	if !keys.HasKey() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PolicyRecord
	for _, p := range s.policies {
		if p.TenantID == tenantID && s.rowSubjectMatches(p.ID, keys) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *InMemory) Payments(_ context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.PaymentRecord, error) {
	if !keys.HasKey() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PaymentRecord
	for _, p := range s.payments {
		if p.TenantID == tenantID && s.rowSubjectMatches(p.ID, keys) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *InMemory) Claims(_ context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.ClaimRecord, error) {
	if !keys.HasKey() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ClaimRecord
	for _, c := range s.claims {
		if c.TenantID == tenantID && s.rowSubjectMatches(c.ID, keys) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemory) Cancellations(_ context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.CancellationRecord, error) {
	if !keys.HasKey() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CancellationRecord
	for _, c := range s.cancellations {
		if c.TenantID == tenantID && s.rowSubjectMatches(c.ID, keys) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemory) FraudIndicators(_ context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.FraudIndicator, error) {
	if !keys.HasKey() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.FraudIndicator
	for _, f := range s.fraud {
		if f.TenantID == tenantID && s.rowSubjectMatches(f.ID, keys) {
			out = append(out, f)
		}
	}
	return out, nil
}
