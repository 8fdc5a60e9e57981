package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/screening"
)

// Postgres implements the record, insurance-history and assessment stores on
// a pgx pool. All queries are tenant-scoped in their WHERE clauses.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const recordColumns = `id, tenant_id, source_ref, category, source_weight,
	full_name_norm, national_id_norm, passport_norm, resident_card_norm,
	country, role_or_position, raw_payload, imported_at`

func (s *Postgres) FindByNationalID(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, idNorm string) ([]domain.NormalizedRecord, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+`
		FROM screening_records
		WHERE tenant_id = $1 AND category = $2 AND national_id_norm = $3`,
		tenantID, cat, idNorm)
}

func (s *Postgres) FindByPassport(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, passportNorm string) ([]domain.NormalizedRecord, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+`
		FROM screening_records
		WHERE tenant_id = $1 AND category = $2 AND passport_norm = $3`,
		tenantID, cat, passportNorm)
}

func (s *Postgres) FindByResidentCard(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, cardNorm string) ([]domain.NormalizedRecord, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+`
		FROM screening_records
		WHERE tenant_id = $1 AND category = $2 AND resident_card_norm = $3`,
		tenantID, cat, cardNorm)
}

func (s *Postgres) ListByCategory(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, limit int) ([]domain.NormalizedRecord, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+`
		FROM screening_records
		WHERE tenant_id = $1 AND category = $2
		ORDER BY imported_at DESC, id
		LIMIT $3`,
		tenantID, cat, limit)
}

func (s *Postgres) queryRecords(ctx context.Context, sql string, args ...any) ([]domain.NormalizedRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.NormalizedRecord
	for rows.Next() {
		var r domain.NormalizedRecord
		var payload []byte
		if err := rows.Scan(&r.ID, &r.TenantID, &r.SourceRef, &r.Category, &r.SourceWeight,
			&r.FullNameNorm, &r.NationalIDNorm, &r.PassportNorm, &r.ResidentCardNorm,
			&r.Country, &r.RoleOrPosition, &payload, &r.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &r.RawPayload); err != nil {
				return nil, fmt.Errorf("decode raw payload: %w", err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ReplaceSource swaps all records of one source reference inside a single
// transaction. A per-reference advisory lock serializes concurrent reimports
// of the same reference; distinct references proceed in parallel.
func (s *Postgres) ReplaceSource(ctx context.Context, tenantID uuid.UUID, sourceRef string, cat domain.SourceCategory, records []domain.NormalizedRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reimport: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		tenantID.String()+":"+sourceRef); err != nil {
		return fmt.Errorf("acquire source lock: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM screening_records WHERE tenant_id = $1 AND source_ref = $2`,
		tenantID, sourceRef); err != nil {
		return fmt.Errorf("delete previous records: %w", err)
	}

	if len(records) > 0 {
		copyRows := make([][]any, 0, len(records))
		for _, r := range records {
			payload, err := json.Marshal(r.RawPayload)
			if err != nil {
				return fmt.Errorf("encode raw payload: %w", err)
			}
			copyRows = append(copyRows, []any{
				r.ID, r.TenantID, r.SourceRef, r.Category, r.SourceWeight,
				r.FullNameNorm, r.NationalIDNorm, r.PassportNorm, r.ResidentCardNorm,
				r.Country, r.RoleOrPosition, payload, r.ImportedAt,
			})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"screening_records"},
			[]string{"id", "tenant_id", "source_ref", "category", "source_weight",
				"full_name_norm", "national_id_norm", "passport_norm", "resident_card_norm",
				"country", "role_or_position", "raw_payload", "imported_at"},
			pgx.CopyFromRows(copyRows)); err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// InsertAssessment appends one assessment to the audit trail.
func (s *Postgres) InsertAssessment(ctx context.Context, a *domain.RiskAssessment) error {
	identity, err := json.Marshal(a.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	clusters, err := json.Marshal(a.Clusters)
	if err != nil {
		return fmt.Errorf("encode clusters: %w", err)
	}
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO risk_assessments
		(id, tenant_id, identity, score, band, clusters, factors, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.TenantID, identity, a.Score, a.Band, clusters, factors, a.CreatedBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// GetAssessment loads one persisted assessment.
func (s *Postgres) GetAssessment(ctx context.Context, tenantID, id uuid.UUID) (*domain.RiskAssessment, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, tenant_id, identity, score, band, clusters, factors, created_by, created_at
		FROM risk_assessments WHERE tenant_id = $1 AND id = $2`, tenantID, id)

	var a domain.RiskAssessment
	var identity, clusters, factors []byte
	if err := row.Scan(&a.ID, &a.TenantID, &identity, &a.Score, &a.Band, &clusters, &factors, &a.CreatedBy, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	if err := json.Unmarshal(identity, &a.Identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if err := json.Unmarshal(clusters, &a.Clusters); err != nil {
		return nil, fmt.Errorf("decode clusters: %w", err)
	}
	if err := json.Unmarshal(factors, &a.Factors); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	return &a, nil
}

// --- insurance history ---

// subjectClause builds the key-priority predicate for subject lookups:
// exact national ID, else exact passport, else name ILIKE substring. Returns
// an empty clause when no key is present.
func subjectClause(keys domain.SubjectKeys, argOffset int) (string, []any) {
	switch {
	case keys.NationalID != "":
		return fmt.Sprintf("holder_national_id_norm = $%d", argOffset), []any{screening.NormalizeID(keys.NationalID)}
	case keys.Passport != "":
		return fmt.Sprintf("holder_passport_norm = $%d", argOffset), []any{screening.NormalizeID(keys.Passport)}
	case keys.FullName != "":
		return fmt.Sprintf("holder_name ILIKE '%%' || $%d || '%%'", argOffset), []any{keys.FullName}
	default:
		return "", nil
	}
}

func (s *Postgres) Policies(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.PolicyRecord, error) {
	clause, args := subjectClause(keys, 2)
	if clause == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, product_type, status, premium_minor, started_at, ends_at
		FROM policies WHERE tenant_id = $1 AND `+clause, append([]any{tenantID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	var out []domain.PolicyRecord
	for rows.Next() {
		var p domain.PolicyRecord
		if err := rows.Scan(&p.ID, &p.TenantID, &p.ProductType, &p.Status, &p.PremiumMinor, &p.StartedAt, &p.EndsAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) Payments(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.PaymentRecord, error) {
	clause, args := subjectClause(keys, 2)
	if clause == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, policy_id, due_date, paid_at, amount_minor
		FROM policy_payments WHERE tenant_id = $1 AND `+clause, append([]any{tenantID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []domain.PaymentRecord
	for rows.Next() {
		var p domain.PaymentRecord
		if err := rows.Scan(&p.ID, &p.TenantID, &p.PolicyID, &p.DueDate, &p.PaidAt, &p.AmountMinor); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) Claims(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.ClaimRecord, error) {
	clause, args := subjectClause(keys, 2)
	if clause == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, policy_id, product_type, filed_at, COALESCE(paid_minor, 0), status
		FROM claims WHERE tenant_id = $1 AND `+clause, append([]any{tenantID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var out []domain.ClaimRecord
	for rows.Next() {
		var c domain.ClaimRecord
		if err := rows.Scan(&c.ID, &c.TenantID, &c.PolicyID, &c.ProductType, &c.FiledAt, &c.PaidMinor, &c.Status); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) Cancellations(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.CancellationRecord, error) {
	clause, args := subjectClause(keys, 2)
	if clause == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, policy_id, product_type, cancelled_at, reason
		FROM policy_cancellations WHERE tenant_id = $1 AND `+clause, append([]any{tenantID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query cancellations: %w", err)
	}
	defer rows.Close()

	var out []domain.CancellationRecord
	for rows.Next() {
		var c domain.CancellationRecord
		if err := rows.Scan(&c.ID, &c.TenantID, &c.PolicyID, &c.ProductType, &c.CancelledAt, &c.Reason); err != nil {
			return nil, fmt.Errorf("scan cancellation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) FraudIndicators(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.FraudIndicator, error) {
	clause, args := subjectClause(keys, 2)
	if clause == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, severity, description, flagged_at
		FROM fraud_indicators WHERE tenant_id = $1 AND `+clause, append([]any{tenantID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query fraud indicators: %w", err)
	}
	defer rows.Close()

	var out []domain.FraudIndicator
	for rows.Next() {
		var f domain.FraudIndicator
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Severity, &f.Description, &f.FlaggedAt); err != nil {
			return nil, fmt.Errorf("scan fraud indicator: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
