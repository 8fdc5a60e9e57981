package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskGrade grades a single behavioral dimension of the insurance profile.
type RiskGrade string

const (
	RiskGradeLow    RiskGrade = "LOW"
	RiskGradeMedium RiskGrade = "MEDIUM"
	RiskGradeHigh   RiskGrade = "HIGH"
)

// PolicyRecord is a flat view of one policy row.
type PolicyRecord struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	ProductType  string     `json:"product_type" db:"product_type"`
	Status       string     `json:"status" db:"status"`
	PremiumMinor int64      `json:"premium_minor" db:"premium_minor"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	EndsAt       *time.Time `json:"ends_at,omitempty" db:"ends_at"`
}

// PolicyStatusActive marks a policy currently in force.
const PolicyStatusActive = "ACTIVE"

// PaymentRecord is one premium payment row. PaidAt is nil while unpaid.
type PaymentRecord struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TenantID    uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	PolicyID    uuid.UUID  `json:"policy_id" db:"policy_id"`
	DueDate     time.Time  `json:"due_date" db:"due_date"`
	PaidAt      *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	AmountMinor int64      `json:"amount_minor" db:"amount_minor"`
}

// ClaimRecord is one claim row. PaidMinor is in minor currency units and
// defaults to zero for unparseable or unpaid amounts.
type ClaimRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	PolicyID    uuid.UUID `json:"policy_id" db:"policy_id"`
	ProductType string    `json:"product_type" db:"product_type"`
	FiledAt     time.Time `json:"filed_at" db:"filed_at"`
	PaidMinor   int64     `json:"paid_minor" db:"paid_minor"`
	Status      string    `json:"status" db:"status"`
}

// CancellationRecord is one policy cancellation row.
type CancellationRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	PolicyID    uuid.UUID `json:"policy_id" db:"policy_id"`
	ProductType string    `json:"product_type" db:"product_type"`
	CancelledAt time.Time `json:"cancelled_at" db:"cancelled_at"`
	Reason      string    `json:"reason" db:"reason"`
}

// FraudSeveritySevere marks an indicator that hard-stops underwriting.
const FraudSeveritySevere = "SEVERE"

// FraudIndicator is one internal fraud flag row.
type FraudIndicator struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Severity    string    `json:"severity" db:"severity"`
	Description string    `json:"description" db:"description"`
	FlaggedAt   time.Time `json:"flagged_at" db:"flagged_at"`
}

// PaymentBehavior summarizes premium payment discipline over trailing
// windows anchored at the evaluation time.
type PaymentBehavior struct {
	OnTimeRatio     float64 `json:"on_time_ratio"`
	LatePayments12M int     `json:"late_payments_12m"`
	Defaults36M     int     `json:"defaults_36m"`
	AvgDelayDays    float64 `json:"avg_delay_days"`
	TotalRecords    int     `json:"total_records"`
}

// ClaimsHistory summarizes claim frequency and severity.
type ClaimsHistory struct {
	Claims12M      int       `json:"claims_12m"`
	Claims36M      int       `json:"claims_36m"`
	TotalPaid36M   int64     `json:"total_paid_36m"`
	MaxSingleClaim int64     `json:"max_single_claim"`
	FrequencyRisk  RiskGrade `json:"frequency_risk"`
	SeverityRisk   RiskGrade `json:"severity_risk"`
}

// InsuranceProfile is the behavioral profile of a subject, recomputed on
// demand from the insurer's own tables. Never persisted.
type InsuranceProfile struct {
	PayerScore      float64              `json:"payer_score"`
	Payments        PaymentBehavior      `json:"payment_behavior"`
	Claims          ClaimsHistory        `json:"claims_history"`
	ActivePolicies  []PolicyRecord       `json:"active_policies"`
	Cancellations   []CancellationRecord `json:"cancellations"`
	FraudIndicators []FraudIndicator     `json:"fraud_indicators"`
}

// HasSevereFraudIndicator reports whether any fraud flag is severe.
func (p *InsuranceProfile) HasSevereFraudIndicator() bool {
	for _, f := range p.FraudIndicators {
		if f.Severity == FraudSeveritySevere {
			return true
		}
	}
	return false
}

// ProductTypes returns the distinct product types across active policies, in
// first-seen order.
func (p *InsuranceProfile) ProductTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, pol := range p.ActivePolicies {
		if pol.ProductType == "" || seen[pol.ProductType] {
			continue
		}
		seen[pol.ProductType] = true
		types = append(types, pol.ProductType)
	}
	return types
}
