package insurance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
)

// HistoryStore is the tenant-scoped query interface over the insurer's own
// historical tables. Implementations resolve the subject with the same
// key-priority fallback as screening: exact national ID, exact passport,
// name substring match. No key present yields empty sets, not an error.
type HistoryStore interface {
	Policies(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.PolicyRecord, error)
	Payments(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.PaymentRecord, error)
	Claims(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.ClaimRecord, error)
	Cancellations(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.CancellationRecord, error)
	FraudIndicators(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) ([]domain.FraudIndicator, error)
}

// Builder computes insurance behavioral profiles on demand. Profiles are
// ephemeral; nothing is persisted.
type Builder struct {
	store HistoryStore
	cfg   *config.InsuranceConfig
	log   *logger.Logger

	// now is injectable so window math is testable.
	now func() time.Time
}

// NewBuilder creates a profile builder.
func NewBuilder(store HistoryStore, cfg *config.InsuranceConfig, log *logger.Logger) *Builder {
	return &Builder{
		store: store,
		cfg:   cfg,
		log:   log.Named("profile_builder"),
		now:   time.Now,
	}
}

// WithClock overrides the evaluation clock. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build computes the subject's profile over trailing 12- and 36-month
// windows anchored at the evaluation time. Pure read.
func (b *Builder) Build(ctx context.Context, tenantID uuid.UUID, keys domain.SubjectKeys) (*domain.InsuranceProfile, error) {
	if !keys.HasKey() {
		// No query key: empty profile with a neutral payer score.
		return &domain.InsuranceProfile{PayerScore: 1.0, Payments: domain.PaymentBehavior{OnTimeRatio: 1.0}, Claims: domain.ClaimsHistory{
			FrequencyRisk: domain.RiskGradeLow,
			SeverityRisk:  domain.RiskGradeLow,
		}}, nil
	}

	policies, err := b.store.Policies(ctx, tenantID, keys)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	payments, err := b.store.Payments(ctx, tenantID, keys)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	claims, err := b.store.Claims(ctx, tenantID, keys)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	cancellations, err := b.store.Cancellations(ctx, tenantID, keys)
	if err != nil {
		return nil, fmt.Errorf("load cancellations: %w", err)
	}
	fraud, err := b.store.FraudIndicators(ctx, tenantID, keys)
	if err != nil {
		return nil, fmt.Errorf("load fraud indicators: %w", err)
	}

	now := b.now()
	behavior := b.paymentBehavior(payments, now)
	history := b.claimsHistory(claims, now)

	profile := &domain.InsuranceProfile{
		PayerScore:      b.payerScore(behavior),
		Payments:        behavior,
		Claims:          history,
		ActivePolicies:  activePolicies(policies, b.cfg.MaxListEntries),
		Cancellations:   recentCancellations(cancellations, b.cfg.MaxListEntries),
		FraudIndicators: recentFraud(fraud, b.cfg.MaxListEntries),
	}

	b.log.ProfileBuilt(tenantID.String(), profile.PayerScore, history.Claims36M)
	return profile, nil
}

// paymentBehavior folds payment rows into the behavioral summary. A payment
// is on time when paid no later than its due date; unpaid rows past due
// within 36 months count as defaults.
func (b *Builder) paymentBehavior(payments []domain.PaymentRecord, now time.Time) domain.PaymentBehavior {
	cutoff12 := now.AddDate(0, -12, 0)
	cutoff36 := now.AddDate(0, -36, 0)

	behavior := domain.PaymentBehavior{TotalRecords: len(payments)}
	if len(payments) == 0 {
		// No history is neutral, not adverse.
		behavior.OnTimeRatio = 1.0
		return behavior
	}

	onTime := 0
	paidCount := 0
	var delaySum float64
	for _, p := range payments {
		if p.PaidAt != nil {
			paidCount++
			if !p.PaidAt.After(p.DueDate) {
				onTime++
			} else {
				delaySum += p.PaidAt.Sub(p.DueDate).Hours() / 24
				if p.DueDate.After(cutoff12) {
					behavior.LatePayments12M++
				}
			}
			continue
		}
		if p.DueDate.After(cutoff36) && !p.DueDate.After(now) {
			behavior.Defaults36M++
		}
	}

	behavior.OnTimeRatio = float64(onTime) / float64(len(payments))
	if paidCount > 0 {
		behavior.AvgDelayDays = delaySum / float64(paidCount)
	}
	return behavior
}

// payerScore applies the configured penalties to the on-time ratio, clamped
// to [0,1].
func (b *Builder) payerScore(behavior domain.PaymentBehavior) float64 {
	score := behavior.OnTimeRatio -
		b.cfg.LatePaymentPenalty*float64(behavior.LatePayments12M) -
		b.cfg.DefaultPenalty*float64(behavior.Defaults36M)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (b *Builder) claimsHistory(claims []domain.ClaimRecord, now time.Time) domain.ClaimsHistory {
	cutoff12 := now.AddDate(0, -12, 0)
	cutoff36 := now.AddDate(0, -36, 0)

	var history domain.ClaimsHistory
	for _, c := range claims {
		if c.FiledAt.After(now) {
			continue
		}
		if c.FiledAt.After(cutoff36) {
			history.Claims36M++
			history.TotalPaid36M += c.PaidMinor
			if c.PaidMinor > history.MaxSingleClaim {
				history.MaxSingleClaim = c.PaidMinor
			}
		}
		if c.FiledAt.After(cutoff12) {
			history.Claims12M++
		}
	}

	history.FrequencyRisk = b.frequencyRisk(history)
	history.SeverityRisk = b.severityRisk(history)
	return history
}

func (b *Builder) frequencyRisk(h domain.ClaimsHistory) domain.RiskGrade {
	switch {
	case h.Claims12M >= b.cfg.FrequencyHighClaims12M || h.Claims36M >= b.cfg.FrequencyHighClaims36M:
		return domain.RiskGradeHigh
	case h.Claims12M == 1 || h.Claims36M >= 2:
		return domain.RiskGradeMedium
	default:
		return domain.RiskGradeLow
	}
}

func (b *Builder) severityRisk(h domain.ClaimsHistory) domain.RiskGrade {
	switch {
	case h.MaxSingleClaim >= b.cfg.SeverityMaxSingleHigh || h.TotalPaid36M >= b.cfg.SeverityTotalHigh:
		return domain.RiskGradeHigh
	case h.MaxSingleClaim >= b.cfg.SeverityMaxSingleHigh/3 || h.TotalPaid36M >= b.cfg.SeverityTotalHigh/3:
		return domain.RiskGradeMedium
	default:
		return domain.RiskGradeLow
	}
}

func activePolicies(policies []domain.PolicyRecord, limit int) []domain.PolicyRecord {
	var active []domain.PolicyRecord
	for _, p := range policies {
		if p.Status == domain.PolicyStatusActive {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StartedAt.After(active[j].StartedAt) })
	if len(active) > limit {
		active = active[:limit]
	}
	return active
}

func recentCancellations(cancellations []domain.CancellationRecord, limit int) []domain.CancellationRecord {
	sorted := append([]domain.CancellationRecord(nil), cancellations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CancelledAt.After(sorted[j].CancelledAt) })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func recentFraud(indicators []domain.FraudIndicator, limit int) []domain.FraudIndicator {
	sorted := append([]domain.FraudIndicator(nil), indicators...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FlaggedAt.After(sorted[j].FlaggedAt) })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
