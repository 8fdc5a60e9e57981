package insurance_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/insurance"
	"github.com/insurance/screening-service/internal/pkg/logger"
	"github.com/insurance/screening-service/internal/store"
)

type ProfileSuite struct {
	suite.Suite

	tenant  uuid.UUID
	subject domain.SubjectKeys
	now     time.Time
	db      *store.InMemory
	builder *insurance.Builder
}

func TestProfileSuite(t *testing.T) {
	suite.Run(t, new(ProfileSuite))
}

func (s *ProfileSuite) SetupTest() {
	s.tenant = uuid.New()
	s.subject = domain.SubjectKeys{NationalID: "123.456.789-00", FullName: "José Maria Silva"}
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.db = store.NewInMemory()

	cfg := &config.InsuranceConfig{
		LatePaymentPenalty:     0.05,
		DefaultPenalty:         0.15,
		FrequencyHighClaims12M: 2,
		FrequencyHighClaims36M: 4,
		SeverityMaxSingleHigh:  5_000_000,
		SeverityTotalHigh:      10_000_000,
		MaxListEntries:         50,
	}
	s.builder = insurance.NewBuilder(s.db, cfg, logger.NewNop()).
		WithClock(func() time.Time { return s.now })
}

func (s *ProfileSuite) addPayment(due time.Time, paid *time.Time) {
	s.db.AddPayment(domain.PaymentRecord{
		ID:       uuid.New(),
		TenantID: s.tenant,
		DueDate:  due,
		PaidAt:   paid,
	}, s.subject)
}

func (s *ProfileSuite) addClaim(filed time.Time, paidMinor int64) {
	s.db.AddClaim(domain.ClaimRecord{
		ID:        uuid.New(),
		TenantID:  s.tenant,
		FiledAt:   filed,
		PaidMinor: paidMinor,
	}, s.subject)
}

func (s *ProfileSuite) build() *domain.InsuranceProfile {
	profile, err := s.builder.Build(context.Background(), s.tenant, s.subject)
	s.Require().NoError(err)
	return profile
}

func ts(t time.Time) *time.Time { return &t }

func (s *ProfileSuite) TestNoKeysYieldsNeutralProfile() {
	profile, err := s.builder.Build(context.Background(), s.tenant, domain.SubjectKeys{})
	s.Require().NoError(err)

	s.Equal(1.0, profile.PayerScore)
	s.Equal(1.0, profile.Payments.OnTimeRatio)
	s.Equal(domain.RiskGradeLow, profile.Claims.FrequencyRisk)
	s.Equal(domain.RiskGradeLow, profile.Claims.SeverityRisk)
	s.Empty(profile.ActivePolicies)
}

func (s *ProfileSuite) TestEmptyHistoryIsNeutral() {
	profile := s.build()

	s.Equal(1.0, profile.PayerScore)
	s.Equal(1.0, profile.Payments.OnTimeRatio)
	s.Zero(profile.Payments.TotalRecords)
}

func (s *ProfileSuite) TestPaymentBehavior() {
	// Three on-time, one late inside the 12-month window.
	s.addPayment(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ts(time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC)))
	s.addPayment(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), ts(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	s.addPayment(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), ts(time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)))
	s.addPayment(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), ts(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC)))

	profile := s.build()

	s.InDelta(0.75, profile.Payments.OnTimeRatio, 1e-9)
	s.Equal(1, profile.Payments.LatePayments12M)
	s.Zero(profile.Payments.Defaults36M)
	s.Equal(4, profile.Payments.TotalRecords)
	// 0.75 on-time ratio minus one late payment penalty.
	s.InDelta(0.70, profile.PayerScore, 1e-9)
}

func (s *ProfileSuite) TestUnpaidPastDueCountsAsDefault() {
	s.addPayment(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), nil)
	// Future due date is not a default.
	s.addPayment(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), nil)
	// Older than 36 months is out of window.
	s.addPayment(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), nil)

	profile := s.build()

	s.Equal(1, profile.Payments.Defaults36M)
}

func (s *ProfileSuite) TestPayerScoreClampedAtZero() {
	for month := time.Month(1); month <= 4; month++ {
		s.addPayment(time.Date(2025, month, 1, 0, 0, 0, 0, time.UTC), nil)
	}

	profile := s.build()

	// Four defaults at 0.15 each exceed the zero on-time ratio.
	s.Equal(0.0, profile.PayerScore)
}

func (s *ProfileSuite) TestClaimFrequencyGrades() {
	s.addClaim(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 100_000)

	profile := s.build()
	s.Equal(1, profile.Claims.Claims12M)
	s.Equal(domain.RiskGradeMedium, profile.Claims.FrequencyRisk)

	s.addClaim(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 100_000)
	profile = s.build()
	s.Equal(2, profile.Claims.Claims12M)
	s.Equal(domain.RiskGradeHigh, profile.Claims.FrequencyRisk)
}

func (s *ProfileSuite) TestClaimSeverityGrades() {
	s.addClaim(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 2_000_000)

	profile := s.build()
	s.Equal(int64(2_000_000), profile.Claims.MaxSingleClaim)
	s.Equal(domain.RiskGradeMedium, profile.Claims.SeverityRisk)

	s.addClaim(time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), 5_000_000)
	profile = s.build()
	s.Equal(domain.RiskGradeHigh, profile.Claims.SeverityRisk)
	s.Equal(int64(7_000_000), profile.Claims.TotalPaid36M)
}

func (s *ProfileSuite) TestClaimWindows() {
	// Inside 36m, outside 12m.
	s.addClaim(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 50_000)
	// Outside both windows.
	s.addClaim(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 50_000)

	profile := s.build()

	s.Zero(profile.Claims.Claims12M)
	s.Equal(1, profile.Claims.Claims36M)
}

func (s *ProfileSuite) TestActivePoliciesAndProducts() {
	s.db.AddPolicy(domain.PolicyRecord{
		ID: uuid.New(), TenantID: s.tenant, ProductType: "AUTO",
		Status: domain.PolicyStatusActive, StartedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}, s.subject)
	s.db.AddPolicy(domain.PolicyRecord{
		ID: uuid.New(), TenantID: s.tenant, ProductType: "LIFE",
		Status: "CANCELLED", StartedAt: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
	}, s.subject)

	profile := s.build()

	s.Len(profile.ActivePolicies, 1)
	s.Equal([]string{"AUTO"}, profile.ProductTypes())
}

func (s *ProfileSuite) TestSevereFraudIndicator() {
	s.db.AddFraudIndicator(domain.FraudIndicator{
		ID: uuid.New(), TenantID: s.tenant, Severity: domain.FraudSeveritySevere,
		FlaggedAt: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
	}, s.subject)

	profile := s.build()

	s.True(profile.HasSevereFraudIndicator())
}

func (s *ProfileSuite) TestSubjectKeyFallback() {
	s.addPayment(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil)

	// Same national ID with different separators resolves the same subject.
	byID, err := s.builder.Build(context.Background(), s.tenant, domain.SubjectKeys{NationalID: "12345678900"})
	s.Require().NoError(err)
	s.Equal(1, byID.Payments.TotalRecords)

	// Name-only lookup matches by substring.
	byName, err := s.builder.Build(context.Background(), s.tenant, domain.SubjectKeys{FullName: "maria silva"})
	s.Require().NoError(err)
	s.Equal(1, byName.Payments.TotalRecords)

	// A different tenant sees nothing.
	other, err := s.builder.Build(context.Background(), uuid.New(), s.subject)
	s.Require().NoError(err)
	s.Zero(other.Payments.TotalRecords)
}
