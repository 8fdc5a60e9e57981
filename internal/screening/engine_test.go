package screening_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
	"github.com/insurance/screening-service/internal/screening"
	"github.com/insurance/screening-service/internal/store"
)

type EngineSuite struct {
	suite.Suite

	tenantA uuid.UUID
	tenantB uuid.UUID
	db      *store.InMemory
	engine  *screening.Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	cfg := &config.ScreeningConfig{
		SourceWeights: map[string]int{
			"PEP":           40,
			"SANCTIONS":     50,
			"ADVERSE_MEDIA": 40,
			"WATCHLIST":     40,
		},
		DefaultSourceWeight:     40,
		HigherScrutinyCountries: []string{"IR", "KP", "SY"},
		IDMatchBonus:            10,
		HigherScrutinyPoints:    10,
		LowerScrutinyDeduct:     5,
		ClusterDiversityBonus:   3,
		BaselineScore:           10,
		FuzzyMinSimilarity:      0.5,
		FuzzyCandidateCap:       200,
		BandLowMax:              25,
		BandMediumMax:           50,
		BandHighMax:             75,
	}

	s.tenantA = uuid.New()
	s.tenantB = uuid.New()
	s.db = store.NewInMemory()

	log := logger.NewNop()
	locator := screening.NewLocator(s.db, cfg.FuzzyCandidateCap, log)
	scorer := screening.NewScorer(cfg)
	aggregator := screening.NewAggregator(cfg.ClusterDiversityBonus)
	s.engine = screening.NewEngine(locator, scorer, aggregator, cfg, log)
}

func (s *EngineSuite) seed(tenantID uuid.UUID, cat domain.SourceCategory, weight int, name, nationalID string) {
	rec := domain.NormalizedRecord{
		ID:             uuid.New(),
		TenantID:       tenantID,
		SourceRef:      "seed-" + string(cat),
		Category:       cat,
		SourceWeight:   weight,
		FullNameNorm:   screening.NormalizeName(name),
		NationalIDNorm: screening.NormalizeID(nationalID),
		ImportedAt:     time.Now(),
	}
	existing, err := s.db.ListByCategory(context.Background(), tenantID, cat, 0)
	s.Require().NoError(err)
	s.Require().NoError(s.db.ReplaceSource(context.Background(), tenantID, rec.SourceRef, cat, append(existing, rec)))
}

func (s *EngineSuite) TestNoIdentityKeyYieldsBaseline() {
	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{})
	s.Require().NoError(err)

	s.Equal(10, assessment.Score)
	s.Equal(domain.RiskBandLow, assessment.Band)
	s.Empty(assessment.Clusters)
	s.Equal([]string{screening.NoMatchFactor}, assessment.Factors)
}

func (s *EngineSuite) TestNoMatchYieldsBaseline() {
	s.seed(s.tenantA, domain.CategorySanctions, 50, "Somebody Else", "999")

	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{
		FullName:   "José Maria Silva",
		NationalID: "123",
	})
	s.Require().NoError(err)

	s.Equal(10, assessment.Score)
	s.Equal(domain.RiskBandLow, assessment.Band)
	s.Equal([]string{screening.NoMatchFactor}, assessment.Factors)
}

func (s *EngineSuite) TestExactSanctionsMatch() {
	s.seed(s.tenantA, domain.CategorySanctions, 50, "José Maria Silva", "12.345.678-90")

	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{
		FullName:   "Jose Maria Silva",
		NationalID: "1234567890",
	})
	s.Require().NoError(err)

	// 50 weight + 10 similarity + 10 id bonus, plus 3 diversity for one
	// source category.
	s.Equal(73, assessment.Score)
	s.Equal(domain.RiskBandHigh, assessment.Band)
	s.Require().Len(assessment.Clusters, 1)
	s.Equal(domain.MatchTypeIDExact, assessment.Clusters[0].Hits[0].MatchType)
	s.True(assessment.HasSanctionsExactMatch())
	s.NotEmpty(assessment.Factors)
}

func (s *EngineSuite) TestFuzzyPEPMatch() {
	s.seed(s.tenantA, domain.CategoryPEP, 40, "João Pereira", "")

	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{
		FullName: "João Carlos Pereira",
	})
	s.Require().NoError(err)

	// Jaccard 2/3 gives +6, so 46 + 3 diversity.
	s.Equal(49, assessment.Score)
	s.Equal(domain.RiskBandMedium, assessment.Band)
	s.Require().Len(assessment.Clusters, 1)
	s.Equal(domain.MatchTypeNameFuzzy, assessment.Clusters[0].Hits[0].MatchType)
	s.False(assessment.HasSanctionsExactMatch())
}

func (s *EngineSuite) TestFuzzyBelowThresholdDiscarded() {
	s.seed(s.tenantA, domain.CategoryPEP, 40, "João Alberto Mendes Rocha", "")

	// One shared token out of five in the union: similarity 0.2 < 0.5.
	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{
		FullName: "João Silva",
	})
	s.Require().NoError(err)

	s.Equal(10, assessment.Score)
	s.Empty(assessment.Clusters)
}

func (s *EngineSuite) TestIDKeyTakesPriorityOverName() {
	// Record shares the name but not the national ID: an ID query must not
	// fall through to the fuzzy scan.
	s.seed(s.tenantA, domain.CategorySanctions, 50, "José Maria Silva", "999")

	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{
		FullName:   "José Maria Silva",
		NationalID: "123",
	})
	s.Require().NoError(err)

	s.Equal(10, assessment.Score)
	s.Empty(assessment.Clusters)
}

func (s *EngineSuite) TestCrossSourceCorroboration() {
	s.seed(s.tenantA, domain.CategoryPEP, 40, "José Maria Silva", "123")
	s.seed(s.tenantA, domain.CategorySanctions, 50, "José Maria Silva", "123")

	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{
		FullName:   "José Maria Silva",
		NationalID: "123",
	})
	s.Require().NoError(err)

	s.Require().Len(assessment.Clusters, 1)
	s.Len(assessment.Clusters[0].Sources, 2)
	// Sanctions hit dominates: 50 + 10 + 10, plus 3 per category.
	s.Equal(76, assessment.Score)
	s.Equal(domain.RiskBandCritical, assessment.Band)
}

func (s *EngineSuite) TestTenantIsolation() {
	s.seed(s.tenantB, domain.CategorySanctions, 50, "José Maria Silva", "123")

	assessment, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{
		FullName:   "José Maria Silva",
		NationalID: "123",
	})
	s.Require().NoError(err)

	s.Empty(assessment.Clusters)
	s.Equal(10, assessment.Score)
}

func (s *EngineSuite) TestLatencyMetricsRecorded() {
	before := s.engine.ScreeningCount()

	_, err := s.engine.Screen(context.Background(), s.tenantA, domain.QueryIdentity{FullName: "Anyone"})
	s.Require().NoError(err)

	s.Equal(before+1, s.engine.ScreeningCount())
}
