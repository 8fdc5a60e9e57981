package underwriting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
)

func testEngine() *Engine {
	return NewEngine(&config.UnderwritingConfig{
		ComplianceWeight:      0.70,
		InsuranceWeight:       0.30,
		AdverseMediaRelevance: 0.85,
	}, domain.DefaultBandThresholds, logger.NewNop())
}

func neutralProfile() *domain.InsuranceProfile {
	return &domain.InsuranceProfile{
		PayerScore: 1.0,
		Payments:   domain.PaymentBehavior{OnTimeRatio: 1.0},
		Claims: domain.ClaimsHistory{
			FrequencyRisk: domain.RiskGradeLow,
			SeverityRisk:  domain.RiskGradeLow,
		},
	}
}

func assessmentWith(score int, clusters ...domain.EntityCluster) *domain.RiskAssessment {
	return &domain.RiskAssessment{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Score:    score,
		Band:     domain.DefaultBandThresholds.Band(score),
		Clusters: clusters,
	}
}

func clusterWith(cat domain.SourceCategory, mt domain.MatchType, similarity float64) domain.EntityCluster {
	return domain.EntityCluster{
		Key: "id:123",
		Hits: []domain.MatchHit{{
			Record:     domain.NormalizedRecord{Category: cat},
			MatchType:  mt,
			Similarity: similarity,
		}},
		Sources: []domain.SourceCategory{cat},
	}
}

func TestDecideApprovesCleanSubject(t *testing.T) {
	engine := testEngine()

	decision := engine.Decide(assessmentWith(10), neutralProfile())

	require.Len(t, decision.Products, 1)
	assert.Equal(t, domain.ProductGeneral, decision.Products[0].ProductType)
	assert.Equal(t, domain.DecisionApprove, decision.Products[0].Decision)
	// 0.70 * 10 compliance, nothing from the insurance side.
	assert.Equal(t, 7, decision.Products[0].CompositeScore)
	assert.NotEmpty(t, decision.Products[0].Factors)
}

func TestDecideSanctionsExactMatchIsHardStop(t *testing.T) {
	engine := testEngine()

	// Even a low score cannot survive an exact sanctions hit.
	assessment := assessmentWith(20, clusterWith(domain.CategorySanctions, domain.MatchTypeIDExact, 1.0))

	decision := engine.Decide(assessment, neutralProfile())

	require.Len(t, decision.Products, 1)
	assert.Equal(t, domain.DecisionRefuse, decision.Products[0].Decision)
	assert.Contains(t, decision.Products[0].Factors, "hard stop: exact match on sanctions source")
}

func TestDecideSevereFraudIsHardStop(t *testing.T) {
	engine := testEngine()

	profile := neutralProfile()
	profile.FraudIndicators = []domain.FraudIndicator{{Severity: domain.FraudSeveritySevere}}

	decision := engine.Decide(assessmentWith(10), profile)

	assert.Equal(t, domain.DecisionRefuse, decision.Products[0].Decision)
	assert.Contains(t, decision.Products[0].Factors, "hard stop: severe fraud indicator on record")
}

func TestDecidePEPMatchEscalates(t *testing.T) {
	engine := testEngine()

	assessment := assessmentWith(46, clusterWith(domain.CategoryPEP, domain.MatchTypeNameFuzzy, 0.7))

	decision := engine.Decide(assessment, neutralProfile())

	assert.Equal(t, domain.DecisionEscalate, decision.Products[0].Decision)
	assert.Contains(t, decision.Products[0].Factors, "escalation: politically exposed person match")
}

func TestDecideAdverseMediaRelevance(t *testing.T) {
	engine := testEngine()

	relevant := assessmentWith(30, clusterWith(domain.CategoryAdverseMedia, domain.MatchTypeNameFuzzy, 0.90))
	decision := engine.Decide(relevant, neutralProfile())
	assert.Equal(t, domain.DecisionEscalate, decision.Products[0].Decision)

	// Below the relevance threshold the match does not escalate on its own.
	weak := assessmentWith(30, clusterWith(domain.CategoryAdverseMedia, domain.MatchTypeNameFuzzy, 0.60))
	decision = engine.Decide(weak, neutralProfile())
	assert.Equal(t, domain.DecisionApprove, decision.Products[0].Decision)

	// An id-exact adverse media hit is always relevant.
	exact := assessmentWith(30, clusterWith(domain.CategoryAdverseMedia, domain.MatchTypeIDExact, 0.0))
	decision = engine.Decide(exact, neutralProfile())
	assert.Equal(t, domain.DecisionEscalate, decision.Products[0].Decision)
}

func TestDecideElevatedCompositeEscalates(t *testing.T) {
	engine := testEngine()

	decision := engine.Decide(assessmentWith(90, clusterWith(domain.CategoryWatchlist, domain.MatchTypeIDExact, 1.0)), neutralProfile())

	// 0.70 * 90 = 63: HIGH band without any specific trigger.
	assert.Equal(t, 63, decision.Products[0].CompositeScore)
	assert.Equal(t, domain.DecisionEscalate, decision.Products[0].Decision)
}

func TestDecideInsuranceSideRaisesComposite(t *testing.T) {
	engine := testEngine()

	profile := neutralProfile()
	profile.PayerScore = 0.2
	profile.Claims.FrequencyRisk = domain.RiskGradeHigh
	profile.Claims.SeverityRisk = domain.RiskGradeMedium

	decision := engine.Decide(assessmentWith(10), profile)

	// Insurance branch: (1-0.2)*50 + 25 + 10 = 75. Composite 0.70*10 + 0.30*75.
	assert.Equal(t, 30, decision.Products[0].CompositeScore)
	assert.Equal(t, domain.DecisionApprove, decision.Products[0].Decision)
}

func TestDecideGroupsByProductType(t *testing.T) {
	engine := testEngine()

	profile := neutralProfile()
	profile.ActivePolicies = []domain.PolicyRecord{
		{ProductType: "LIFE", Status: domain.PolicyStatusActive},
		{ProductType: "AUTO", Status: domain.PolicyStatusActive},
		{ProductType: "AUTO", Status: domain.PolicyStatusActive},
	}

	decision := engine.Decide(assessmentWith(10), profile)

	require.Len(t, decision.Products, 2)
	assert.Equal(t, "AUTO", decision.Products[0].ProductType)
	assert.Equal(t, "LIFE", decision.Products[1].ProductType)
	// Same decision and score across products.
	assert.Equal(t, decision.Products[0].Decision, decision.Products[1].Decision)
	assert.Equal(t, decision.Products[0].CompositeScore, decision.Products[1].CompositeScore)
}

func TestInsuranceRiskScoreBounds(t *testing.T) {
	worst := &domain.InsuranceProfile{
		PayerScore: 0,
		Claims: domain.ClaimsHistory{
			FrequencyRisk: domain.RiskGradeHigh,
			SeverityRisk:  domain.RiskGradeHigh,
		},
	}
	assert.Equal(t, 100, insuranceRiskScore(worst))
	assert.Equal(t, 0, insuranceRiskScore(neutralProfile()))
}
