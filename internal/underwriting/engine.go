package underwriting

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
)

// Engine combines a compliance assessment with an insurance profile into a
// final decision. Decide is a pure function of its two inputs.
type Engine struct {
	cfg   *config.UnderwritingConfig
	bands domain.BandThresholds
	log   *logger.Logger
}

// NewEngine creates an underwriting engine with the given policy weights and
// band thresholds.
func NewEngine(cfg *config.UnderwritingConfig, bands domain.BandThresholds, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, bands: bands, log: log.Named("underwriting_engine")}
}

// Decide evaluates the policy rules in fixed order: hard stops, escalation
// triggers, then the weighted composite score. Results are grouped per
// product type when the profile carries product segmentation, else reported
// under the GENERAL bucket.
func (e *Engine) Decide(assessment *domain.RiskAssessment, profile *domain.InsuranceProfile) *domain.UnderwritingDecision {
	composite := e.compositeScore(assessment, profile)
	decision, factors := e.applyRules(assessment, profile, composite)

	products := profile.ProductTypes()
	if len(products) == 0 {
		products = []string{domain.ProductGeneral}
	}
	sort.Strings(products)

	out := &domain.UnderwritingDecision{
		TenantID:     assessment.TenantID,
		AssessmentID: assessment.ID,
		CreatedAt:    time.Now(),
	}
	for _, p := range products {
		out.Products = append(out.Products, domain.ProductDecision{
			ProductType:    p,
			Decision:       decision,
			CompositeScore: composite,
			Factors:        factors,
		})
	}

	e.log.UnderwritingDecided(assessment.TenantID.String(), len(products), string(decision))
	return out
}

// applyRules runs hard stops first, then escalation triggers, then the
// score-derived decision.
func (e *Engine) applyRules(assessment *domain.RiskAssessment, profile *domain.InsuranceProfile, composite int) (domain.Decision, []string) {
	var factors []string
	factors = append(factors, fmt.Sprintf("composite score %d (compliance %.2f / insurance %.2f)",
		composite, e.cfg.ComplianceWeight, e.cfg.InsuranceWeight))

	// Hard stops terminate regardless of score.
	if assessment.HasSanctionsExactMatch() {
		e.log.HardStopTriggered(assessment.TenantID.String(), "sanctions_exact_match")
		return domain.DecisionRefuse, append(factors, "hard stop: exact match on sanctions source")
	}
	if profile.HasSevereFraudIndicator() {
		e.log.HardStopTriggered(assessment.TenantID.String(), "severe_fraud_indicator")
		return domain.DecisionRefuse, append(factors, "hard stop: severe fraud indicator on record")
	}

	// Escalation triggers force manual review absent a hard stop.
	if assessment.HasCategoryMatch(domain.CategoryPEP) {
		return domain.DecisionEscalate, append(factors, "escalation: politically exposed person match")
	}
	if e.hasRelevantAdverseMedia(assessment) {
		return domain.DecisionEscalate, append(factors, "escalation: relevant adverse media match")
	}

	switch e.bands.Band(composite) {
	case domain.RiskBandLow, domain.RiskBandMedium:
		return domain.DecisionApprove, append(factors, "composite score within acceptable bands")
	default:
		return domain.DecisionEscalate, append(factors, "composite score in elevated band")
	}
}

// hasRelevantAdverseMedia treats an adverse-media cluster as relevant when it
// contains an id-exact hit or a fuzzy hit at or above the configured
// relevance similarity.
func (e *Engine) hasRelevantAdverseMedia(assessment *domain.RiskAssessment) bool {
	for _, cl := range assessment.Clusters {
		for _, hit := range cl.Hits {
			if hit.Record.Category != domain.CategoryAdverseMedia {
				continue
			}
			if hit.MatchType == domain.MatchTypeIDExact || hit.Similarity >= e.cfg.AdverseMediaRelevance {
				return true
			}
		}
	}
	return false
}

// compositeScore folds the two branches with the configured weights, clamped
// to [0,100].
func (e *Engine) compositeScore(assessment *domain.RiskAssessment, profile *domain.InsuranceProfile) int {
	weighted := e.cfg.ComplianceWeight*float64(assessment.Score) +
		e.cfg.InsuranceWeight*float64(insuranceRiskScore(profile))
	score := int(math.Round(weighted))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// insuranceRiskScore folds the behavioral profile to the 0-100 scale: up to
// 50 points for payer behavior plus graded points for claim frequency and
// severity.
func insuranceRiskScore(profile *domain.InsuranceProfile) int {
	score := int(math.Round((1 - profile.PayerScore) * 50))
	score += gradePoints(profile.Claims.FrequencyRisk)
	score += gradePoints(profile.Claims.SeverityRisk)
	if score > 100 {
		return 100
	}
	return score
}

func gradePoints(grade domain.RiskGrade) int {
	switch grade {
	case domain.RiskGradeHigh:
		return 25
	case domain.RiskGradeMedium:
		return 10
	default:
		return 0
	}
}
