package screening

import (
	"fmt"
	"math"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
)

// Scorer computes a bounded risk contribution for one candidate record. It
// holds the policy tables passed in at construction so scoring is
// reproducible under alternate configurations.
type Scorer struct {
	weights       map[string]int
	defaultWeight int
	idMatchBonus  int
	higherPoints  int
	lowerDeduct   int

	higherScrutiny map[string]struct{}
	lowerScrutiny  map[string]struct{}
}

// NewScorer builds a scorer from the screening policy configuration.
// Country set entries are normalized so lookups match normalized record
// countries.
func NewScorer(cfg *config.ScreeningConfig) *Scorer {
	s := &Scorer{
		weights:        make(map[string]int, len(cfg.SourceWeights)),
		defaultWeight:  cfg.DefaultSourceWeight,
		idMatchBonus:   cfg.IDMatchBonus,
		higherPoints:   cfg.HigherScrutinyPoints,
		lowerDeduct:    cfg.LowerScrutinyDeduct,
		higherScrutiny: make(map[string]struct{}, len(cfg.HigherScrutinyCountries)),
		lowerScrutiny:  make(map[string]struct{}, len(cfg.LowerScrutinyCountries)),
	}
	for cat, w := range cfg.SourceWeights {
		s.weights[NormalizeName(cat)] = w
	}
	for _, c := range cfg.HigherScrutinyCountries {
		s.higherScrutiny[NormalizeName(c)] = struct{}{}
	}
	for _, c := range cfg.LowerScrutinyCountries {
		s.lowerScrutiny[NormalizeName(c)] = struct{}{}
	}
	return s
}

// Jaccard computes token-set similarity between two normalized names:
// |intersection| / |union| over word sets. Bounded to [0,1].
func Jaccard(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	intersection := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Score produces a MatchHit for one candidate. The factor list records each
// contributing reason with its point value in evaluation order.
func (s *Scorer) Score(q domain.NormalizedIdentity, rec domain.NormalizedRecord, mt domain.MatchType) domain.MatchHit {
	var factors []domain.ScoreFactor

	base, known := s.weights[string(rec.Category)]
	if !known {
		// Documented fallback for categories missing from the weight table.
		base = s.defaultWeight
	}
	factors = append(factors, domain.ScoreFactor{
		Reason: fmt.Sprintf("source weight (%s)", rec.Category),
		Points: base,
	})
	total := base

	sim := Jaccard(q.FullNameNorm, rec.FullNameNorm)
	if sim > 0 {
		bonus := int(math.Floor(sim * 10))
		if bonus > 0 {
			factors = append(factors, domain.ScoreFactor{
				Reason: fmt.Sprintf("name similarity %.2f", sim),
				Points: bonus,
			})
		}
		total += bonus
	}

	// A single bonus no matter how many ID fields coincide.
	if s.idMatches(q, rec) {
		factors = append(factors, domain.ScoreFactor{
			Reason: "identity document match",
			Points: s.idMatchBonus,
		})
		total += s.idMatchBonus
	}

	if rec.Country != "" {
		country := NormalizeName(rec.Country)
		if _, ok := s.higherScrutiny[country]; ok {
			factors = append(factors, domain.ScoreFactor{
				Reason: fmt.Sprintf("higher scrutiny country (%s)", country),
				Points: s.higherPoints,
			})
			total += s.higherPoints
		} else if _, ok := s.lowerScrutiny[country]; ok {
			factors = append(factors, domain.ScoreFactor{
				Reason: fmt.Sprintf("lower scrutiny country (%s)", country),
				Points: -s.lowerDeduct,
			})
			total -= s.lowerDeduct
		}
	}

	return domain.MatchHit{
		Record:       rec,
		MatchType:    mt,
		Similarity:   sim,
		Contribution: clampScore(total),
		Factors:      factors,
	}
}

func (s *Scorer) idMatches(q domain.NormalizedIdentity, rec domain.NormalizedRecord) bool {
	if q.NationalIDNorm != "" && q.NationalIDNorm == rec.NationalIDNorm {
		return true
	}
	if q.PassportNorm != "" && q.PassportNorm == rec.PassportNorm {
		return true
	}
	if q.ResidentCardNorm != "" && q.ResidentCardNorm == rec.ResidentCardNorm {
		return true
	}
	return false
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
