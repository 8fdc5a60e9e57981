package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandThresholdsExhaustive(t *testing.T) {
	for score := 0; score <= 100; score++ {
		band := DefaultBandThresholds.Band(score)
		switch {
		case score <= 25:
			assert.Equal(t, RiskBandLow, band, "score %d", score)
		case score <= 50:
			assert.Equal(t, RiskBandMedium, band, "score %d", score)
		case score <= 75:
			assert.Equal(t, RiskBandHigh, band, "score %d", score)
		default:
			assert.Equal(t, RiskBandCritical, band, "score %d", score)
		}
	}
}

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  RiskBand
	}{
		{0, RiskBandLow},
		{25, RiskBandLow},
		{26, RiskBandMedium},
		{50, RiskBandMedium},
		{51, RiskBandHigh},
		{75, RiskBandHigh},
		{76, RiskBandCritical},
		{100, RiskBandCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DefaultBandThresholds.Band(tc.score), "score %d", tc.score)
	}
}

func TestHasSanctionsExactMatch(t *testing.T) {
	fuzzyOnly := &RiskAssessment{Clusters: []EntityCluster{{
		Hits: []MatchHit{{
			Record:    NormalizedRecord{Category: CategorySanctions},
			MatchType: MatchTypeNameFuzzy,
		}},
	}}}
	assert.False(t, fuzzyOnly.HasSanctionsExactMatch())

	exact := &RiskAssessment{Clusters: []EntityCluster{{
		Hits: []MatchHit{{
			Record:    NormalizedRecord{Category: CategorySanctions},
			MatchType: MatchTypeIDExact,
		}},
	}}}
	assert.True(t, exact.HasSanctionsExactMatch())

	otherCategory := &RiskAssessment{Clusters: []EntityCluster{{
		Hits: []MatchHit{{
			Record:    NormalizedRecord{Category: CategoryPEP},
			MatchType: MatchTypeIDExact,
		}},
	}}}
	assert.False(t, otherCategory.HasSanctionsExactMatch())
}

func TestHasCategoryMatch(t *testing.T) {
	a := &RiskAssessment{Clusters: []EntityCluster{
		{Sources: []SourceCategory{CategoryPEP, CategoryWatchlist}},
	}}

	assert.True(t, a.HasCategoryMatch(CategoryPEP))
	assert.True(t, a.HasCategoryMatch(CategoryWatchlist))
	assert.False(t, a.HasCategoryMatch(CategorySanctions))
}

func TestSourceCategoryIsValid(t *testing.T) {
	for _, cat := range ScreenedCategories {
		assert.True(t, cat.IsValid())
	}
	assert.False(t, SourceCategory("FRAUD_RING").IsValid())
	assert.False(t, SourceCategory("").IsValid())
}
