package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchType describes how a candidate was located.
type MatchType string

const (
	MatchTypeIDExact   MatchType = "ID_EXACT"
	MatchTypeNameFuzzy MatchType = "NAME_FUZZY"
)

// RiskBand represents the risk severity of an assessment.
type RiskBand string

const (
	RiskBandLow      RiskBand = "LOW"
	RiskBandMedium   RiskBand = "MEDIUM"
	RiskBandHigh     RiskBand = "HIGH"
	RiskBandCritical RiskBand = "CRITICAL"
)

// BandThresholds maps a clamped score to a risk band. Thresholds are
// inclusive upper bounds and must be monotonic; everything above HighMax is
// CRITICAL, so the mapping is exhaustive over [0,100].
type BandThresholds struct {
	LowMax    int `mapstructure:"low_max"`
	MediumMax int `mapstructure:"medium_max"`
	HighMax   int `mapstructure:"high_max"`
}

// DefaultBandThresholds are the fixed cut-points used when no policy
// configuration overrides them.
var DefaultBandThresholds = BandThresholds{LowMax: 25, MediumMax: 50, HighMax: 75}

// Band returns the risk band for a score.
func (t BandThresholds) Band(score int) RiskBand {
	switch {
	case score <= t.LowMax:
		return RiskBandLow
	case score <= t.MediumMax:
		return RiskBandMedium
	case score <= t.HighMax:
		return RiskBandHigh
	default:
		return RiskBandCritical
	}
}

// ScoreFactor is one contributing reason in a score, with its point value.
// Factors are recorded in evaluation order for auditability.
type ScoreFactor struct {
	Reason string `json:"reason"`
	Points int    `json:"points"`
}

// MatchHit is a scored candidate. Hits are ephemeral; only the aggregated
// assessment is persisted.
type MatchHit struct {
	Record       NormalizedRecord `json:"record"`
	MatchType    MatchType        `json:"match_type"`
	Similarity   float64          `json:"similarity"`
	Contribution int              `json:"contribution"`
	Factors      []ScoreFactor    `json:"factors"`
}

// EntityCluster groups hits believed to denote one real-world entity.
type EntityCluster struct {
	// Key is the normalized national ID when present, else the normalized
	// full name, else a synthetic per-record key.
	Key     string           `json:"key"`
	Hits    []MatchHit       `json:"hits"`
	Score   int              `json:"score"`
	Sources []SourceCategory `json:"sources"`
}

// RiskAssessment is the persisted outcome of a screening. Assessments are
// append-only; scores are never mutated in place.
type RiskAssessment struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`

	Identity QueryIdentity `json:"identity" db:"identity"`

	Score    int             `json:"score" db:"score"`
	Band     RiskBand        `json:"band" db:"band"`
	Clusters []EntityCluster `json:"clusters" db:"clusters"`
	Factors  []string        `json:"factors" db:"factors"`

	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasSanctionsExactMatch reports whether any cluster contains an id-exact hit
// against a sanctions record.
func (a *RiskAssessment) HasSanctionsExactMatch() bool {
	for _, cl := range a.Clusters {
		for _, hit := range cl.Hits {
			if hit.Record.Category == CategorySanctions && hit.MatchType == MatchTypeIDExact {
				return true
			}
		}
	}
	return false
}

// HasCategoryMatch reports whether any cluster touches the given category.
func (a *RiskAssessment) HasCategoryMatch(cat SourceCategory) bool {
	for _, cl := range a.Clusters {
		for _, src := range cl.Sources {
			if src == cat {
				return true
			}
		}
	}
	return false
}
