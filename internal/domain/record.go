package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceCategory classifies an imported record set.
type SourceCategory string

const (
	CategoryPEP          SourceCategory = "PEP"
	CategorySanctions    SourceCategory = "SANCTIONS"
	CategoryAdverseMedia SourceCategory = "ADVERSE_MEDIA"
	CategoryWatchlist    SourceCategory = "WATCHLIST"
)

// ScreenedCategories is the set of external list categories evaluated by a
// screening run, in fixed order.
var ScreenedCategories = []SourceCategory{
	CategoryPEP,
	CategorySanctions,
	CategoryAdverseMedia,
	CategoryWatchlist,
}

// IsValid reports whether c is a known importable category.
func (c SourceCategory) IsValid() bool {
	switch c {
	case CategoryPEP, CategorySanctions, CategoryAdverseMedia, CategoryWatchlist:
		return true
	}
	return false
}

// NormalizedRecord is one row contributed by an imported source. Records are
// immutable once imported; a reimport of a source reference replaces all of
// its records atomically.
type NormalizedRecord struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	TenantID  uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	SourceRef string         `json:"source_ref" db:"source_ref"`
	Category  SourceCategory `json:"category" db:"category"`

	// SourceWeight is the integer risk contribution configured for the
	// record's category at import time.
	SourceWeight int `json:"source_weight" db:"source_weight"`

	FullNameNorm     string `json:"full_name_norm" db:"full_name_norm"`
	NationalIDNorm   string `json:"national_id_norm" db:"national_id_norm"`
	PassportNorm     string `json:"passport_norm" db:"passport_norm"`
	ResidentCardNorm string `json:"resident_card_norm" db:"resident_card_norm"`
	Country          string `json:"country" db:"country"`
	RoleOrPosition   string `json:"role_or_position" db:"role_or_position"`

	// RawPayload carries source columns that have no normalized shape.
	RawPayload map[string]string `json:"raw_payload,omitempty" db:"raw_payload"`

	ImportedAt time.Time `json:"imported_at" db:"imported_at"`
}

// QueryIdentity is the raw subject identity supplied by a caller.
type QueryIdentity struct {
	FullName     string `json:"full_name"`
	NationalID   string `json:"national_id,omitempty"`
	Passport     string `json:"passport,omitempty"`
	ResidentCard string `json:"resident_card,omitempty"`
	Country      string `json:"country,omitempty"`
}

// NormalizedIdentity is a QueryIdentity after canonicalization. Empty inputs
// normalize to empty strings, never to an absent field.
type NormalizedIdentity struct {
	FullNameNorm     string `json:"full_name_norm"`
	NationalIDNorm   string `json:"national_id_norm"`
	PassportNorm     string `json:"passport_norm"`
	ResidentCardNorm string `json:"resident_card_norm"`
	CountryNorm      string `json:"country_norm"`
}

// HasKey reports whether the identity carries at least one usable lookup key.
func (n NormalizedIdentity) HasKey() bool {
	return n.FullNameNorm != "" || n.NationalIDNorm != "" ||
		n.PassportNorm != "" || n.ResidentCardNorm != ""
}

// SubjectKeys identifies a subject in the insurer's own historical tables.
type SubjectKeys struct {
	FullName   string `json:"full_name,omitempty"`
	NationalID string `json:"national_id,omitempty"`
	Passport   string `json:"passport,omitempty"`
}

// HasKey reports whether any lookup key is present.
func (k SubjectKeys) HasKey() bool {
	return k.FullName != "" || k.NationalID != "" || k.Passport != ""
}
