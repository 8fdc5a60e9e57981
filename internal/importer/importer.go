package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
	"github.com/insurance/screening-service/internal/screening"
)

// RecordWriter replaces every record tied to one source reference in a
// single transaction. Concurrent replacements of the same reference must be
// serialized by the implementation; distinct references may run in parallel.
type RecordWriter interface {
	ReplaceSource(ctx context.Context, tenantID uuid.UUID, sourceRef string, cat domain.SourceCategory, records []domain.NormalizedRecord) error
}

// RawRecord is one unvalidated row of an import file.
type RawRecord struct {
	FullName       string            `json:"full_name"`
	NationalID     string            `json:"national_id,omitempty"`
	Passport       string            `json:"passport,omitempty"`
	ResidentCard   string            `json:"resident_card,omitempty"`
	Country        string            `json:"country,omitempty"`
	RoleOrPosition string            `json:"role_or_position,omitempty"`
	Payload        map[string]string `json:"payload,omitempty"`
}

// RowError reports one row that failed validation. Failures never abort
// sibling rows.
type RowError struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Result summarizes a reimport.
type Result struct {
	Inserted    int        `json:"inserted"`
	Invalid     int        `json:"invalid"`
	InvalidRows []RowError `json:"invalid_rows,omitempty"`
}

// Importer validates and normalizes import batches and replaces the source's
// records. Reimporting the same file twice yields an identical record set.
type Importer struct {
	store         RecordWriter
	weights       map[string]int
	defaultWeight int
	log           *logger.Logger
}

// NewImporter creates an importer using the screening policy's source
// weights. Weight table keys are normalized so a config file may spell
// categories in any case.
func NewImporter(store RecordWriter, cfg *config.ScreeningConfig, log *logger.Logger) *Importer {
	weights := make(map[string]int, len(cfg.SourceWeights))
	for cat, w := range cfg.SourceWeights {
		weights[screening.NormalizeName(cat)] = w
	}
	return &Importer{
		store:         store,
		weights:       weights,
		defaultWeight: cfg.DefaultSourceWeight,
		log:           log.Named("importer"),
	}
}

// Reimport validates each row against the category's required-field schema,
// normalizes the valid ones, and atomically replaces all records tied to the
// source reference.
func (i *Importer) Reimport(ctx context.Context, tenantID uuid.UUID, sourceRef string, cat domain.SourceCategory, rows []RawRecord) (*Result, error) {
	if sourceRef == "" {
		return nil, fmt.Errorf("%w: source_ref is required", domain.ErrValidation)
	}
	if !cat.IsValid() {
		return nil, fmt.Errorf("%w: unknown source category %q", domain.ErrConfiguration, cat)
	}

	weight, ok := i.weights[string(cat)]
	if !ok {
		// Documented fallback when the weight table has no entry.
		weight = i.defaultWeight
	}

	result := &Result{}
	records := make([]domain.NormalizedRecord, 0, len(rows))
	importedAt := time.Now()

	for idx, row := range rows {
		if rowErr := validateRow(cat, row); rowErr != nil {
			rowErr.Row = idx
			result.Invalid++
			result.InvalidRows = append(result.InvalidRows, *rowErr)
			continue
		}
		records = append(records, domain.NormalizedRecord{
			ID:               uuid.New(),
			TenantID:         tenantID,
			SourceRef:        sourceRef,
			Category:         cat,
			SourceWeight:     weight,
			FullNameNorm:     screening.NormalizeName(row.FullName),
			NationalIDNorm:   screening.NormalizeID(row.NationalID),
			PassportNorm:     screening.NormalizeID(row.Passport),
			ResidentCardNorm: screening.NormalizeID(row.ResidentCard),
			Country:          screening.NormalizeName(row.Country),
			RoleOrPosition:   row.RoleOrPosition,
			RawPayload:       row.Payload,
			ImportedAt:       importedAt,
		})
	}

	if err := i.store.ReplaceSource(ctx, tenantID, sourceRef, cat, records); err != nil {
		return nil, fmt.Errorf("replace source %s: %w", sourceRef, err)
	}
	result.Inserted = len(records)

	i.log.ReimportCompleted(tenantID.String(), sourceRef, string(cat), result.Inserted, result.Invalid)
	return result, nil
}

// validateRow checks the category's required-field schema. Every category
// requires a full name; SANCTIONS rows additionally require a country and
// PEP rows a role or position.
func validateRow(cat domain.SourceCategory, row RawRecord) *RowError {
	if screening.NormalizeName(row.FullName) == "" {
		return &RowError{Field: "full_name", Reason: "required"}
	}
	switch cat {
	case domain.CategorySanctions:
		if screening.NormalizeName(row.Country) == "" {
			return &RowError{Field: "country", Reason: "required for SANCTIONS records"}
		}
	case domain.CategoryPEP:
		if row.RoleOrPosition == "" {
			return &RowError{Field: "role_or_position", Reason: "required for PEP records"}
		}
	}
	return nil
}
