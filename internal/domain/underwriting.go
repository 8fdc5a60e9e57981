package domain

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the underwriting outcome for one product bucket.
type Decision string

const (
	DecisionApprove  Decision = "APROVAR"
	DecisionEscalate Decision = "ESCALAR"
	DecisionRefuse   Decision = "RECUSAR"
)

// ProductGeneral is the bucket used when insurance data carries no product
// segmentation.
const ProductGeneral = "GENERAL"

// ProductDecision is the decision for one product type.
type ProductDecision struct {
	ProductType    string   `json:"product_type"`
	Decision       Decision `json:"decision"`
	CompositeScore int      `json:"composite_score"`
	Factors        []string `json:"factors"`
}

// UnderwritingDecision combines a compliance assessment with an insurance
// profile. It is a pure function of its two inputs and never persisted by
// the core.
type UnderwritingDecision struct {
	TenantID     uuid.UUID         `json:"tenant_id"`
	AssessmentID uuid.UUID         `json:"assessment_id"`
	Products     []ProductDecision `json:"products"`
	CreatedAt    time.Time         `json:"created_at"`
}
