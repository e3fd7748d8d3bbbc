package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldValue is one collected value for a named field. Values are
// append-only: corrections add a new FieldValue, they never overwrite.
type FieldValue struct {
	Name       string      `json:"name"`
	Value      string      `json:"value"`
	Source     FieldSource `json:"source"`
	Confidence float64     `json:"confidence"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// FieldKind constrains the value domain of a requested field.
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindAmount  FieldKind = "amount"
	KindInteger FieldKind = "integer"
	KindChoice  FieldKind = "choice"
	KindBool    FieldKind = "bool"
	KindCode    FieldKind = "code"
)

// FieldSpec describes a field the conversation still needs, including
// its value-domain constraints, so the language collaborator can ask
// for it without inventing semantics.
type FieldSpec struct {
	Name          string    `json:"name"`
	Kind          FieldKind `json:"kind"`
	Description   string    `json:"description"`
	AllowedValues []string  `json:"allowed_values,omitempty"`
}

// FieldCandidate is a value proposed by the extraction/NLU collaborator.
// It becomes a FieldValue only after the core validates it.
type FieldCandidate struct {
	Name       string      `json:"name"`
	Value      string      `json:"value"`
	Source     FieldSource `json:"source"`
	Confidence float64     `json:"confidence"`
}

// Liability is an existing monthly obligation. Renewable is derived by
// the capacity calculator, never stored as input.
type Liability struct {
	ID                 uuid.UUID       `json:"id"`
	Type               LiabilityType   `json:"type"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	RemainingMonths    int             `json:"remaining_months"`
	TotalMonths        int             `json:"total_months"`
	ResidualAmount     decimal.Decimal `json:"residual_amount"`
}

// PaidMonths derives how many installments have been paid.
func (l Liability) PaidMonths() int {
	if l.TotalMonths <= 0 || l.RemainingMonths > l.TotalMonths {
		return 0
	}
	return l.TotalMonths - l.RemainingMonths
}

// Session is one qualification conversation from first contact to a
// terminal state. Once terminal it is immutable except for purge
// anonymization.
type Session struct {
	ID             uuid.UUID         `json:"id"`
	State          ConversationState `json:"state"`
	Employment     EmploymentType    `json:"employment,omitempty"`
	Track          TrackType         `json:"track,omitempty"`
	Outcome        SessionOutcome    `json:"outcome,omitempty"`
	OutcomeReason  string            `json:"outcome_reason,omitempty"`
	Clarifications map[string]int    `json:"clarifications,omitempty"`
	Anonymized     bool              `json:"anonymized"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// Terminal reports whether the session can no longer transition.
func (s *Session) Terminal() bool {
	switch s.State {
	case StateCompleted, StateEscalated, StateAbandoned:
		return true
	}
	return false
}

// CalculationKind tags a CalculationResult.
type CalculationKind string

const (
	CalcTaxCode   CalculationKind = "tax_code"
	CalcIncome    CalculationKind = "income"
	CalcCapacity  CalculationKind = "capacity"
	CalcDebtRatio CalculationKind = "debt_ratio"
)

// CalculationResult is an immutable snapshot of one calculator
// invocation. A changed input produces a fresh result; nothing edits
// an existing one.
type CalculationResult struct {
	ID        uuid.UUID         `json:"id"`
	SessionID uuid.UUID         `json:"session_id"`
	Kind      CalculationKind   `json:"kind"`
	Inputs    map[string]string `json:"inputs"`
	Outputs   map[string]string `json:"outputs"`
	CreatedAt time.Time         `json:"created_at"`
}

// Condition is one evaluated rule condition inside a product match.
type Condition struct {
	Name  string `json:"name"`
	Met   bool   `json:"met"`
	Hard  bool   `json:"hard"`
	Value string `json:"value,omitempty"`
}

// EstimatedTerms sketches what a matched product could look like.
type EstimatedTerms struct {
	MaxInstallment   decimal.Decimal `json:"max_installment"`
	MaxDurationMonth int             `json:"max_duration_months"`
	Notes            string          `json:"notes,omitempty"`
}

// ProductMatch is one product evaluation. The set for a session is
// replaced wholesale on every eligibility run.
type ProductMatch struct {
	ProductID string          `json:"product_id"`
	Outcome   MatchOutcome    `json:"outcome"`
	Rank      int             `json:"rank"`
	Reason    string          `json:"reason,omitempty"`
	Missing   []string        `json:"missing,omitempty"`
	Terms     *EstimatedTerms `json:"terms,omitempty"`
	Conds     []Condition     `json:"conditions,omitempty"`
}
