// Package domain holds the shared types of the qualification core:
// conversation states, employment classification, field provenance,
// liabilities and product match outcomes.
package domain

// ConversationState is a node in the fixed conversation graph.
type ConversationState string

const (
	StateWelcome          ConversationState = "welcome"
	StateConsent          ConversationState = "consent"
	StateNeedsAssessment  ConversationState = "needs_assessment"
	StateEmploymentType   ConversationState = "employment_type"
	StateEmployerClass    ConversationState = "employer_class"
	StatePensionClass     ConversationState = "pension_class"
	StateBusinessIntake   ConversationState = "business_intake"
	StateTrackChoice      ConversationState = "track_choice"
	StateDocRequest       ConversationState = "doc_request"
	StateDocProcessing    ConversationState = "doc_processing"
	StateManualCollection ConversationState = "manual_collection"
	StateHousehold        ConversationState = "household"
	StateLiabilities      ConversationState = "liabilities"
	StateCalculating      ConversationState = "calculating"
	StateResult           ConversationState = "result"
	StateScheduling       ConversationState = "scheduling"
	StateCompleted        ConversationState = "completed"
	StateEscalated        ConversationState = "escalated"
	StateAbandoned        ConversationState = "abandoned"
)

// EmploymentType drives which products can be evaluated at all.
type EmploymentType string

const (
	EmploymentEmployed     EmploymentType = "employed"
	EmploymentSelfEmployed EmploymentType = "self_employed"
	EmploymentRetired      EmploymentType = "retired"
	EmploymentUnemployed   EmploymentType = "unemployed"
	EmploymentMixed        EmploymentType = "mixed"
)

// EmploymentTypes lists the accepted classification values.
var EmploymentTypes = []EmploymentType{
	EmploymentEmployed,
	EmploymentSelfEmployed,
	EmploymentRetired,
	EmploymentUnemployed,
	EmploymentMixed,
}

// ValidEmploymentType reports whether s is one of the enumerated values.
func ValidEmploymentType(s string) bool {
	for _, t := range EmploymentTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// EmployerCategory classifies the employer for assignment rules.
type EmployerCategory string

const (
	EmployerState      EmployerCategory = "state"
	EmployerPublic     EmployerCategory = "public"
	EmployerPrivate    EmployerCategory = "private"
	EmployerParapublic EmployerCategory = "parapublic"
)

// PensionSource identifies the paying pension fund.
type PensionSource string

const (
	PensionINPS   PensionSource = "inps"
	PensionINPDAP PensionSource = "inpdap"
	PensionOther  PensionSource = "other"
)

// FieldSource records where a collected value came from.
type FieldSource string

const (
	SourceExtracted FieldSource = "extracted"
	SourceConfirmed FieldSource = "confirmed"
	SourceDecoded   FieldSource = "decoded"
	SourceComputed  FieldSource = "computed"
	SourceDeclared  FieldSource = "declared"
	SourceExternal  FieldSource = "external"
)

// LiabilityType names an existing financial obligation.
type LiabilityType string

const (
	LiabilityAssignment    LiabilityType = "salary_assignment"
	LiabilityDelegation    LiabilityType = "payroll_delegation"
	LiabilityMortgage      LiabilityType = "mortgage"
	LiabilityPersonalLoan  LiabilityType = "personal_loan"
	LiabilityAutoLoan      LiabilityType = "auto_loan"
	LiabilityConsumer      LiabilityType = "consumer_credit"
	LiabilityRevolvingCard LiabilityType = "revolving_card"
	LiabilityGarnishment   LiabilityType = "garnishment"
	LiabilityOther         LiabilityType = "other"
)

// SessionOutcome is the final disposition of a qualification session.
type SessionOutcome string

const (
	OutcomeQualified   SessionOutcome = "qualified"
	OutcomeNotEligible SessionOutcome = "not_eligible"
	OutcomeScheduled   SessionOutcome = "scheduled"
	OutcomeEscalated   SessionOutcome = "escalated"
	OutcomeAbandoned   SessionOutcome = "abandoned"
)

// MatchOutcome is the tri-state result of one product evaluation.
// Indeterminate means the profile lacks data the rules need; it must
// never be collapsed into ineligible.
type MatchOutcome string

const (
	MatchEligible      MatchOutcome = "eligible"
	MatchIndeterminate MatchOutcome = "indeterminate"
	MatchIneligible    MatchOutcome = "ineligible"
)

// TrackType is the data-collection track the user picked.
type TrackType string

const (
	TrackDocument TrackType = "document"
	TrackManual   TrackType = "manual"
)
