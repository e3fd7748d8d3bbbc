// Package conversation drives a qualification session: a fixed state
// graph with required-field gating, an external language collaborator
// whose proposals are always re-validated, and calculator/eligibility
// invocation at the right states.
package conversation

import (
	"brokerbot/internal/domain"
)

// Trigger names an edge out of a state.
type Trigger string

const (
	TriggerStart            Trigger = "start"
	TriggerConsentGiven     Trigger = "consent_given"
	TriggerConsentDenied    Trigger = "consent_denied"
	TriggerNeedsStated      Trigger = "needs_stated"
	TriggerEmployed         Trigger = "employed"
	TriggerSelfEmployed     Trigger = "self_employed"
	TriggerRetired          Trigger = "retired"
	TriggerUnemployed       Trigger = "unemployed"
	TriggerMixed            Trigger = "mixed"
	TriggerEmployerRecorded Trigger = "employer_recorded"
	TriggerPensionRecorded  Trigger = "pension_recorded"
	TriggerBusinessRecorded Trigger = "business_recorded"
	TriggerDocumentTrack    Trigger = "document_track"
	TriggerManualTrack      Trigger = "manual_track"
	TriggerDocumentReceived Trigger = "document_received"
	TriggerExtractionOK     Trigger = "extraction_ok"
	TriggerExtractionRetry  Trigger = "extraction_retry"
	TriggerSwitchToManual   Trigger = "switch_to_manual"
	TriggerFieldsCollected  Trigger = "fields_collected"
	TriggerHouseholdDone    Trigger = "household_recorded"
	TriggerLiabilitiesDone  Trigger = "liabilities_recorded"
	TriggerDone             Trigger = "done"
	TriggerSchedule         Trigger = "schedule"
	TriggerDecline          Trigger = "decline"
	TriggerScheduled        Trigger = "scheduled"
	TriggerEscalate         Trigger = "escalate"
	TriggerAbandon          Trigger = "abandon"
)

// employmentTriggers maps the classification branches to the value the
// employment field must hold for the branch to be taken.
var employmentTriggers = map[Trigger]domain.EmploymentType{
	TriggerEmployed:     domain.EmploymentEmployed,
	TriggerSelfEmployed: domain.EmploymentSelfEmployed,
	TriggerRetired:      domain.EmploymentRetired,
	TriggerUnemployed:   domain.EmploymentUnemployed,
	TriggerMixed:        domain.EmploymentMixed,
}

// stateDef is one node of the graph: its outgoing edges and the fields
// that must be known before any forward edge is enabled. escalate and
// abandon are implicit on every non-terminal state and never gated.
type stateDef struct {
	transitions map[Trigger]domain.ConversationState
	required    []domain.FieldSpec
}

// canonicalFields is the field set both collection tracks converge on.
// The graph gates on presence only; whether a value came from document
// extraction or manual declaration is invisible here.
var canonicalFields = []domain.FieldSpec{
	{Name: "tax_code", Kind: domain.KindCode, Description: "16-character personal tax code"},
	{Name: "net_monthly_income", Kind: domain.KindAmount, Description: "net monthly income in euro"},
}

var flow = map[domain.ConversationState]stateDef{
	domain.StateWelcome: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerStart: domain.StateConsent,
		},
	},
	domain.StateConsent: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerConsentGiven:  domain.StateNeedsAssessment,
			TriggerConsentDenied: domain.StateAbandoned,
		},
		required: []domain.FieldSpec{
			{Name: "consent", Kind: domain.KindBool, Description: "personal data processing consent"},
		},
	},
	domain.StateNeedsAssessment: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerNeedsStated: domain.StateEmploymentType,
		},
		required: []domain.FieldSpec{
			{Name: "loan_purpose", Kind: domain.KindText, Description: "what the financing is for"},
			{Name: "requested_amount", Kind: domain.KindAmount, Description: "requested amount in euro"},
		},
	},
	domain.StateEmploymentType: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerEmployed:     domain.StateEmployerClass,
			TriggerSelfEmployed: domain.StateBusinessIntake,
			TriggerRetired:      domain.StatePensionClass,
			TriggerUnemployed:   domain.StateEscalated,
			TriggerMixed:        domain.StateEscalated,
		},
		required: []domain.FieldSpec{
			{Name: "employment_type", Kind: domain.KindChoice,
				Description:   "employment classification",
				AllowedValues: []string{"employed", "self_employed", "retired", "unemployed", "mixed"}},
		},
	},
	domain.StateEmployerClass: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerEmployerRecorded: domain.StateTrackChoice,
		},
		required: []domain.FieldSpec{
			{Name: "employer_category", Kind: domain.KindChoice,
				Description:   "employer classification",
				AllowedValues: []string{"state", "public", "private", "parapublic"}},
		},
	},
	domain.StatePensionClass: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerPensionRecorded: domain.StateTrackChoice,
		},
		required: []domain.FieldSpec{
			{Name: "pension_source", Kind: domain.KindChoice,
				Description:   "paying pension fund",
				AllowedValues: []string{"inps", "inpdap", "other"}},
		},
	},
	domain.StateBusinessIntake: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerBusinessRecorded: domain.StateTrackChoice,
		},
		required: []domain.FieldSpec{
			{Name: "ateco_code", Kind: domain.KindCode, Description: "activity classification code"},
			{Name: "annual_revenue", Kind: domain.KindAmount, Description: "declared annual revenue in euro"},
		},
	},
	domain.StateTrackChoice: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerDocumentTrack: domain.StateDocRequest,
			TriggerManualTrack:   domain.StateManualCollection,
		},
	},
	domain.StateDocRequest: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerDocumentReceived: domain.StateDocProcessing,
			TriggerSwitchToManual:   domain.StateManualCollection,
		},
	},
	domain.StateDocProcessing: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerExtractionOK:    domain.StateHousehold,
			TriggerExtractionRetry: domain.StateDocRequest,
			TriggerSwitchToManual:  domain.StateManualCollection,
		},
		required: canonicalFields,
	},
	domain.StateManualCollection: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerFieldsCollected: domain.StateHousehold,
		},
		required: canonicalFields,
	},
	domain.StateHousehold: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerHouseholdDone: domain.StateLiabilities,
		},
		required: []domain.FieldSpec{
			{Name: "household_size", Kind: domain.KindInteger, Description: "people in the household"},
		},
	},
	domain.StateLiabilities: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerLiabilitiesDone: domain.StateCalculating,
		},
		required: []domain.FieldSpec{
			{Name: "liabilities_confirmed", Kind: domain.KindBool,
				Description: "user confirmed the list of existing obligations is complete"},
		},
	},
	domain.StateCalculating: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerDone: domain.StateResult,
		},
	},
	domain.StateResult: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerSchedule: domain.StateScheduling,
			TriggerDecline:  domain.StateCompleted,
		},
	},
	domain.StateScheduling: {
		transitions: map[Trigger]domain.ConversationState{
			TriggerScheduled: domain.StateCompleted,
		},
	},
	domain.StateCompleted: {},
	domain.StateEscalated: {},
	domain.StateAbandoned: {},
}

// retryTriggers are exempt from forward gating: they move the session
// backwards or sideways to recollect data, so missing fields cannot
// block them.
var retryTriggers = map[Trigger]bool{
	TriggerExtractionRetry: true,
	TriggerSwitchToManual:  true,
	TriggerConsentDenied:   true,
}
