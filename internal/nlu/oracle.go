// Package nlu wraps the external language model behind a narrow
// interface. The model only ever proposes the next conversational step;
// the state machine validates every proposal before acting on it, so a
// hallucinated trigger or field can never move a session somewhere the
// flow does not allow.
package nlu

import (
	"context"
	"errors"

	"brokerbot/internal/domain"
)

// ErrUnavailable marks an oracle that could not be reached or answered
// outside its deadline. Callers fall back to escalation.
var ErrUnavailable = errors.New("nlu: oracle unavailable")

// Proposal actions.
const (
	ActionTransition = "transition"
	ActionClarify    = "clarify"
)

// NextStepRequest is everything the oracle sees about a session: the
// current state, what is still missing, and which triggers the flow
// would accept. Raw conversation history stays out on purpose.
type NextStepRequest struct {
	SessionID     string             `json:"session_id"`
	State         string             `json:"state"`
	Utterance     string             `json:"utterance"`
	Outstanding   []domain.FieldSpec `json:"outstanding,omitempty"`
	Summary       map[string]string  `json:"summary,omitempty"`
	ValidTriggers []string           `json:"valid_triggers"`
}

// StepProposal is the oracle's suggested move. Action is either a
// transition on one of the offered triggers or a clarification request
// for a single field.
type StepProposal struct {
	Action       string                  `json:"action"`
	Trigger      string                  `json:"trigger,omitempty"`
	Fields       []domain.FieldCandidate `json:"fields,omitempty"`
	ClarifyField string                  `json:"clarify_field,omitempty"`
	Reply        string                  `json:"reply"`
}

// Oracle proposes the next step for a session turn.
type Oracle interface {
	NextStep(ctx context.Context, req NextStepRequest) (StepProposal, error)
}
