package conversation

import (
	"errors"
	"fmt"
	"sort"

	"brokerbot/internal/domain"
	"brokerbot/internal/fieldstore"
)

var (
	// ErrInvalidTransition rejects a trigger the graph does not enable
	// from the current state, including gating failures.
	ErrInvalidTransition = errors.New("conversation: invalid transition")

	// ErrSessionTerminal rejects any mutation of a finished session.
	ErrSessionTerminal = errors.New("conversation: session is terminal")
)

// IsTerminal reports whether the state has no outgoing edges.
func IsTerminal(state domain.ConversationState) bool {
	def, ok := flow[state]
	return ok && len(def.transitions) == 0
}

// KnownState reports whether the state exists in the graph at all. A
// session pointing at an unknown state is an invariant violation.
func KnownState(state domain.ConversationState) bool {
	_, ok := flow[state]
	return ok
}

// Next validates trigger against the graph and the current fields and
// returns the target state. The rules, in order: the state must exist
// and not be terminal, the edge must be declared, a forward edge
// requires every gating field to be present, and an employment branch
// must agree with the stored classification.
func Next(state domain.ConversationState, trigger Trigger, fields *fieldstore.Store) (domain.ConversationState, error) {
	def, ok := flow[state]
	if !ok {
		return "", fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, state)
	}
	if len(def.transitions) == 0 {
		return "", fmt.Errorf("%w: state %s", ErrSessionTerminal, state)
	}

	// Escalation and abandonment are reachable from every live state.
	switch trigger {
	case TriggerEscalate:
		return domain.StateEscalated, nil
	case TriggerAbandon:
		return domain.StateAbandoned, nil
	}

	next, ok := def.transitions[trigger]
	if !ok {
		return "", fmt.Errorf("%w: no edge %q out of %s", ErrInvalidTransition, trigger, state)
	}

	if !retryTriggers[trigger] {
		if missing := Outstanding(state, fields); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, f := range missing {
				names[i] = f.Name
			}
			return "", fmt.Errorf("%w: %s still requires fields %v", ErrInvalidTransition, state, names)
		}
	}

	if want, isBranch := employmentTriggers[trigger]; isBranch && state == domain.StateEmploymentType {
		if got := fields.Value("employment_type"); got != string(want) {
			return "", fmt.Errorf("%w: branch %q disagrees with classification %q",
				ErrInvalidTransition, trigger, got)
		}
	}
	return next, nil
}

// Outstanding lists the gating fields still missing in the current
// state. Presence is all that matters; provenance never does.
func Outstanding(state domain.ConversationState, fields *fieldstore.Store) []domain.FieldSpec {
	def, ok := flow[state]
	if !ok {
		return nil
	}
	var out []domain.FieldSpec
	for _, spec := range def.required {
		if !fields.Has(spec.Name) {
			out = append(out, spec)
		}
	}
	return out
}

// RequiredFields lists every gating field of a state, present or not.
func RequiredFields(state domain.ConversationState) []domain.FieldSpec {
	return flow[state].required
}

// ValidTriggers lists the triggers the graph declares out of a state,
// plus the universal escalate/abandon pair, sorted for determinism.
// The language collaborator only ever gets to pick from this list.
func ValidTriggers(state domain.ConversationState) []string {
	def, ok := flow[state]
	if !ok || len(def.transitions) == 0 {
		return nil
	}
	out := make([]string, 0, len(def.transitions)+2)
	for t := range def.transitions {
		out = append(out, string(t))
	}
	out = append(out, string(TriggerEscalate), string(TriggerAbandon))
	sort.Strings(out)
	return out
}
