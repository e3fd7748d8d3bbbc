package nlu

import (
	"context"
	"sync"
)

// Scripted replays a fixed sequence of proposals. Each call pops the
// next entry; past the end it returns ErrUnavailable. Used by tests and
// the offline demo mode.
type Scripted struct {
	mu    sync.Mutex
	steps []ScriptStep
	pos   int

	// Requests records the inputs the scripted oracle saw, in order.
	Requests []NextStepRequest
}

// ScriptStep is one scripted turn. A non-nil Err is returned as-is.
type ScriptStep struct {
	Proposal StepProposal
	Err      error
}

func NewScripted(steps ...ScriptStep) *Scripted {
	return &Scripted{steps: steps}
}

func (s *Scripted) NextStep(_ context.Context, req NextStepRequest) (StepProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if s.pos >= len(s.steps) {
		return StepProposal{}, ErrUnavailable
	}
	step := s.steps[s.pos]
	s.pos++
	if step.Err != nil {
		return StepProposal{}, step.Err
	}
	return step.Proposal, nil
}
