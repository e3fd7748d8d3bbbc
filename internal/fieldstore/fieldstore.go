// Package fieldstore keeps the values collected for one session.
// Appends only: a correction is a new value, history is never lost.
// Decisions read the resolved value, picked by source precedence.
package fieldstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"brokerbot/internal/domain"
)

// ErrInvalidField rejects malformed field values on append.
var ErrInvalidField = errors.New("fieldstore: invalid field value")

// Default trust order, most trusted first. Decoded and confirmed data
// beat raw extraction; what the user merely declared ranks below a
// document; computed values only fill gaps.
var defaultPrecedence = []domain.FieldSource{
	domain.SourceConfirmed,
	domain.SourceDecoded,
	domain.SourceExtracted,
	domain.SourceDeclared,
	domain.SourceExternal,
	domain.SourceComputed,
}

// Per-field overrides. For the income figure a payslip extraction
// outranks anything the user typed, including a later confirmation of
// a declared number.
var fieldPrecedence = map[string][]domain.FieldSource{
	"net_monthly_income": {
		domain.SourceExtracted,
		domain.SourceConfirmed,
		domain.SourceDecoded,
		domain.SourceDeclared,
		domain.SourceExternal,
		domain.SourceComputed,
	},
}

func rank(name string, source domain.FieldSource) int {
	order := defaultPrecedence
	if o, ok := fieldPrecedence[name]; ok {
		order = o
	}
	for i, s := range order {
		if s == source {
			return i
		}
	}
	return len(order)
}

// Store is the per-session field repository. Safe for concurrent use,
// though session handling serializes writers anyway.
type Store struct {
	mu     sync.RWMutex
	fields map[string][]domain.FieldValue
}

// New returns an empty store.
func New() *Store {
	return &Store{fields: make(map[string][]domain.FieldValue)}
}

// FromHistory rebuilds a store from persisted values.
func FromHistory(values []domain.FieldValue) *Store {
	s := New()
	for _, v := range values {
		s.fields[v.Name] = append(s.fields[v.Name], v)
	}
	return s
}

// Append records a value. It never replaces earlier values.
func (s *Store) Append(v domain.FieldValue) error {
	if v.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidField)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidField, v.Confidence)
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.fields[v.Name] = append(s.fields[v.Name], v)
	s.mu.Unlock()
	return nil
}

// Resolve returns the decision value for a field: best precedence,
// then highest confidence, then most recent.
func (s *Store) Resolve(name string) (domain.FieldValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.fields[name]
	if len(history) == 0 {
		return domain.FieldValue{}, false
	}
	best := history[0]
	for _, v := range history[1:] {
		br, vr := rank(name, best.Source), rank(name, v.Source)
		switch {
		case vr < br:
			best = v
		case vr == br && v.Confidence > best.Confidence:
			best = v
		case vr == br && v.Confidence == best.Confidence && v.RecordedAt.After(best.RecordedAt):
			best = v
		}
	}
	return best, true
}

// Has reports whether any value exists for the field. Track choice is
// irrelevant here on purpose: presence, not provenance, gates states.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fields[name]) > 0
}

// Value returns the resolved raw string, or "".
func (s *Store) Value(name string) string {
	v, ok := s.Resolve(name)
	if !ok {
		return ""
	}
	return v.Value
}

// Decimal parses the resolved value as a decimal amount.
func (s *Store) Decimal(name string) (decimal.Decimal, bool) {
	v, ok := s.Resolve(name)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(v.Value)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// History returns every recorded value for a field, oldest first.
func (s *Store) History(name string) []domain.FieldValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FieldValue, len(s.fields[name]))
	copy(out, s.fields[name])
	return out
}

// Names lists fields with at least one value, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.fields))
	for n := range s.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Summary maps every known field to its resolved value. Handed to the
// language collaborator as conversation context.
func (s *Store) Summary() map[string]string {
	out := make(map[string]string)
	for _, n := range s.Names() {
		out[n] = s.Value(n)
	}
	return out
}
