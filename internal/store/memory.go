package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brokerbot/internal/domain"
	"brokerbot/internal/events"
)

type sessionRecord struct {
	session      domain.Session
	fields       []domain.FieldValue
	liabilities  []domain.Liability
	calculations []domain.CalculationResult
	matches      []domain.ProductMatch
	matchVersion string
	events       []events.Event
}

// Memory keeps everything in process. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*sessionRecord)}
}

func (m *Memory) CreateSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID.String()]; ok {
		return fmt.Errorf("%w: session %s", ErrConflict, s.ID)
	}
	m.sessions[s.ID.String()] = &sessionRecord{session: cloneSession(*s)}
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	s := cloneSession(rec.session)
	return &s, nil
}

func (m *Memory) UpdateSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[s.ID.String()]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, s.ID)
	}
	rec.session = cloneSession(*s)
	return nil
}

func (m *Memory) AppendField(_ context.Context, sessionID string, f domain.FieldValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	rec.fields = append(rec.fields, f)
	return nil
}

func (m *Memory) Fields(_ context.Context, sessionID string) ([]domain.FieldValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	out := make([]domain.FieldValue, len(rec.fields))
	copy(out, rec.fields)
	return out, nil
}

func (m *Memory) AddLiability(_ context.Context, sessionID string, l domain.Liability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	rec.liabilities = append(rec.liabilities, l)
	return nil
}

func (m *Memory) Liabilities(_ context.Context, sessionID string) ([]domain.Liability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	out := make([]domain.Liability, len(rec.liabilities))
	copy(out, rec.liabilities)
	return out, nil
}

func (m *Memory) SaveCalculation(_ context.Context, c domain.CalculationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[c.SessionID.String()]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, c.SessionID)
	}
	rec.calculations = append(rec.calculations, c)
	return nil
}

func (m *Memory) Calculations(_ context.Context, sessionID string) ([]domain.CalculationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	out := make([]domain.CalculationResult, len(rec.calculations))
	copy(out, rec.calculations)
	return out, nil
}

func (m *Memory) ReplaceMatches(_ context.Context, sessionID, catalogVersion string, matches []domain.ProductMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	rec.matches = make([]domain.ProductMatch, len(matches))
	copy(rec.matches, matches)
	rec.matchVersion = catalogVersion
	return nil
}

func (m *Memory) Matches(_ context.Context, sessionID string) ([]domain.ProductMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	out := make([]domain.ProductMatch, len(rec.matches))
	copy(out, rec.matches)
	return out, nil
}

func (m *Memory) AppendEvent(_ context.Context, ev events.Event) error {
	if ev.SessionID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[ev.SessionID]
	if !ok {
		return nil // events may outlive sessions; never an error
	}
	rec.events = append(rec.events, ev)
	return nil
}

// Events returns the recorded trail for a session, for tests and the
// admin surface.
func (m *Memory) Events(_ context.Context, sessionID string) ([]events.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	out := make([]events.Event, len(rec.events))
	copy(out, rec.events)
	return out, nil
}

func (m *Memory) PurgeSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	rec.fields = nil
	rec.liabilities = nil
	rec.calculations = nil
	rec.matches = nil
	for i := range rec.events {
		rec.events[i].Payload = nil
	}
	rec.session.Anonymized = true
	rec.session.OutcomeReason = ""
	rec.session.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneSession(s domain.Session) domain.Session {
	if s.Clarifications != nil {
		c := make(map[string]int, len(s.Clarifications))
		for k, v := range s.Clarifications {
			c[k] = v
		}
		s.Clarifications = c
	}
	return s
}
