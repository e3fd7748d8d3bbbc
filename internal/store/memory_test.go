package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerbot/internal/domain"
	"brokerbot/internal/events"
)

func newSession(t *testing.T, m *Memory) *domain.Session {
	t.Helper()
	s := &domain.Session{
		ID:        uuid.New(),
		State:     domain.StateWelcome,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := m.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func TestMemorySessionLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(t, m)

	if err := m.CreateSession(ctx, s); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate create = %v, want ErrConflict", err)
	}

	s.State = domain.StateConsent
	if err := m.UpdateSession(ctx, s); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := m.GetSession(ctx, s.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != domain.StateConsent {
		t.Errorf("state = %s, want consent", got.State)
	}

	if _, err := m.GetSession(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session = %v, want ErrNotFound", err)
	}
}

func TestMemoryFieldsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(t, m)
	id := s.ID.String()

	for _, v := range []string{"1500", "1750"} {
		err := m.AppendField(ctx, id, domain.FieldValue{
			Name: "net_monthly_income", Value: v,
			Source: domain.SourceExtracted, Confidence: 0.9,
			RecordedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	fields, err := m.Fields(ctx, id)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("history length = %d, want 2 (corrections append, never overwrite)", len(fields))
	}
	if fields[0].Value != "1500" || fields[1].Value != "1750" {
		t.Errorf("history out of order: %+v", fields)
	}
}

func TestMemoryReplaceMatches(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(t, m)
	id := s.ID.String()

	first := []domain.ProductMatch{{ProductID: "salary_assignment", Outcome: domain.MatchEligible, Rank: 1}}
	if err := m.ReplaceMatches(ctx, id, "v1", first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	second := []domain.ProductMatch{
		{ProductID: "personal_loan", Outcome: domain.MatchEligible, Rank: 1},
		{ProductID: "salary_assignment", Outcome: domain.MatchIneligible, Rank: 2},
	}
	if err := m.ReplaceMatches(ctx, id, "v2", second); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := m.Matches(ctx, id)
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if len(got) != 2 || got[0].ProductID != "personal_loan" {
		t.Errorf("matches = %+v, want the second run only", got)
	}
}

func TestMemoryPurge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(t, m)
	id := s.ID.String()

	m.AppendField(ctx, id, domain.FieldValue{Name: "tax_code", Value: "RSSMRA85H52F205C", Source: domain.SourceExtracted, Confidence: 1})
	m.AddLiability(ctx, id, domain.Liability{Type: domain.LiabilityPersonalLoan, MonthlyInstallment: decimal.NewFromInt(180)})
	m.SaveCalculation(ctx, domain.CalculationResult{ID: uuid.New(), SessionID: s.ID, Kind: domain.CalcCapacity})
	m.AppendEvent(ctx, events.Event{ID: uuid.NewString(), Type: events.TypeSessionStarted,
		SessionID: id, Payload: map[string]string{"tax_code": "RSSMRA85H52F205C"}})

	if err := m.PurgeSession(ctx, id); err != nil {
		t.Fatalf("purge: %v", err)
	}

	if fields, _ := m.Fields(ctx, id); len(fields) != 0 {
		t.Errorf("fields survived purge: %+v", fields)
	}
	if liabs, _ := m.Liabilities(ctx, id); len(liabs) != 0 {
		t.Errorf("liabilities survived purge: %+v", liabs)
	}
	if calcs, _ := m.Calculations(ctx, id); len(calcs) != 0 {
		t.Errorf("calculations survived purge: %+v", calcs)
	}

	got, err := m.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("purged session must still exist: %v", err)
	}
	if !got.Anonymized {
		t.Error("session not flagged anonymized")
	}

	// The event trail stays, stripped of personal payloads.
	evs, err := m.Events(ctx, id)
	if err != nil || len(evs) != 1 {
		t.Fatalf("event trail = %+v, %v; want one event", evs, err)
	}
	if evs[0].Payload != nil {
		t.Errorf("event payload survived purge: %+v", evs[0].Payload)
	}
}
