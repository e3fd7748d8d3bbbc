// Package store persists sessions and everything attached to them.
// Two implementations exist: an in-memory store for tests and single
// node demos, and a Postgres store for real deployments.
package store

import (
	"context"
	"errors"

	"brokerbot/internal/domain"
	"brokerbot/internal/events"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence surface the conversation engine works
// against. Every method takes the request context so a cancelled turn
// stops hitting the database.
type Store interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateSession(ctx context.Context, s *domain.Session) error

	// AppendField adds to the append-only field history. Existing
	// entries for the same field are never touched.
	AppendField(ctx context.Context, sessionID string, f domain.FieldValue) error
	Fields(ctx context.Context, sessionID string) ([]domain.FieldValue, error)

	AddLiability(ctx context.Context, sessionID string, l domain.Liability) error
	Liabilities(ctx context.Context, sessionID string) ([]domain.Liability, error)

	SaveCalculation(ctx context.Context, c domain.CalculationResult) error
	Calculations(ctx context.Context, sessionID string) ([]domain.CalculationResult, error)

	// ReplaceMatches swaps the session's ranked product list with the
	// outcome of a fresh eligibility run.
	ReplaceMatches(ctx context.Context, sessionID, catalogVersion string, matches []domain.ProductMatch) error
	Matches(ctx context.Context, sessionID string) ([]domain.ProductMatch, error)

	AppendEvent(ctx context.Context, ev events.Event) error

	// PurgeSession erases personal data for one session: field history,
	// liabilities, calculations and matches are deleted, the session row
	// is anonymized, and the event trail survives with payloads wiped.
	PurgeSession(ctx context.Context, sessionID string) error
}
