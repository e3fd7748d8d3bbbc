package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"brokerbot/internal/domain"
	"brokerbot/internal/events"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres persists sessions in PostgreSQL. Structured attachments
// (clarification counters, calculation payloads, match terms) live in
// jsonb columns; everything queried on gets its own column.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreateSession(ctx context.Context, s *domain.Session) error {
	clar, err := json.Marshal(s.Clarifications)
	if err != nil {
		return fmt.Errorf("marshaling clarifications: %w", err)
	}
	_, err = psql.Insert("sessions").
		Columns("id", "state", "employment", "track", "outcome", "outcome_reason",
			"clarifications", "anonymized", "created_at", "updated_at", "completed_at").
		Values(s.ID, s.State, s.Employment, s.Track, s.Outcome, s.OutcomeReason,
			clar, s.Anonymized, s.CreatedAt, s.UpdatedAt, s.CompletedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := psql.Select("id", "state", "employment", "track", "outcome", "outcome_reason",
		"clarifications", "anonymized", "created_at", "updated_at", "completed_at").
		From("sessions").Where(sq.Eq{"id": id}).
		RunWith(p.db).QueryRowContext(ctx)

	var s domain.Session
	var clar []byte
	err := row.Scan(&s.ID, &s.State, &s.Employment, &s.Track, &s.Outcome, &s.OutcomeReason,
		&clar, &s.Anonymized, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if len(clar) > 0 {
		if err := json.Unmarshal(clar, &s.Clarifications); err != nil {
			return nil, fmt.Errorf("unmarshaling clarifications: %w", err)
		}
	}
	return &s, nil
}

func (p *Postgres) UpdateSession(ctx context.Context, s *domain.Session) error {
	clar, err := json.Marshal(s.Clarifications)
	if err != nil {
		return fmt.Errorf("marshaling clarifications: %w", err)
	}
	res, err := psql.Update("sessions").
		Set("state", s.State).
		Set("employment", s.Employment).
		Set("track", s.Track).
		Set("outcome", s.Outcome).
		Set("outcome_reason", s.OutcomeReason).
		Set("clarifications", clar).
		Set("anonymized", s.Anonymized).
		Set("updated_at", s.UpdatedAt).
		Set("completed_at", s.CompletedAt).
		Where(sq.Eq{"id": s.ID}).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, s.ID)
	}
	return nil
}

func (p *Postgres) AppendField(ctx context.Context, sessionID string, f domain.FieldValue) error {
	_, err := psql.Insert("session_fields").
		Columns("session_id", "name", "value", "source", "confidence", "recorded_at").
		Values(sessionID, f.Name, f.Value, f.Source, f.Confidence, f.RecordedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("appending field: %w", err)
	}
	return nil
}

func (p *Postgres) Fields(ctx context.Context, sessionID string) ([]domain.FieldValue, error) {
	rows, err := psql.Select("name", "value", "source", "confidence", "recorded_at").
		From("session_fields").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("recorded_at ASC", "id ASC").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying fields: %w", err)
	}
	defer rows.Close()

	var out []domain.FieldValue
	for rows.Next() {
		var f domain.FieldValue
		if err := rows.Scan(&f.Name, &f.Value, &f.Source, &f.Confidence, &f.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) AddLiability(ctx context.Context, sessionID string, l domain.Liability) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := psql.Insert("liabilities").
		Columns("id", "session_id", "type", "monthly_installment",
			"remaining_months", "total_months", "residual_amount").
		Values(l.ID, sessionID, l.Type, l.MonthlyInstallment,
			l.RemainingMonths, l.TotalMonths, l.ResidualAmount).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("inserting liability: %w", err)
	}
	return nil
}

func (p *Postgres) Liabilities(ctx context.Context, sessionID string) ([]domain.Liability, error) {
	rows, err := psql.Select("id", "type", "monthly_installment",
		"remaining_months", "total_months", "residual_amount").
		From("liabilities").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying liabilities: %w", err)
	}
	defer rows.Close()

	var out []domain.Liability
	for rows.Next() {
		var l domain.Liability
		if err := rows.Scan(&l.ID, &l.Type, &l.MonthlyInstallment,
			&l.RemainingMonths, &l.TotalMonths, &l.ResidualAmount); err != nil {
			return nil, fmt.Errorf("scanning liability: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveCalculation(ctx context.Context, c domain.CalculationResult) error {
	inputs, err := json.Marshal(c.Inputs)
	if err != nil {
		return fmt.Errorf("marshaling inputs: %w", err)
	}
	outputs, err := json.Marshal(c.Outputs)
	if err != nil {
		return fmt.Errorf("marshaling outputs: %w", err)
	}
	_, err = psql.Insert("calculations").
		Columns("id", "session_id", "kind", "inputs", "outputs", "created_at").
		Values(c.ID, c.SessionID, c.Kind, inputs, outputs, c.CreatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("inserting calculation: %w", err)
	}
	return nil
}

func (p *Postgres) Calculations(ctx context.Context, sessionID string) ([]domain.CalculationResult, error) {
	rows, err := psql.Select("id", "session_id", "kind", "inputs", "outputs", "created_at").
		From("calculations").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying calculations: %w", err)
	}
	defer rows.Close()

	var out []domain.CalculationResult
	for rows.Next() {
		var c domain.CalculationResult
		var inputs, outputs []byte
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Kind, &inputs, &outputs, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning calculation: %w", err)
		}
		if err := json.Unmarshal(inputs, &c.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshaling inputs: %w", err)
		}
		if err := json.Unmarshal(outputs, &c.Outputs); err != nil {
			return nil, fmt.Errorf("unmarshaling outputs: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) ReplaceMatches(ctx context.Context, sessionID, catalogVersion string, matches []domain.ProductMatch) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := psql.Delete("product_matches").
		Where(sq.Eq{"session_id": sessionID}).
		RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("clearing matches: %w", err)
	}

	for _, m := range matches {
		detail, err := json.Marshal(struct {
			Missing []string               `json:"missing,omitempty"`
			Terms   *domain.EstimatedTerms `json:"terms,omitempty"`
			Conds   []domain.Condition     `json:"conditions,omitempty"`
		}{m.Missing, m.Terms, m.Conds})
		if err != nil {
			return fmt.Errorf("marshaling match detail: %w", err)
		}
		if _, err := psql.Insert("product_matches").
			Columns("session_id", "catalog_version", "product_id", "outcome", "rank", "reason", "detail").
			Values(sessionID, catalogVersion, m.ProductID, m.Outcome, m.Rank, m.Reason, detail).
			RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("inserting match: %w", err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) Matches(ctx context.Context, sessionID string) ([]domain.ProductMatch, error) {
	rows, err := psql.Select("product_id", "outcome", "rank", "reason", "detail").
		From("product_matches").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("rank ASC").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductMatch
	for rows.Next() {
		var m domain.ProductMatch
		var detail []byte
		if err := rows.Scan(&m.ProductID, &m.Outcome, &m.Rank, &m.Reason, &detail); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		var d struct {
			Missing []string               `json:"missing"`
			Terms   *domain.EstimatedTerms `json:"terms"`
			Conds   []domain.Condition     `json:"conditions"`
		}
		if err := json.Unmarshal(detail, &d); err != nil {
			return nil, fmt.Errorf("unmarshaling match detail: %w", err)
		}
		m.Missing, m.Terms, m.Conds = d.Missing, d.Terms, d.Conds
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendEvent(ctx context.Context, ev events.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}
	_, err = psql.Insert("session_events").
		Columns("id", "session_id", "type", "payload", "occurred_at").
		Values(ev.ID, nullableString(ev.SessionID), ev.Type, payload, ev.Timestamp).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// PurgeSession erases personal data inside one transaction so a crash
// can never leave a half-anonymized session behind.
func (p *Postgres) PurgeSession(ctx context.Context, sessionID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"session_fields", "liabilities", "calculations", "product_matches"} {
		if _, err := psql.Delete(table).
			Where(sq.Eq{"session_id": sessionID}).
			RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("purging %s: %w", table, err)
		}
	}

	if _, err := psql.Update("session_events").
		Set("payload", []byte("{}")).
		Where(sq.Eq{"session_id": sessionID}).
		RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("wiping event payloads: %w", err)
	}

	res, err := psql.Update("sessions").
		Set("anonymized", true).
		Set("outcome_reason", "").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": sessionID}).
		RunWith(tx).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("anonymizing session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return tx.Commit()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
