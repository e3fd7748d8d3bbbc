package conversation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"brokerbot/internal/calculators"
	"brokerbot/internal/domain"
	"brokerbot/internal/eligibility"
	"brokerbot/internal/events"
	"brokerbot/internal/fieldstore"
	"brokerbot/internal/nlu"
	"brokerbot/internal/notify"
	"brokerbot/internal/store"
)

// Message is one normalized inbound turn: what the user said plus any
// field candidates the extraction collaborator already produced.
type Message struct {
	SessionID  string
	Text       string
	Candidates []domain.FieldCandidate
}

// Reply is the engine's answer to one turn.
type Reply struct {
	SessionID   string                `json:"session_id"`
	State       domain.ConversationState `json:"state"`
	Text        string                `json:"text,omitempty"`
	Outstanding []domain.FieldSpec    `json:"outstanding,omitempty"`
	Matches     []domain.ProductMatch `json:"matches,omitempty"`
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	ClarificationLimit int // failed rounds per field before forced escalation
	OracleRetries      int // extra attempts after the first oracle failure
}

// Engine serializes per-session mutation and owns the conversation
// loop: merge fields, consult the oracle, re-validate, transition, and
// run the decision pipeline at the calculating state.
type Engine struct {
	store       store.Store
	oracle      nlu.Oracle
	eligibility *eligibility.Engine
	bus         *events.Bus
	notifier    notify.Notifier

	clarificationLimit int
	oracleRetries      int

	locks sync.Map // session id -> *sync.Mutex
	now   func() time.Time
}

func NewEngine(st store.Store, oracle nlu.Oracle, elig *eligibility.Engine,
	bus *events.Bus, notifier notify.Notifier, opts Options) *Engine {
	if opts.ClarificationLimit <= 0 {
		opts.ClarificationLimit = 3
	}
	if opts.OracleRetries < 0 {
		opts.OracleRetries = 0
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Engine{
		store:              st,
		oracle:             oracle,
		eligibility:        elig,
		bus:                bus,
		notifier:           notifier,
		clarificationLimit: opts.ClarificationLimit,
		oracleRetries:      opts.OracleRetries,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) lockFor(sessionID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// StartSession creates a fresh session at the welcome state.
func (e *Engine) StartSession(ctx context.Context) (*domain.Session, error) {
	now := e.now()
	s := &domain.Session{
		ID:             uuid.New(),
		State:          domain.StateWelcome,
		Clarifications: map[string]int{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	e.emit(events.Event{Type: events.TypeSessionStarted, SessionID: s.ID.String()})
	return s, nil
}

// HandleMessage runs one conversation turn. Turns for the same session
// are serialized; applying them out of order could let a later message
// pass a gate an earlier one had not yet satisfied.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) (Reply, error) {
	mu := e.lockFor(msg.SessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.GetSession(ctx, msg.SessionID)
	if err != nil {
		return Reply{}, err
	}
	if sess.Terminal() {
		return Reply{}, fmt.Errorf("%w: session %s in %s", ErrSessionTerminal, sess.ID, sess.State)
	}
	if !KnownState(sess.State) {
		// Invariant violation: force escalation, never ignore.
		zap.L().Error("session in unknown state",
			zap.String("session_id", msg.SessionID),
			zap.String("state", string(sess.State)))
		return e.escalate(ctx, sess, nil, "session reached an undeclared state")
	}

	fs, err := e.loadFields(ctx, msg.SessionID)
	if err != nil {
		return Reply{}, err
	}

	e.mergeCandidates(ctx, sess, fs, msg.Candidates)
	e.decodeTaxCode(ctx, sess, fs)

	proposal, err := e.consultOracle(ctx, sess, fs, msg.Text)
	if err != nil {
		return e.escalate(ctx, sess, fs, "language collaborator unavailable")
	}

	switch proposal.Action {
	case nlu.ActionClarify:
		return e.applyClarify(ctx, sess, fs, proposal)
	case nlu.ActionTransition:
		return e.applyTransition(ctx, sess, fs, proposal)
	default:
		// Malformed proposal: hold state and re-ask.
		zap.L().Warn("oracle proposed unknown action",
			zap.String("session_id", msg.SessionID),
			zap.String("action", proposal.Action))
		return e.reply(ctx, sess, fs, proposal.Reply), nil
	}
}

// AddLiability records an obligation for a live session.
func (e *Engine) AddLiability(ctx context.Context, sessionID string, l domain.Liability) error {
	mu := e.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Terminal() {
		return fmt.Errorf("%w: session %s", ErrSessionTerminal, sessionID)
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if err := e.store.AddLiability(ctx, sessionID, l); err != nil {
		return err
	}
	e.emit(events.Event{Type: events.TypeFieldMerged, SessionID: sessionID,
		Payload: map[string]string{"liability_type": string(l.Type)}})
	return nil
}

// Intervene escalates a session on operator request.
func (e *Engine) Intervene(ctx context.Context, sessionID, reason string) error {
	mu := e.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Terminal() {
		return fmt.Errorf("%w: session %s", ErrSessionTerminal, sessionID)
	}
	_, err = e.escalate(ctx, sess, nil, "operator intervention: "+reason)
	return err
}

// Purge erases personal data and leaves the anonymized skeleton.
func (e *Engine) Purge(ctx context.Context, sessionID string) error {
	mu := e.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := e.store.PurgeSession(ctx, sessionID); err != nil {
		return err
	}
	e.emit(events.Event{Type: events.TypeSessionPurged, SessionID: sessionID})
	return nil
}

// turn internals

func (e *Engine) loadFields(ctx context.Context, sessionID string) (*fieldstore.Store, error) {
	history, err := e.store.Fields(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading fields: %w", err)
	}
	return fieldstore.FromHistory(history), nil
}

// mergeCandidates validates and appends extraction output. An invalid
// candidate is skipped and logged; the field stays outstanding, which
// makes the next round re-ask for it.
func (e *Engine) mergeCandidates(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, candidates []domain.FieldCandidate) {
	for _, c := range candidates {
		if err := validateCandidate(c); err != nil {
			zap.L().Warn("rejected field candidate",
				zap.String("session_id", sess.ID.String()),
				zap.String("field", c.Name),
				zap.Error(err))
			continue
		}
		value := domain.FieldValue{
			Name: c.Name, Value: c.Value,
			Source: c.Source, Confidence: c.Confidence,
			RecordedAt: e.now(),
		}
		if err := fs.Append(value); err != nil {
			zap.L().Warn("rejected field value", zap.String("field", c.Name), zap.Error(err))
			continue
		}
		if err := e.store.AppendField(ctx, sess.ID.String(), value); err != nil {
			zap.L().Error("persisting field failed", zap.String("field", c.Name), zap.Error(err))
			continue
		}
		e.emit(events.Event{Type: events.TypeFieldMerged, SessionID: sess.ID.String(),
			Payload: map[string]string{"field": c.Name, "source": string(c.Source)}})
	}
}

// decodeTaxCode derives birth data from a freshly collected tax code.
// Decode failures are recoverable: the code is a candidate for
// re-collection, nothing else breaks.
func (e *Engine) decodeTaxCode(ctx context.Context, sess *domain.Session, fs *fieldstore.Store) {
	if !fs.Has("tax_code") || fs.Has("birth_date") {
		return
	}
	code := fs.Value("tax_code")
	data, err := calculators.DecodeTaxCode(code, e.now())
	if err != nil {
		zap.L().Warn("tax code decode failed",
			zap.String("session_id", sess.ID.String()),
			zap.Error(err))
		return
	}

	decoded := []domain.FieldValue{
		{Name: "birth_date", Value: data.BirthDate.Format("2006-01-02")},
		{Name: "age", Value: strconv.Itoa(data.Age)},
		{Name: "sex", Value: data.Sex},
		{Name: "birthplace_code", Value: data.BirthplaceCode},
	}
	for _, v := range decoded {
		v.Source = domain.SourceDecoded
		v.Confidence = 1
		v.RecordedAt = e.now()
		fs.Append(v)
		if err := e.store.AppendField(ctx, sess.ID.String(), v); err != nil {
			zap.L().Error("persisting decoded field failed", zap.String("field", v.Name), zap.Error(err))
		}
	}

	e.saveCalculation(ctx, sess, domain.CalcTaxCode,
		map[string]string{"tax_code": code},
		map[string]string{
			"birth_date": data.BirthDate.Format("2006-01-02"),
			"age":        strconv.Itoa(data.Age),
			"sex":        data.Sex,
		})
}

func (e *Engine) consultOracle(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, utterance string) (nlu.StepProposal, error) {
	req := nlu.NextStepRequest{
		SessionID:     sess.ID.String(),
		State:         string(sess.State),
		Utterance:     utterance,
		Outstanding:   Outstanding(sess.State, fs),
		Summary:       fs.Summary(),
		ValidTriggers: ValidTriggers(sess.State),
	}

	var lastErr error
	for attempt := 0; attempt <= e.oracleRetries; attempt++ {
		proposal, err := e.oracle.NextStep(ctx, req)
		if err == nil {
			return proposal, nil
		}
		lastErr = err
		zap.L().Warn("oracle attempt failed",
			zap.String("session_id", sess.ID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nlu.StepProposal{}, lastErr
}

// applyClarify holds the state and counts the round. The same field
// asked too many times forces escalation with the reason recorded.
func (e *Engine) applyClarify(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, p nlu.StepProposal) (Reply, error) {
	field := p.ClarifyField
	if field != "" && !outstandingContains(Outstanding(sess.State, fs), field) {
		zap.L().Warn("oracle clarified a non-outstanding field",
			zap.String("session_id", sess.ID.String()),
			zap.String("field", field))
		return e.reply(ctx, sess, fs, p.Reply), nil
	}

	if field != "" {
		if sess.Clarifications == nil {
			sess.Clarifications = map[string]int{}
		}
		sess.Clarifications[field]++
		e.emit(events.Event{Type: events.TypeClarification, SessionID: sess.ID.String(),
			Payload: map[string]string{
				"field": field,
				"round": strconv.Itoa(sess.Clarifications[field]),
			}})
		if sess.Clarifications[field] > e.clarificationLimit {
			return e.escalate(ctx, sess, fs,
				fmt.Sprintf("field %q unresolved after %d clarification rounds", field, e.clarificationLimit))
		}
	}

	sess.UpdatedAt = e.now()
	if err := e.store.UpdateSession(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("updating session: %w", err)
	}
	return e.reply(ctx, sess, fs, p.Reply), nil
}

// applyTransition re-validates the proposed trigger against the graph.
// The oracle proposes; the graph disposes.
func (e *Engine) applyTransition(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, p nlu.StepProposal) (Reply, error) {
	trigger := Trigger(p.Trigger)
	next, err := Next(sess.State, trigger, fs)
	if err != nil {
		// Recoverable: hold state, let the next round try again.
		zap.L().Warn("rejected oracle transition",
			zap.String("session_id", sess.ID.String()),
			zap.String("trigger", p.Trigger),
			zap.Error(err))
		return e.reply(ctx, sess, fs, p.Reply), nil
	}

	return e.commitTransition(ctx, sess, fs, trigger, next, p.Reply)
}

func (e *Engine) commitTransition(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, trigger Trigger, next domain.ConversationState, replyText string) (Reply, error) {
	prev := sess.State
	sess.State = next
	sess.UpdatedAt = e.now()

	if emp, ok := employmentTriggers[trigger]; ok && prev == domain.StateEmploymentType {
		sess.Employment = emp
	}
	switch trigger {
	case TriggerDocumentTrack:
		sess.Track = domain.TrackDocument
	case TriggerManualTrack:
		sess.Track = domain.TrackManual
	}

	if sess.Terminal() {
		e.finalize(ctx, sess, terminalReason(trigger))
	}

	if err := e.store.UpdateSession(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("updating session: %w", err)
	}
	e.emit(events.Event{Type: events.TypeStateChanged, SessionID: sess.ID.String(),
		Payload: map[string]string{
			"from": string(prev), "to": string(next), "trigger": string(trigger),
		}})

	if sess.State == domain.StateEscalated {
		if err := e.notifier.Escalation(ctx, sess.ID.String(), sess.OutcomeReason); err != nil {
			zap.L().Error("escalation notification failed",
				zap.String("session_id", sess.ID.String()), zap.Error(err))
		}
	}

	if sess.State == domain.StateCalculating {
		return e.runDecisionPipeline(ctx, sess, fs, replyText)
	}
	return e.reply(ctx, sess, fs, replyText), nil
}

// runDecisionPipeline executes the calculators and the eligibility run
// on entry to the calculating state, then advances to the result state
// without another oracle round.
func (e *Engine) runDecisionPipeline(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, replyText string) (Reply, error) {
	income, err := e.normalizedIncome(ctx, sess, fs)
	if err != nil {
		zap.L().Warn("income normalization failed",
			zap.String("session_id", sess.ID.String()), zap.Error(err))
		return e.escalate(ctx, sess, fs, "income could not be established")
	}

	liabilities, err := e.store.Liabilities(ctx, sess.ID.String())
	if err != nil {
		return Reply{}, fmt.Errorf("loading liabilities: %w", err)
	}

	retired := sess.Employment == domain.EmploymentRetired
	capacity, err := calculators.Capacity(income,
		sumByType(liabilities, domain.LiabilityAssignment),
		sumByType(liabilities, domain.LiabilityDelegation),
		retired)
	if err != nil {
		return e.escalate(ctx, sess, fs, "capacity could not be computed")
	}
	capOutputs := map[string]string{
		"max_primary":         capacity.MaxPrimary.String(),
		"available_primary":   capacity.AvailablePrimary.String(),
		"available_secondary": capacity.AvailableSecondary.String(),
		"total_available":     capacity.TotalAvailable.String(),
	}
	if age, err := strconv.Atoi(fs.Value("age")); err == nil {
		capOutputs["max_duration_months"] = strconv.Itoa(calculators.MaxDurationForAge(age))
	}
	e.saveCalculation(ctx, sess, domain.CalcCapacity,
		map[string]string{"net_monthly": income.String(), "retired": strconv.FormatBool(retired)},
		capOutputs)

	ratio, err := calculators.DebtRatio(income, installments(liabilities), capacity.AvailablePrimary)
	if err != nil {
		return e.escalate(ctx, sess, fs, "debt ratio could not be computed")
	}
	e.saveCalculation(ctx, sess, domain.CalcDebtRatio,
		map[string]string{
			"net_monthly": income.String(),
			"proposed":    capacity.AvailablePrimary.String(),
		},
		map[string]string{
			"current_ratio":   ratio.CurrentRatio.String(),
			"projected_ratio": ratio.ProjectedRatio.String(),
			"band":            string(ratio.Band),
		})
	e.emit(events.Event{Type: events.TypeCalculationDone, SessionID: sess.ID.String(),
		Payload: map[string]string{"band": string(ratio.Band)}})

	profile := e.buildProfile(sess, fs, income, liabilities)
	result, err := e.eligibility.Evaluate(profile)
	if err != nil {
		return e.escalate(ctx, sess, fs, "eligibility evaluation unavailable")
	}
	if err := e.store.ReplaceMatches(ctx, sess.ID.String(), result.CatalogVersion, result.Matches); err != nil {
		return Reply{}, fmt.Errorf("storing matches: %w", err)
	}
	e.emit(events.Event{Type: events.TypeEligibilityDone, SessionID: sess.ID.String(),
		Payload: map[string]string{
			"catalog_version": result.CatalogVersion,
			"eligible":        strconv.Itoa(countEligible(result.Matches)),
		}})

	reply, err := e.commitTransition(ctx, sess, fs, TriggerDone, domain.StateResult, replyText)
	if err != nil {
		return Reply{}, err
	}
	reply.Matches = result.Matches
	return reply, nil
}

// normalizedIncome picks the raw figure per employment class and runs
// the normalizer. Self-employment uses declared annual revenue and the
// activity code; everyone else a monthly figure.
func (e *Engine) normalizedIncome(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store) (decimal.Decimal, error) {
	var raw decimal.Decimal
	var ok bool
	ateco := ""

	if sess.Employment == domain.EmploymentSelfEmployed {
		raw, ok = fs.Decimal("annual_revenue")
		ateco = fs.Value("ateco_code")
	} else {
		raw, ok = fs.Decimal("net_monthly_income")
	}
	if !ok {
		return decimal.Decimal{}, calculators.ErrUndefinedIncome
	}

	result, err := calculators.NormalizeIncome(sess.Employment, raw, ateco)
	if err != nil {
		return decimal.Decimal{}, err
	}
	e.saveCalculation(ctx, sess, domain.CalcIncome,
		map[string]string{"raw": raw.String(), "employment": string(sess.Employment), "ateco": ateco},
		map[string]string{"monthly_net": result.MonthlyNet.String(), "basis": result.Basis, "note": result.Note})
	return result.MonthlyNet, nil
}

func (e *Engine) buildProfile(sess *domain.Session, fs *fieldstore.Store,
	income decimal.Decimal, liabilities []domain.Liability) eligibility.Profile {
	p := eligibility.Profile{
		Employment:       sess.Employment,
		EmployerCategory: domain.EmployerCategory(fs.Value("employer_category")),
		PensionSource:    domain.PensionSource(fs.Value("pension_source")),
		NetMonthlyIncome: income,
		HasIncome:        income.Sign() > 0,
		ExPublicEmployee: fs.Value("ex_public_employee") == "true",
		HasCreditIssues:  fs.Value("credit_issues") == "true",
		Liabilities:      liabilities,
	}
	if age, err := strconv.Atoi(fs.Value("age")); err == nil {
		p.Age = age
		p.HasAge = true
	}
	return p
}

// escalate moves the session to the escalated state, records the
// reason, and alerts the operator. Notification failure is logged,
// never propagated.
func (e *Engine) escalate(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, reason string) (Reply, error) {
	prev := sess.State
	sess.State = domain.StateEscalated
	e.finalize(ctx, sess, reason)

	if err := e.store.UpdateSession(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("updating session: %w", err)
	}
	e.emit(events.Event{Type: events.TypeStateChanged, SessionID: sess.ID.String(),
		Payload: map[string]string{
			"from": string(prev), "to": string(domain.StateEscalated), "trigger": string(TriggerEscalate),
		}})

	if err := e.notifier.Escalation(ctx, sess.ID.String(), reason); err != nil {
		zap.L().Error("escalation notification failed",
			zap.String("session_id", sess.ID.String()), zap.Error(err))
	}
	return e.reply(ctx, sess, fs, ""), nil
}

// finalize stamps the terminal disposition.
func (e *Engine) finalize(ctx context.Context, sess *domain.Session, reason string) {
	now := e.now()
	sess.CompletedAt = &now
	sess.UpdatedAt = now
	sess.OutcomeReason = reason

	switch sess.State {
	case domain.StateEscalated:
		sess.Outcome = domain.OutcomeEscalated
	case domain.StateAbandoned:
		sess.Outcome = domain.OutcomeAbandoned
	case domain.StateCompleted:
		sess.Outcome = e.completedOutcome(ctx, sess)
	}

	e.emit(events.Event{Type: lifecycleEvent(sess.State), SessionID: sess.ID.String(),
		Payload: map[string]string{"outcome": string(sess.Outcome), "reason": reason}})
}

// completedOutcome distinguishes a booked appointment from a plain
// qualified or not-eligible close.
func (e *Engine) completedOutcome(ctx context.Context, sess *domain.Session) domain.SessionOutcome {
	if sess.OutcomeReason == "appointment scheduled" {
		return domain.OutcomeScheduled
	}
	matches, err := e.store.Matches(ctx, sess.ID.String())
	if err == nil && countEligible(matches) > 0 {
		return domain.OutcomeQualified
	}
	return domain.OutcomeNotEligible
}

func (e *Engine) reply(ctx context.Context, sess *domain.Session,
	fs *fieldstore.Store, text string) Reply {
	r := Reply{
		SessionID: sess.ID.String(),
		State:     sess.State,
		Text:      text,
	}
	if fs != nil {
		r.Outstanding = Outstanding(sess.State, fs)
	}
	if sess.State == domain.StateResult {
		if matches, err := e.store.Matches(ctx, sess.ID.String()); err == nil {
			r.Matches = matches
		}
	}
	return r
}

func (e *Engine) saveCalculation(ctx context.Context, sess *domain.Session,
	kind domain.CalculationKind, inputs, outputs map[string]string) {
	c := domain.CalculationResult{
		ID:        uuid.New(),
		SessionID: sess.ID,
		Kind:      kind,
		Inputs:    inputs,
		Outputs:   outputs,
		CreatedAt: e.now(),
	}
	if err := e.store.SaveCalculation(ctx, c); err != nil {
		zap.L().Error("persisting calculation failed",
			zap.String("session_id", sess.ID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func (e *Engine) emit(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// helpers

func validateCandidate(c domain.FieldCandidate) error {
	if c.Name == "" {
		return fmt.Errorf("empty field name")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", c.Confidence)
	}
	spec, ok := fieldSpecFor(c.Name)
	if !ok {
		return nil // unknown fields are carried, not validated
	}
	switch spec.Kind {
	case domain.KindChoice:
		for _, v := range spec.AllowedValues {
			if v == c.Value {
				return nil
			}
		}
		return fmt.Errorf("value %q outside domain %v", c.Value, spec.AllowedValues)
	case domain.KindAmount:
		d, err := decimal.NewFromString(c.Value)
		if err != nil || d.Sign() < 0 {
			return fmt.Errorf("value %q is not a non-negative amount", c.Value)
		}
	case domain.KindInteger:
		if _, err := strconv.Atoi(c.Value); err != nil {
			return fmt.Errorf("value %q is not an integer", c.Value)
		}
	case domain.KindBool:
		if c.Value != "true" && c.Value != "false" {
			return fmt.Errorf("value %q is not a boolean", c.Value)
		}
	}
	return nil
}

func fieldSpecFor(name string) (domain.FieldSpec, bool) {
	for _, def := range flow {
		for _, spec := range def.required {
			if spec.Name == name {
				return spec, true
			}
		}
	}
	return domain.FieldSpec{}, false
}

func outstandingContains(specs []domain.FieldSpec, name string) bool {
	for _, s := range specs {
		if s.Name == name {
			return true
		}
	}
	return false
}

func terminalReason(trigger Trigger) string {
	switch trigger {
	case TriggerConsentDenied:
		return "consent denied"
	case TriggerDecline:
		return "user declined to proceed"
	case TriggerScheduled:
		return "appointment scheduled"
	case TriggerAbandon:
		return "conversation abandoned"
	case TriggerUnemployed:
		return "no product path for unemployed applicants"
	case TriggerMixed:
		return "mixed employment needs human review"
	case TriggerEscalate:
		return "escalation requested"
	}
	return ""
}

func lifecycleEvent(state domain.ConversationState) string {
	switch state {
	case domain.StateEscalated:
		return events.TypeSessionEscalated
	case domain.StateAbandoned:
		return events.TypeSessionAbandoned
	}
	return events.TypeSessionCompleted
}

func sumByType(liabilities []domain.Liability, t domain.LiabilityType) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range liabilities {
		if l.Type == t {
			sum = sum.Add(l.MonthlyInstallment)
		}
	}
	return sum
}

func installments(liabilities []domain.Liability) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(liabilities))
	for _, l := range liabilities {
		out = append(out, l.MonthlyInstallment)
	}
	return out
}

func countEligible(matches []domain.ProductMatch) int {
	n := 0
	for _, m := range matches {
		if m.Outcome == domain.MatchEligible {
			n++
		}
	}
	return n
}
