package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"brokerbot/internal/domain"
	"brokerbot/internal/eligibility"
	"brokerbot/internal/nlu"
	"brokerbot/internal/rules"
	"brokerbot/internal/store"
)

func testEngine(t *testing.T, oracle nlu.Oracle) (*Engine, *store.Memory) {
	t.Helper()
	catalog, err := rules.NewCatalog(filepath.Join("..", "..", "configs", "rule_catalog.yaml"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	mem := store.NewMemory()
	engine := NewEngine(mem, oracle, eligibility.New(catalog), nil, nil, Options{})
	return engine, mem
}

func transition(trigger Trigger, reply string) nlu.ScriptStep {
	return nlu.ScriptStep{Proposal: nlu.StepProposal{
		Action: nlu.ActionTransition, Trigger: string(trigger), Reply: reply,
	}}
}

func candidate(name, value string) domain.FieldCandidate {
	return domain.FieldCandidate{
		Name: name, Value: value,
		Source: domain.SourceDeclared, Confidence: 0.95,
	}
}

func TestHappyPathEmployedManualTrack(t *testing.T) {
	ctx := context.Background()
	oracle := nlu.NewScripted(
		transition(TriggerStart, "Welcome!"),
		transition(TriggerConsentGiven, "Thanks for the consent."),
		transition(TriggerNeedsStated, "Understood."),
		transition(TriggerEmployed, "Noted, employee."),
		transition(TriggerEmployerRecorded, "Private employer."),
		transition(TriggerManualTrack, "Let's collect the data."),
		transition(TriggerFieldsCollected, "All collected."),
		transition(TriggerHouseholdDone, "Household noted."),
		transition(TriggerLiabilitiesDone, "Computing your options."),
	)
	engine, _ := testEngine(t, oracle)

	sess, err := engine.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := sess.ID.String()

	turns := []Message{
		{SessionID: id, Text: "hi"},
		{SessionID: id, Text: "yes, I consent",
			Candidates: []domain.FieldCandidate{candidate("consent", "true")}},
		{SessionID: id, Text: "a car, around 15k",
			Candidates: []domain.FieldCandidate{
				candidate("loan_purpose", "car"), candidate("requested_amount", "15000")}},
		{SessionID: id, Text: "I'm an employee",
			Candidates: []domain.FieldCandidate{candidate("employment_type", "employed")}},
		{SessionID: id, Text: "a private company",
			Candidates: []domain.FieldCandidate{candidate("employer_category", "private")}},
		{SessionID: id, Text: "I'll just tell you"},
		{SessionID: id, Text: "here is everything",
			Candidates: []domain.FieldCandidate{
				candidate("tax_code", "RSSMRA85H52F205C"),
				candidate("net_monthly_income", "1750")}},
		{SessionID: id, Text: "three of us",
			Candidates: []domain.FieldCandidate{candidate("household_size", "3")}},
	}
	for i, msg := range turns {
		if _, err := engine.HandleMessage(ctx, msg); err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
	}

	err = engine.AddLiability(ctx, id, domain.Liability{
		Type:               domain.LiabilityPersonalLoan,
		MonthlyInstallment: decimal.RequireFromString("180"),
	})
	if err != nil {
		t.Fatalf("add liability: %v", err)
	}

	reply, err := engine.HandleMessage(ctx, Message{
		SessionID: id, Text: "that's all my loans",
		Candidates: []domain.FieldCandidate{candidate("liabilities_confirmed", "true")},
	})
	if err != nil {
		t.Fatalf("final turn: %v", err)
	}

	if reply.State != domain.StateResult {
		t.Fatalf("state = %s, want result", reply.State)
	}
	if len(reply.Matches) == 0 {
		t.Fatal("no matches returned at the result state")
	}
	top := reply.Matches[0]
	if top.ProductID != "salary_assignment" || top.Outcome != domain.MatchEligible {
		t.Errorf("top match = %s/%s, want eligible salary_assignment", top.ProductID, top.Outcome)
	}
	if top.Terms == nil || !top.Terms.MaxInstallment.Equal(decimal.RequireFromString("350")) {
		t.Errorf("top terms = %+v, want max installment 350.00", top.Terms)
	}
}

func TestTaxCodeDecodedIntoFields(t *testing.T) {
	ctx := context.Background()
	oracle := nlu.NewScripted(
		nlu.ScriptStep{Proposal: nlu.StepProposal{Action: nlu.ActionClarify, Reply: "And your income?"}},
	)
	engine, mem := testEngine(t, oracle)

	sess, _ := engine.StartSession(ctx)
	id := sess.ID.String()
	if _, err := engine.HandleMessage(ctx, Message{
		SessionID:  id,
		Candidates: []domain.FieldCandidate{candidate("tax_code", "RSSMRA85H52F205C")},
	}); err != nil {
		t.Fatalf("turn: %v", err)
	}

	fields, _ := mem.Fields(ctx, id)
	byName := map[string]string{}
	for _, f := range fields {
		byName[f.Name] = f.Value
	}
	if byName["birth_date"] != "1985-06-12" {
		t.Errorf("birth_date = %s, want 1985-06-12", byName["birth_date"])
	}
	if byName["sex"] != "F" {
		t.Errorf("sex = %s, want F", byName["sex"])
	}

	calcs, _ := mem.Calculations(ctx, id)
	if len(calcs) != 1 || calcs[0].Kind != domain.CalcTaxCode {
		t.Errorf("calculations = %+v, want one tax_code record", calcs)
	}
}

func TestClarificationBoundForcesEscalation(t *testing.T) {
	ctx := context.Background()
	clarify := nlu.ScriptStep{Proposal: nlu.StepProposal{
		Action: nlu.ActionClarify, ClarifyField: "consent", Reply: "Do you consent?",
	}}
	oracle := nlu.NewScripted(
		transition(TriggerStart, "Welcome!"),
		clarify, clarify, clarify, clarify,
	)
	engine, mem := testEngine(t, oracle)

	sess, _ := engine.StartSession(ctx)
	id := sess.ID.String()
	engine.HandleMessage(ctx, Message{SessionID: id, Text: "hi"})

	var last Reply
	for i := 0; i < 4; i++ {
		var err error
		last, err = engine.HandleMessage(ctx, Message{SessionID: id, Text: "hm"})
		if err != nil {
			t.Fatalf("clarify round %d: %v", i+1, err)
		}
	}

	if last.State != domain.StateEscalated {
		t.Fatalf("state after bound = %s, want escalated", last.State)
	}
	got, _ := mem.GetSession(ctx, id)
	if got.Outcome != domain.OutcomeEscalated || got.OutcomeReason == "" {
		t.Errorf("outcome = %s (%q), want escalated with a reason", got.Outcome, got.OutcomeReason)
	}
}

func TestOracleFailureEscalatesAfterRetries(t *testing.T) {
	ctx := context.Background()
	oracle := nlu.NewScripted() // immediately exhausted: every call errors
	engine, _ := testEngine(t, oracle)

	sess, _ := engine.StartSession(ctx)
	reply, err := engine.HandleMessage(ctx, Message{SessionID: sess.ID.String(), Text: "hi"})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if reply.State != domain.StateEscalated {
		t.Errorf("state = %s, want escalated when the oracle is down", reply.State)
	}
	if len(oracle.Requests) != 1 {
		t.Errorf("oracle calls = %d, want 1 (no retries configured)", len(oracle.Requests))
	}
}

func TestInvalidProposalHoldsState(t *testing.T) {
	ctx := context.Background()
	oracle := nlu.NewScripted(
		// Gating must reject this: no consent field collected yet.
		nlu.ScriptStep{Proposal: nlu.StepProposal{
			Action: nlu.ActionTransition, Trigger: string(TriggerConsentGiven), Reply: "Moving on!",
		}},
	)
	engine, _ := testEngine(t, oracle)

	sess, _ := engine.StartSession(ctx)
	engine.HandleMessage(ctx, Message{SessionID: sess.ID.String(), Text: "hi"}) // welcome -> proposal rejected? start needed

	got, _ := engine.store.GetSession(ctx, sess.ID.String())
	if got.State != domain.StateWelcome {
		t.Errorf("state = %s, want welcome held (invalid trigger rejected)", got.State)
	}
}

func TestTerminalSessionRejectsMessages(t *testing.T) {
	ctx := context.Background()
	oracle := nlu.NewScripted(
		transition(TriggerStart, ""),
		transition(TriggerAbandon, "Goodbye."),
	)
	engine, _ := testEngine(t, oracle)

	sess, _ := engine.StartSession(ctx)
	id := sess.ID.String()
	engine.HandleMessage(ctx, Message{SessionID: id, Text: "hi"})
	reply, err := engine.HandleMessage(ctx, Message{SessionID: id, Text: "forget it"})
	if err != nil {
		t.Fatalf("abandon turn: %v", err)
	}
	if reply.State != domain.StateAbandoned {
		t.Fatalf("state = %s, want abandoned", reply.State)
	}

	if _, err := engine.HandleMessage(ctx, Message{SessionID: id, Text: "wait"}); !errors.Is(err, ErrSessionTerminal) {
		t.Errorf("message to terminal session = %v, want ErrSessionTerminal", err)
	}
}

func TestOperatorIntervention(t *testing.T) {
	ctx := context.Background()
	engine, mem := testEngine(t, nlu.NewScripted())

	sess, _ := engine.StartSession(ctx)
	id := sess.ID.String()
	if err := engine.Intervene(ctx, id, "manual review"); err != nil {
		t.Fatalf("intervene: %v", err)
	}
	got, _ := mem.GetSession(ctx, id)
	if got.State != domain.StateEscalated || got.Outcome != domain.OutcomeEscalated {
		t.Errorf("session = %s/%s, want escalated", got.State, got.Outcome)
	}

	if err := engine.Intervene(ctx, id, "again"); !errors.Is(err, ErrSessionTerminal) {
		t.Errorf("second intervention = %v, want ErrSessionTerminal", err)
	}
}

func TestPurgeLeavesAnonymizedSkeleton(t *testing.T) {
	ctx := context.Background()
	oracle := nlu.NewScripted(
		nlu.ScriptStep{Proposal: nlu.StepProposal{Action: nlu.ActionClarify, Reply: "ok"}},
	)
	engine, mem := testEngine(t, oracle)

	sess, _ := engine.StartSession(ctx)
	id := sess.ID.String()
	engine.HandleMessage(ctx, Message{SessionID: id,
		Candidates: []domain.FieldCandidate{candidate("tax_code", "RSSMRA85H52F205C")}})

	if err := engine.Purge(ctx, id); err != nil {
		t.Fatalf("purge: %v", err)
	}
	fields, _ := mem.Fields(ctx, id)
	if len(fields) != 0 {
		t.Errorf("fields survived purge: %+v", fields)
	}
	got, err := mem.GetSession(ctx, id)
	if err != nil || !got.Anonymized {
		t.Errorf("session = %+v, %v; want anonymized skeleton", got, err)
	}
}
