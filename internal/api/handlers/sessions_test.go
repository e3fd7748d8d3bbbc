package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"brokerbot/internal/conversation"
	"brokerbot/internal/domain"
	"brokerbot/internal/eligibility"
	"brokerbot/internal/nlu"
	"brokerbot/internal/rules"
	"brokerbot/internal/store"
)

func testDeps(t *testing.T, oracle nlu.Oracle) (*conversation.Engine, *store.Memory) {
	t.Helper()
	catalog, err := rules.NewCatalog(filepath.Join("..", "..", "..", "configs", "rule_catalog.yaml"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	mem := store.NewMemory()
	engine := conversation.NewEngine(mem, oracle, eligibility.New(catalog), nil, nil,
		conversation.Options{})
	return engine, mem
}

func TestHandleCreateSession(t *testing.T) {
	engine, _ := testDeps(t, nlu.NewScripted())

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	rr := httptest.NewRecorder()
	HandleCreateSession(engine).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusCreated)
	}
	var sess domain.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &sess); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sess.State != domain.StateWelcome {
		t.Errorf("state = %s, want welcome", sess.State)
	}
}

func TestHandleMessageRunsOneTurn(t *testing.T) {
	oracle := nlu.NewScripted(nlu.ScriptStep{Proposal: nlu.StepProposal{
		Action: nlu.ActionTransition, Trigger: "start", Reply: "Welcome!",
	}})
	engine, _ := testDeps(t, oracle)

	sess, err := engine.StartSession(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	body, _ := json.Marshal(MessageRequest{Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID.String()+"/messages", bytes.NewBuffer(body))
	req.SetPathValue("id", sess.ID.String())
	rr := httptest.NewRecorder()
	HandleMessage(engine).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var reply conversation.Reply
	if err := json.Unmarshal(rr.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.State != domain.StateConsent {
		t.Errorf("state = %s, want consent", reply.State)
	}
	if reply.Text != "Welcome!" {
		t.Errorf("text = %q, want the oracle reply", reply.Text)
	}
}

func TestHandleMessageUnknownSession(t *testing.T) {
	engine, _ := testDeps(t, nlu.NewScripted())

	body, _ := json.Marshal(MessageRequest{Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/missing/messages", bytes.NewBuffer(body))
	req.SetPathValue("id", "00000000-0000-0000-0000-000000000000")
	rr := httptest.NewRecorder()
	HandleMessage(engine).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleAddLiabilityValidation(t *testing.T) {
	engine, _ := testDeps(t, nlu.NewScripted())
	sess, _ := engine.StartSession(context.Background())

	body, _ := json.Marshal(LiabilityRequest{Type: "personal_loan", MonthlyInstallment: "not-a-number"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/x/liabilities", bytes.NewBuffer(body))
	req.SetPathValue("id", sess.ID.String())
	rr := httptest.NewRecorder()
	HandleAddLiability(engine).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandlePurge(t *testing.T) {
	engine, mem := testDeps(t, nlu.NewScripted())
	sess, _ := engine.StartSession(context.Background())

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+sess.ID.String(), nil)
	req.SetPathValue("id", sess.ID.String())
	rr := httptest.NewRecorder()
	HandlePurge(engine).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	got, err := mem.GetSession(context.Background(), sess.ID.String())
	if err != nil || !got.Anonymized {
		t.Errorf("session = %+v, %v; want anonymized", got, err)
	}
}
