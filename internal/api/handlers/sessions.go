package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerbot/internal/conversation"
	"brokerbot/internal/domain"
	"brokerbot/internal/store"
)

type MessageRequest struct {
	Text       string                  `json:"text"`
	Candidates []domain.FieldCandidate `json:"candidates,omitempty"`
}

type LiabilityRequest struct {
	Type               string `json:"type"`
	MonthlyInstallment string `json:"monthly_installment"`
	RemainingMonths    int    `json:"remaining_months"`
	TotalMonths        int    `json:"total_months"`
	ResidualAmount     string `json:"residual_amount"`
}

// HandleCreateSession opens a new qualification session.
func HandleCreateSession(engine *conversation.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := engine.StartSession(r.Context())
		if err != nil {
			writeError(w, "failed to create session", err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	})
}

// HandleGetSession returns the session skeleton.
func HandleGetSession(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := st.GetSession(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, "failed to load session", err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	})
}

// HandleMessage runs one conversation turn.
func HandleMessage(engine *conversation.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
			return
		}

		reply, err := engine.HandleMessage(r.Context(), conversation.Message{
			SessionID:  r.PathValue("id"),
			Text:       req.Text,
			Candidates: req.Candidates,
		})
		if err != nil {
			writeError(w, "failed to handle message", err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	})
}

// HandleAddLiability records an existing obligation.
func HandleAddLiability(engine *conversation.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req LiabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
			return
		}

		installment, err := decimal.NewFromString(req.MonthlyInstallment)
		if err != nil || installment.Sign() < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "invalid monthly installment", err)
			return
		}
		residual := decimal.Zero
		if req.ResidualAmount != "" {
			if residual, err = decimal.NewFromString(req.ResidualAmount); err != nil {
				writeErrorResponse(w, http.StatusBadRequest, "invalid residual amount", err)
				return
			}
		}

		l := domain.Liability{
			ID:                 uuid.New(),
			Type:               domain.LiabilityType(req.Type),
			MonthlyInstallment: installment,
			RemainingMonths:    req.RemainingMonths,
			TotalMonths:        req.TotalMonths,
			ResidualAmount:     residual,
		}
		if err := engine.AddLiability(r.Context(), r.PathValue("id"), l); err != nil {
			writeError(w, "failed to add liability", err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	})
}

// HandleGetMatches returns the ranked product list of the last
// eligibility run.
func HandleGetMatches(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		matches, err := st.Matches(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, "failed to load matches", err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	})
}

// HandleEscalate lets an operator pull a session out of the flow.
func HandleEscalate(engine *conversation.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
		if err := engine.Intervene(r.Context(), r.PathValue("id"), req.Reason); err != nil {
			writeError(w, "failed to escalate", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"escalated": true})
	})
}

// HandlePurge erases personal data for a session.
func HandlePurge(engine *conversation.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Purge(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, "failed to purge session", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"purged": true})
	})
}
