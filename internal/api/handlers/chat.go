package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"brokerbot/internal/conversation"
	"brokerbot/internal/domain"
)

type chatFrame struct {
	Text       string          `json:"text"`
	Candidates []chatCandidate `json:"candidates,omitempty"`
}

type chatCandidate struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

func (c chatCandidate) toDomain() domain.FieldCandidate {
	source := domain.FieldSource(c.Source)
	if c.Source == "" {
		source = domain.SourceDeclared
	}
	return domain.FieldCandidate{
		Name: c.Name, Value: c.Value,
		Source: source, Confidence: c.Confidence,
	}
}

func terminalState(state domain.ConversationState) bool {
	switch state {
	case domain.StateCompleted, domain.StateEscalated, domain.StateAbandoned:
		return true
	}
	return false
}

// HandleChat upgrades to a websocket and runs the conversation loop:
// one inbound frame per user turn, one reply frame back. The session
// id comes from the path; the socket closes when the session reaches a
// terminal state.
func HandleChat(engine *conversation.Engine, upgrader websocket.Upgrader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.L().Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		zap.L().Info("chat connected", zap.String("session_id", sessionID))

		for {
			var frame chatFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					zap.L().Warn("chat read failed",
						zap.String("session_id", sessionID), zap.Error(err))
				}
				return
			}

			msg := conversation.Message{SessionID: sessionID, Text: frame.Text}
			for _, c := range frame.Candidates {
				msg.Candidates = append(msg.Candidates, c.toDomain())
			}

			reply, err := engine.HandleMessage(r.Context(), msg)
			if err != nil {
				conn.WriteJSON(map[string]string{"error": err.Error()})
				return
			}
			if err := conn.WriteJSON(reply); err != nil {
				zap.L().Warn("chat write failed",
					zap.String("session_id", sessionID), zap.Error(err))
				return
			}

			if terminalState(reply.State) {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
		}
	})
}
