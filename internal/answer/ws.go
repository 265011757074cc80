package answer

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/surajshivkumar/ConvoLens/internal/apperr"
	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"` // "ask"
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type      string    `json:"type"` // "response" or "error"
	SessionID string    `json:"session_id"`
	Content   string    `json:"content,omitempty"`
	Envelope  *Envelope `json:"envelope,omitempty"`
}

// session holds one connection's conversation. It lives only as long as
// the connection.
type session struct {
	id      string
	history []llm.Message
}

func (s *session) record(question, answer string) {
	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Content: question},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	s.history = truncateHistory(s.history)
}

func handleWebSocket(router *Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := router.logger
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade", zap.Error(err))
			return
		}
		defer conn.Close()

		sess := &session{id: uuid.NewString()}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("websocket read", zap.Error(err))
				}
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				if !sendError(conn, sess.id, "invalid message format", log) {
					return
				}
				continue
			}

			if req.Type != "ask" {
				if !sendError(conn, sess.id, "unknown message type: "+req.Type, log) {
					return
				}
				continue
			}

			env, err := router.Handle(r.Context(), Question{Text: req.Content, History: sess.history})
			if err != nil {
				if !sendError(conn, sess.id, apperr.Detail(err), log) {
					return
				}
				continue
			}
			sess.record(req.Content, env.Answer)

			if err := conn.WriteJSON(wsResponse{Type: "response", SessionID: sess.id, Envelope: env}); err != nil {
				log.Warn("websocket write", zap.Error(err))
				return
			}
		}
	}
}

// sendError reports whether the connection is still writable.
func sendError(conn *websocket.Conn, sessionID, message string, log *zap.Logger) bool {
	resp := wsResponse{Type: "error", SessionID: sessionID, Content: message}
	if err := conn.WriteJSON(resp); err != nil {
		log.Warn("websocket write error", zap.Error(err))
		return false
	}
	return true
}
