package answer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/surajshivkumar/ConvoLens/internal/apperr"
)

// IdempotencyHeader carries an optional scheduling idempotency key.
const IdempotencyHeader = "Idempotency-Key"

type chatRequest struct {
	Question            string           `json:"question"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`
	IdempotencyKey      string           `json:"idempotency_key"`
}

// RegisterRoutes mounts the chat endpoints.
func RegisterRoutes(r chi.Router, router *Router) {
	r.Post("/api/chat", handleChat(router))
	r.Get("/ws/chat", handleWebSocket(router))
}

func handleChat(router *Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.ClientInput("invalid request body"))
			return
		}

		key := r.Header.Get(IdempotencyHeader)
		if key == "" {
			key = req.IdempotencyKey
		}

		env, err := router.Handle(r.Context(), Question{
			Text:           req.Question,
			History:        ToMessages(req.ConversationHistory),
			IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, env)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{"detail": apperr.Detail(err)})
}
