package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/parley/internal/chat"
)

// wsRequest is one client frame on the chat socket.
type wsRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"` // "chat.send" | "session.list"
	Params json.RawMessage `json:"params,omitempty"`
}

// wsResponse answers a request frame by id.
type wsResponse struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

type wsChatSendParams struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

// handleWebSocket serves an interactive chat connection. The caller's
// identity is fixed at upgrade time from the X-User-ID header; each
// frame then maps to a chat.Service call, mirroring the REST endpoints.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + userHeader + " header"})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.log.Info().Str("user", userID).Msg("websocket client connected")

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn().Err(err).Str("user", userID).Msg("websocket read failed")
			}
			return
		}

		resp := s.dispatchWS(r, userID, req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn().Err(err).Str("user", userID).Msg("websocket write failed")
			return
		}
	}
}

func (s *Server) dispatchWS(r *http.Request, userID string, req wsRequest) wsResponse {
	switch req.Method {
	case "chat.send":
		var p wsChatSendParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.SessionID == "" || p.Content == "" {
			return wsResponse{ID: req.ID, Error: "sessionId and content are required"}
		}
		msg, err := s.svc.SendMessage(r.Context(), p.SessionID, userID, p.Content)
		if err != nil {
			return wsResponse{ID: req.ID, Error: wsErrorString(err)}
		}
		return wsResponse{ID: req.ID, OK: true, Payload: msg}

	case "session.list":
		sessions, err := s.svc.ListUserSessions(r.Context(), userID)
		if err != nil {
			return wsResponse{ID: req.ID, Error: wsErrorString(err)}
		}
		return wsResponse{ID: req.ID, OK: true, Payload: sessions}

	default:
		return wsResponse{ID: req.ID, Error: "unknown method: " + req.Method}
	}
}

func wsErrorString(err error) string {
	switch {
	case errors.Is(err, chat.ErrSessionUnavailable):
		return "session unavailable"
	case errors.Is(err, chat.ErrGenerationFailed):
		return "reply generation failed (message saved)"
	case errors.Is(err, chat.ErrStoreUnavailable):
		return "storage unavailable"
	default:
		return "internal error"
	}
}
