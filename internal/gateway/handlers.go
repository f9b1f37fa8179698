package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/soyeahso/parley/internal/chat"
)

// userHeader carries the caller's identity. Authentication beyond this
// is out of scope; the header is trusted as-is.
const userHeader = "X-User-ID"

type errorResponse struct {
	Error string `json:"error"`
	// UserMessageSaved is set on generation failures so clients know the
	// input was recorded even though no reply was produced.
	UserMessageSaved bool `json:"userMessageSaved,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the chat error taxonomy to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, chat.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	case errors.Is(err, chat.ErrSessionUnavailable):
		// Deliberately indistinguishable from "not found": the message
		// paths must not leak session existence to non-owners.
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session unavailable"})
	case errors.Is(err, chat.ErrGenerationFailed):
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:            "reply generation failed",
			UserMessageSaved: true,
		})
	case errors.Is(err, chat.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// callerID extracts the user identity, writing a 401 when absent.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userHeader)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + userHeader + " header"})
		return "", false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	sess, err := s.svc.CreateSession(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	sessions, err := s.svc.ListUserSessions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := s.svc.DeleteSession(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "content is required"})
		return
	}

	msg, err := s.svc.SendMessage(r.Context(), r.PathValue("id"), userID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)

	msgs, err := s.svc.GetSessionMessages(r.Context(), r.PathValue("id"), userID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
