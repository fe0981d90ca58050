package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/rfpagent/internal/store"
)

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := rfpIDParam(r)
	if err != nil {
		jsonError(w, "invalid rfp id", http.StatusBadRequest)
		return
	}
	s.writeThread(w, r, id)
}

type messageRequest struct {
	ID      *flexInt `json:"id"`
	Content string   `json:"content"`
}

// handleAddMessage appends a message under role and returns the thread.
func (s *Server) handleAddMessage(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.ID == nil {
			jsonError(w, "id is required", http.StatusBadRequest)
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" {
			jsonError(w, "Message content is required.", http.StatusBadRequest)
			return
		}

		id := int64(*req.ID)
		_, err := s.store.AddMessage(r.Context(), id, role, content)
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "RFP not found.", http.StatusNotFound)
			return
		}
		if err != nil {
			s.log.Error("add message failed", "rfp_id", id, "role", role, "error", err)
			jsonError(w, "failed to send message", http.StatusInternalServerError)
			return
		}
		s.writeThread(w, r, id)
	}
}

func (s *Server) writeThread(w http.ResponseWriter, r *http.Request, id int64) {
	msgs, err := s.store.Messages(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "RFP not found.", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("list messages failed", "rfp_id", id, "error", err)
		jsonError(w, "failed to load messages", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
