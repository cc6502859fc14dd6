package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/labgest/internal/chat"
	"github.com/dgallion1/labgest/internal/compose"
	"github.com/dgallion1/labgest/internal/store"
)

const maxChatBody = 64 << 10

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	msgs, err := s.agent.History(r.Context(), patientID, queryLimit(r, defaultHistoryLimit))
	if err != nil {
		s.log.Error("load transcript failed", "patient_id", patientID, "error", err)
		jsonError(w, "failed to load chat: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&body); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := s.agent.Reply(r.Context(), patientID, body.Message)
	if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMessageTooLong) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Error("chat reply failed", "patient_id", patientID, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleSymptoms triages free-text symptoms. Nothing is stored.
func (s *Server) handleSymptoms(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&body); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, compose.AssessSymptoms(body.Text))
}
