package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/labgest/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

func (s *Server) handleCurrentReport(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot_id": snap.ID,
		"summary":     snap.Summary,
	})
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}
	tips := snap.Tips
	if tips == nil {
		tips = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot_id": snap.ID,
		"tips":        tips,
	})
}

// handleHistory lists a patient's snapshots, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	limit := queryLimit(r, defaultHistoryLimit)

	snaps, err := s.store.ListSnapshots(r.Context(), patientID, limit)
	if err != nil {
		s.log.Error("list snapshots failed", "patient_id", patientID, "error", err)
		jsonError(w, "failed to list reports: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []*store.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": snaps})
}

// handleDeletePatient erases every stored report and message of a patient.
func (s *Server) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if err := s.store.DeletePatient(r.Context(), patientID); err != nil {
		s.log.Error("delete patient failed", "patient_id", patientID, "error", err)
		jsonError(w, "failed to delete patient: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("patient deleted", "patient_id", patientID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) latestSnapshot(w http.ResponseWriter, r *http.Request) (*store.Snapshot, bool) {
	patientID := chi.URLParam(r, "patientID")
	snap, err := s.store.LatestSnapshot(r.Context(), patientID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "no report for patient", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.log.Error("load snapshot failed", "patient_id", patientID, "error", err)
		jsonError(w, "failed to load report: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return snap, true
}

// queryLimit parses ?limit=, clamped to [1, maxHistoryLimit].
func queryLimit(r *http.Request, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return fallback
	}
	return min(n, maxHistoryLimit)
}
