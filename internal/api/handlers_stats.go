package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"available":   s.enhancer.Available(),
		"model":       s.enhancer.Model(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.enhancer.Stats().Snapshot(),
	})
}
