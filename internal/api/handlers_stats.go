package api

import "net/http"

func (s *Server) handleResolveStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.latency.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
