package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/position"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePlace runs the pure placement computation.
func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req schemas.PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Width < 0 || req.Height < 0 || req.Host.Width < 0 || req.Host.Height < 0 {
		jsonError(w, "sizes must not be negative", http.StatusBadRequest)
		return
	}
	if req.Placement == "" {
		req.Placement = s.cfg.Position().DefaultPlacement
	}

	writeJSON(w, http.StatusOK, schemas.PlaceResponse{
		Spec:   position.ParsePlacement(req.Placement),
		Offset: position.Place(req.Host, req.Width, req.Height, req.Placement),
	})
}

// handleEvaluate resolves every placement listed in a posted snapshot.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var snap schemas.LayoutSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		jsonError(w, "invalid snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(snap.Placements) == 0 {
		jsonError(w, "snapshot lists no placements", http.StatusBadRequest)
		return
	}

	results, err := s.engine.EvaluateSnapshot(r.Context(), &snap)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if r.Context().Err() != nil {
			status = http.StatusServiceUnavailable
		}
		if !errors.Is(err, position.ErrUnknownElement) {
			s.logger.Warn("Snapshot evaluation failed", zap.Error(err))
		}
		jsonError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, schemas.EvaluateResponse{URL: snap.URL, Results: results})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
