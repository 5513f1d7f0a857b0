package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cyrup-ai/kodegen-tools-config/internal/sysinfo"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// SetValueRequest is the body of PUT /config/{key}.
type SetValueRequest struct {
	Value *types.ConfigValue `json:"value"`
}

// ValueResponse is returned for a single config key.
type ValueResponse struct {
	Key   string            `json:"key"`
	Value types.ConfigValue `json:"value"`
}

// CheckResponse is returned by the access check endpoints.
type CheckResponse struct {
	Allowed bool   `json:"allowed"`
	Command string `json:"command,omitempty"`
	Path    string `json:"path,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	Path           string  `json:"path"`
	Writes         uint64  `json:"writes"`
	WritesPerMin   float64 `json:"writes_per_minute"`
	SaveErrorCount uint64  `json:"save_error_count"`
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	metrics := s.manager.Metrics()
	status := "ok"
	if metrics.Failures() > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         status,
		Version:        sysinfo.Version,
		Path:           s.manager.Path(),
		Writes:         metrics.Writes(),
		WritesPerMin:   metrics.WriteRate(),
		SaveErrorCount: metrics.Failures(),
	})
}

// getConfig handles GET /config.
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Config())
}

// getConfigValue handles GET /config/{key}.
func (s *Server) getConfigValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, ok := s.manager.Value(key)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Unknown config key: "+key)
		return
	}
	writeJSON(w, http.StatusOK, ValueResponse{Key: key, Value: value})
}

// setConfigValue handles PUT /config/{key}.
func (s *Server) setConfigValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "value is required")
		return
	}

	if err := s.manager.SetValue(key, *req.Value); err != nil {
		writeValidationError(w, err)
		return
	}

	value, _ := s.manager.Value(key)
	writeJSON(w, http.StatusOK, ValueResponse{Key: key, Value: value})
}

// getClient handles GET /client.
func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	client := s.manager.ClientInfo()
	if client == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no client connected")
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// setClient handles POST /client.
func (s *Server) setClient(w http.ResponseWriter, r *http.Request) {
	var client types.ClientInfo
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}
	if client.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}

	s.manager.SetClientInfo(client)
	writeSuccess(w)
}

// getClientHistory handles GET /client/history.
func (s *Server) getClientHistory(w http.ResponseWriter, r *http.Request) {
	history := s.manager.ClientHistory()
	type record struct {
		Name        string    `json:"name"`
		Version     string    `json:"version"`
		ConnectedAt time.Time `json:"connected_at"`
		LastSeen    time.Time `json:"last_seen"`
	}
	out := make([]record, 0, len(history))
	for _, h := range history {
		out = append(out, record{
			Name:        h.ClientInfo.Name,
			Version:     h.ClientInfo.Version,
			ConnectedAt: h.ConnectedAt,
			LastSeen:    h.LastSeen,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// checkCommand handles GET /check/command?cmd=.
func (s *Server) checkCommand(w http.ResponseWriter, r *http.Request) {
	cmd := r.URL.Query().Get("cmd")
	if cmd == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "cmd is required")
		return
	}

	blocked, isBlocked := s.manager.CommandBlocked(cmd)
	writeJSON(w, http.StatusOK, CheckResponse{Allowed: !isBlocked, Command: blocked})
}

// checkPath handles GET /check/path?path=.
func (s *Server) checkPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "path is required")
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{Allowed: s.manager.PathAllowed(path), Path: path})
}
