package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"svcwatch/internal/storage"
	logx "svcwatch/pkg/logx"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	code := http.StatusOK
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			body["status"] = "degraded"
			body["storage"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if s.deps.Health != nil {
		for k, v := range s.deps.Health() {
			if _, taken := body[k]; !taken {
				body[k] = v
			}
		}
	}
	writeJSON(w, code, body)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Catalog.Overview(r.Context())
	if err != nil {
		s.log.Warn("overview failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Catalog.ListUnits(r.Context())
	if err != nil {
		s.log.Warn("list units failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	writeJSON(w, http.StatusOK, s.deps.Status.Status(r.Context(), name))
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	res := s.deps.Resources.Correlate(r.Context(), name)
	writeJSON(w, http.StatusOK, map[string]any{
		"service": name,
		"cpu":     res.CPUPercent,
		"memory":  res.MemoryPercent,
		"threads": res.Threads,
	})
}

type logsResponse struct {
	Service string   `json:"service"`
	Logs    []string `json:"logs"`
	Error   string   `json:"error,omitempty"`
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	n := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("lines")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "lines must be a non-negative integer")
			return
		}
		n = v
	}
	lines, err := s.deps.Catalog.Logs(r.Context(), name, n)
	if err != nil {
		writeJSON(w, statusFor(err), logsResponse{Service: name, Logs: []string{}, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Service: name, Logs: lines})
}

type actionRequest struct {
	Service string `json:"service"`
	Action  string `json:"action"`
}

func (s *Server) handleActionBody(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runAction(w, r, req.Service, req.Action)
}

func (s *Server) handleActionPath(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	s.runAction(w, r, v["name"], v["action"])
}

func (s *Server) runAction(w http.ResponseWriter, r *http.Request, name, action string) {
	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "too many actions; retry shortly")
		return
	}
	res, err := s.deps.Actions.Execute(r.Context(), name, action)
	if err != nil {
		failed := false
		writeJSON(w, statusFor(err), errorBody{Success: &failed, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListMonitored(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.ListMonitored(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type addMonitoredRequest struct {
	ServiceName  string `json:"service_name"`
	NotifyOnFail *bool  `json:"notify_on_fail,omitempty"`
	// Strict rejects an already registered name with 409 instead of
	// treating it as a no-op.
	Strict bool `json:"strict,omitempty"`
}

func (s *Server) handleAddMonitored(w http.ResponseWriter, r *http.Request) {
	var req addMonitoredRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	notify := req.NotifyOnFail == nil || *req.NotifyOnFail

	if req.Strict {
		id, err := s.deps.Store.AddMonitored(r.Context(), req.ServiceName, notify)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "service_name": strings.TrimSpace(req.ServiceName)})
		return
	}

	created, err := s.deps.Store.AddMonitoredIfAbsent(r.Context(), req.ServiceName, notify)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, map[string]any{"created": created, "service_name": strings.TrimSpace(req.ServiceName)})
}

func (s *Server) handleGetMonitored(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.deps.Store.GetMonitored(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRemoveMonitored(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Store.RemoveMonitored(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, ok, err := s.deps.Store.GetSettings(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "settings not initialized")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var u storage.SettingsUpdate
	if err := decodeBody(w, r, &u); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Store.UpsertSettings(r.Context(), u); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	st, _, err := s.deps.Store.GetSettings(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
