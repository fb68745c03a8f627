package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"luster/internal/jobs"
	"luster/internal/logging"
)

type daemonStatus struct {
	Running             bool               `json:"running"`
	PID                 int                `json:"pid"`
	JobDBPath           string             `json:"job_db_path"`
	ActiveSubscriptions int                `json:"active_subscriptions"`
	Jobs                jobs.HealthSummary `json:"jobs"`
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	health, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, daemonStatus{
		Running:             true,
		PID:                 os.Getpid(),
		JobDBPath:           s.store.Path(),
		ActiveSubscriptions: s.hub.ActiveCount(),
		Jobs:                health,
	})
}

type jobListResponse struct {
	Jobs []*jobs.Job `json:"jobs"`
}

func (s *Server) handleAPIJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		parsed, ok := jobs.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+strings.TrimSpace(value))
			return
		}
		statuses = append(statuses, parsed)
	}

	list, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: list})
}

func (s *Server) handleAPIJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	job, err := s.store.GetByID(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

type loginRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleLogin exchanges the configured API token for a bearer credential.
// Identity issuance lives outside this service; the endpoint exists so
// clients have a stable login surface when a token is configured.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	configured := strings.TrimSpace(s.cfg.Paths.APIToken)
	if configured == "" {
		s.writeJSON(w, http.StatusOK, loginResponse{AccessToken: "", TokenType: "bearer"})
		return
	}
	if req.Token != configured {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse{AccessToken: configured, TokenType: "bearer"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
