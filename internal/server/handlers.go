package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"luster/internal/artifacts"
	"luster/internal/logging"
)

const maxUploadMemory = 32 << 20

type submitResult struct {
	Filename string `json:"filename"`
	JobID    string `json:"job_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleSubmit accepts one or more images under the multipart field
// "images". Files are processed independently; a failure on one does not
// reject its siblings, and results come back in submission order.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse multipart form: %v", err))
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		s.writeError(w, http.StatusBadRequest, "no images uploaded")
		return
	}

	results := make([]submitResult, 0, len(files))
	for _, header := range files {
		entry := submitResult{Filename: header.Filename}

		file, err := header.Open()
		if err != nil {
			entry.Error = fmt.Sprintf("open upload: %v", err)
			results = append(results, entry)
			continue
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			entry.Error = fmt.Sprintf("read upload: %v", err)
			results = append(results, entry)
			continue
		}

		job, err := s.dispatcher.Submit(r.Context(), data, header.Filename)
		if err != nil {
			entry.Error = err.Error()
			results = append(results, entry)
			continue
		}

		s.metrics.jobsSubmitted.Inc()
		entry.JobID = job.ID
		entry.Status = string(job.Status)
		entry.Message = "image received, enhancement started"
		if job.ErrorMessage != "" {
			entry.Message = job.ErrorMessage
		}
		results = append(results, entry)
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleStatus reports the coarse processing/done state derived purely from
// artifact presence in the results directory.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	_, err := s.locator.Locate(jobID)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
	case errors.Is(err, artifacts.ErrNotFound):
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "processing"})
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleResult serves the first matching artifact's bytes.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	artifact, err := s.locator.ResolveSingle(jobID)
	switch {
	case errors.Is(err, artifacts.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "result not ready")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.artifactBytes.Add(float64(len(artifact.Data)))
	w.Header().Set("Content-Type", artifact.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

type resultVariant struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// handleResultAll returns every artifact variant for the job base64 encoded.
func (s *Server) handleResultAll(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	found, err := s.locator.ResolveAll(jobID)
	switch {
	case errors.Is(err, artifacts.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "result not ready")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	variants := make([]resultVariant, 0, len(found))
	for _, artifact := range found {
		s.metrics.artifactBytes.Add(float64(len(artifact.Data)))
		variants = append(variants, resultVariant{
			Filename:    filepath.Base(artifact.Path),
			ContentType: artifact.ContentType,
			Data:        base64.StdEncoding.EncodeToString(artifact.Data),
		})
	}
	s.writeJSON(w, http.StatusOK, variants)
}

// handleEvents streams status updates over SSE. Each connection gets its own
// monitoring subscription, torn down the moment the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	connectionID := uuid.NewString()
	sub := s.hub.Subscribe(connectionID, jobID)
	defer s.hub.Unsubscribe(connectionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.writeSSE(w, "connection_response", map[string]string{
		"connection_id": connectionID,
		"job_id":        jobID,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			s.writeSSE(w, "status_update", evt)
			flusher.Flush()
			if evt.Terminal {
				return
			}
		}
	}
}

func (s *Server) writeSSE(w io.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode event", logging.Error(err))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
