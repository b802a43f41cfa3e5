package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/processors"
)

// taskResponse is the accepted-submission shape: the task id doubles as
// the tracking handle for the whole pipeline run.
type taskResponse struct {
	TaskID     string `json:"task_id"`
	TrackingID string `json:"tracking_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		TaskID:     task.ID,
		TrackingID: task.TrackingID,
		Kind:       string(task.Kind),
		Status:     string(task.Status),
	}
}

// writeIntakeError maps intake failures onto HTTP: duplicates conflict,
// prefilter rejections are unprocessable, everything else is a 500.
func (s *Server) writeIntakeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, processors.ErrDuplicate):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, processors.ErrFiltered):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		var werr *models.WorkerError
		if errors.As(err, &werr) && werr.Kind == models.ErrPermanentSource {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.deps.Logger.Error().Err(err).Msg("Intake request failed")
		WriteError(w, http.StatusInternalServerError, "intake failed")
	}
}

// submitJobHandler accepts one job posting as JSON and queues it
func (s *Server) submitJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var job models.NormalizedJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid job payload: "+err.Error())
		return
	}

	task, err := s.deps.Intake.SubmitJob(r.Context(), &job)
	if err != nil {
		s.writeIntakeError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, newTaskResponse(task))
}

// submitLegacyHandler replays a previously scraped payload: the raw job
// rides in the task so the pipeline skips the fetch step.
func (s *Server) submitLegacyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var job models.NormalizedJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid job payload: "+err.Error())
		return
	}

	task, err := s.deps.Intake.SubmitLegacy(r.Context(), &job)
	if err != nil {
		s.writeIntakeError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, newTaskResponse(task))
}

// submitCompanyHandler queues a company enrichment task
func (s *Server) submitCompanyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Name string `json:"name"`
		URL  string `json:"url,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid company payload: "+err.Error())
		return
	}

	task, err := s.deps.Intake.SubmitCompany(r.Context(), req.Name, req.URL)
	if err != nil {
		s.writeIntakeError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, newTaskResponse(task))
}

// submitScrapeHandler queues a scrape of one posting URL
func (s *Server) submitScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid scrape payload: "+err.Error())
		return
	}

	task, err := s.deps.Intake.SubmitScrape(r.Context(), req.URL)
	if err != nil {
		s.writeIntakeError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, newTaskResponse(task))
}

// listMatchesHandler returns saved matches, newest first
func (s *Server) listMatchesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	matches, err := s.deps.Store.MatchStorage().ListMatches(r.Context(), limit)
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("Match listing failed")
		WriteError(w, http.StatusInternalServerError, "match listing failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(matches),
		"matches": matches,
	})
}

// healthHandler reports worker pool liveness
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	health := s.deps.Pool.Health()
	status := http.StatusOK
	label := "healthy"
	if !health.Running {
		status = http.StatusServiceUnavailable
		label = "unhealthy"
	}
	WriteJSON(w, status, map[string]interface{}{
		"status":          label,
		"running":         health.Running,
		"items_processed": health.ItemsProcessed,
		"last_poll":       health.LastPoll,
		"iteration":       health.Iteration,
		"last_error":      health.LastError,
	})
}

// statusHandler reports queue depth by status plus uptime
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	counts, err := s.deps.Store.TaskStorage().CountByStatus(r.Context())
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("Task count query failed")
		WriteError(w, http.StatusInternalServerError, "status query failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"uptime":  time.Since(s.deps.Started).Round(time.Second).String(),
		"worker":  s.deps.Pool.Health(),
		"queue":   counts,
	})
}

// versionHandler returns version information
func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}
