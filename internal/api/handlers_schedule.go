package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api/middleware"
	"github.com/hookboard/hookboard/internal/schedule"
	"github.com/hookboard/hookboard/internal/sendconfig"
)

func (r *Router) handleListSchedules(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	schedules, err := r.scheduleService.ListByUser(req.Context(), userID)
	if err != nil {
		r.logger.Error("listing schedules", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if schedules == nil {
		schedules = []schedule.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (r *Router) handleCreateSchedule(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	var body struct {
		Name       string          `json:"name"`
		WebhookURL string          `json:"webhook_url"`
		Body       sendconfig.Body `json:"body"`
		NextRun    time.Time       `json:"next_run"`
		RepeatType string          `json:"repeat_type"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sc := &schedule.Schedule{
		UserID:     userID,
		Name:       body.Name,
		WebhookURL: body.WebhookURL,
		Body:       body.Body,
		NextRun:    body.NextRun,
		RepeatType: body.RepeatType,
	}
	if err := r.scheduleService.Create(req.Context(), sc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	r.logActivity(req, userID, activity.ActionScheduled, "Scheduled webhook "+sc.Name)
	writeJSON(w, http.StatusCreated, sc)
}

func (r *Router) handleDeleteSchedule(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	if err := r.scheduleService.Delete(req.Context(), userID, req.PathValue("id")); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "schedule not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) handlePauseSchedule(w http.ResponseWriter, req *http.Request) {
	r.setSchedulePaused(w, req, true)
}

func (r *Router) handleResumeSchedule(w http.ResponseWriter, req *http.Request) {
	r.setSchedulePaused(w, req, false)
}

func (r *Router) setSchedulePaused(w http.ResponseWriter, req *http.Request, paused bool) {
	userID := middleware.UserIDFromContext(req.Context())

	err := r.scheduleService.SetPaused(req.Context(), userID, req.PathValue("id"), paused)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "schedule not found"})
			return
		}
		r.logger.Error("updating schedule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	status := schedule.StatusPending
	if paused {
		status = schedule.StatusPaused
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
