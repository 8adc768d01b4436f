package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api/middleware"
	"github.com/hookboard/hookboard/internal/sendconfig"
)

func (r *Router) handleListConfigs(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	configs, err := r.configService.ListByUser(req.Context(), userID)
	if err != nil {
		r.logger.Error("listing configs", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if configs == nil {
		configs = []sendconfig.Config{}
	}
	writeJSON(w, http.StatusOK, configs)
}

func (r *Router) handleGetConfig(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	c, err := r.configService.GetByID(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "config not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (r *Router) handleCreateConfig(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	var body struct {
		Name       string          `json:"name"`
		WebhookURL string          `json:"webhook_url"`
		Body       sendconfig.Body `json:"body"`
		IsFavorite bool            `json:"is_favorite"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c := &sendconfig.Config{
		UserID:     userID,
		Name:       body.Name,
		WebhookURL: body.WebhookURL,
		Body:       body.Body,
		IsFavorite: body.IsFavorite,
	}
	if err := r.configService.Create(req.Context(), c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	r.logActivity(req, userID, activity.ActionConfigSaved, "Saved webhook config "+c.Name)
	writeJSON(w, http.StatusCreated, c)
}

func (r *Router) handleUpdateConfig(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	existing, err := r.configService.GetByID(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "config not found"})
		return
	}

	var body struct {
		Name       string           `json:"name"`
		WebhookURL string           `json:"webhook_url"`
		Body       *sendconfig.Body `json:"body"`
		IsFavorite *bool            `json:"is_favorite"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if body.Name != "" {
		existing.Name = body.Name
	}
	if body.WebhookURL != "" {
		existing.WebhookURL = body.WebhookURL
	}
	if body.Body != nil {
		existing.Body = *body.Body
	}
	if body.IsFavorite != nil {
		existing.IsFavorite = *body.IsFavorite
	}

	if err := r.configService.Update(req.Context(), existing); err != nil {
		if errors.Is(err, sendconfig.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "config not found"})
			return
		}
		r.logger.Error("updating config", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (r *Router) handleDeleteConfig(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	if err := r.configService.Delete(req.Context(), userID, req.PathValue("id")); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "config not found"})
		return
	}
	r.logActivity(req, userID, activity.ActionConfigRemove, "Deleted webhook config")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
