package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api/middleware"
	"github.com/hookboard/hookboard/internal/user"
)

func (r *Router) handleAdminListUsers(w http.ResponseWriter, req *http.Request) {
	users, err := r.userService.List(req.Context())
	if err != nil {
		r.logger.Error("listing users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleAdminUpdateUser changes a user's role and blocked flag. The super
// admin account rejects both changes.
func (r *Router) handleAdminUpdateUser(w http.ResponseWriter, req *http.Request) {
	targetID := req.PathValue("id")

	var body struct {
		Role      *string `json:"role"`
		IsBlocked *bool   `json:"is_blocked"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Role == nil && body.IsBlocked == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nothing to update"})
		return
	}

	if body.Role != nil {
		if *body.Role != user.RoleUser && *body.Role != user.RoleAdmin {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
			return
		}
		if err := r.userService.SetRole(req.Context(), targetID, *body.Role); err != nil {
			r.writeUserUpdateError(w, err)
			return
		}
	}
	if body.IsBlocked != nil {
		if err := r.userService.SetBlocked(req.Context(), targetID, *body.IsBlocked); err != nil {
			r.writeUserUpdateError(w, err)
			return
		}
	}

	adminID := middleware.UserIDFromContext(req.Context())
	r.logActivity(req, adminID, activity.ActionUserUpdated, "Updated user "+targetID)

	updated, err := r.userService.GetByID(req.Context(), targetID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) writeUserUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrProtected):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "This user's status cannot be modified"})
	case errors.Is(err, user.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	default:
		r.logger.Error("updating user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (r *Router) handleAdminStats(w http.ResponseWriter, req *http.Request) {
	days := 0
	if v := req.URL.Query().Get("days"); v != "" {
		days, _ = strconv.Atoi(v)
	}

	stats, err := r.auditService.GlobalStats(req.Context(), days)
	if err != nil {
		r.logger.Error("computing stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	userCount, err := r.userService.Count(req.Context())
	if err != nil {
		r.logger.Error("counting users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_users": userCount,
		"sends":       stats,
	})
}
