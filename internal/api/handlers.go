package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api/middleware"
	"github.com/hookboard/hookboard/internal/user"
	"github.com/hookboard/hookboard/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSetup creates the initial admin account. Once any account exists
// it becomes a no-op that reports conflict.
func (r *Router) handleSetup(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Username == "" || len(body.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and a password of at least 8 characters are required"})
		return
	}

	created, err := r.authService.Setup(req.Context(), body.Username, body.Password)
	if err != nil {
		r.logger.Error("initial setup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !created {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "setup already completed"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, err := r.authService.Login(req.Context(), body.Username, body.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	if u, lookupErr := r.userService.GetByUsername(req.Context(), body.Username); lookupErr == nil {
		r.logActivity(req, u.ID, activity.ActionLogin, "Logged in with password")
		_ = r.userService.TouchLastLogin(req.Context(), u.ID)
	}

	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if cookie, err := req.Cookie("session"); err == nil {
		if logoutErr := r.authService.Logout(req.Context(), cookie.Value); logoutErr != nil {
			r.logger.Warn("failed to delete session", "error", logoutErr)
		}
	}
	r.logActivity(req, middleware.UserIDFromContext(req.Context()), activity.ActionLogout, "Logged out")

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())
	u, err := r.userService.GetByID(req.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		r.logger.Error("loading current user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// logActivity records a user action; failures are logged, never surfaced.
func (r *Router) logActivity(req *http.Request, userID, action, description string) {
	if userID == "" {
		return
	}
	err := r.activityService.Log(req.Context(), activity.Record{
		UserID:      userID,
		Action:      action,
		Description: description,
		IPAddress:   req.RemoteAddr,
		UserAgent:   req.UserAgent(),
	})
	if err != nil {
		r.logger.Warn("recording activity", "action", action, "error", err)
	}
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   true,
		MaxAge:   86400,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
