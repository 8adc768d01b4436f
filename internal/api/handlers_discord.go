package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/hookboard/hookboard/internal/activity"
)

const stateCookie = "oauth_state"

func (r *Router) handleDiscordBegin(w http.ResponseWriter, req *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		r.logger.Error("generating oauth state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	state := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
		MaxAge:   600,
	})
	http.Redirect(w, req, r.discordAuth.AuthURL(state), http.StatusFound)
}

func (r *Router) handleDiscordCallback(w http.ResponseWriter, req *http.Request) {
	cookie, err := req.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != req.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid oauth state"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	code := req.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing authorization code"})
		return
	}

	profile, err := r.discordAuth.Exchange(req.Context(), code)
	if err != nil {
		r.logger.Warn("discord code exchange failed", "error", err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "discord login failed"})
		return
	}

	userID, err := r.discordAuth.UpsertUser(req.Context(), profile)
	if err != nil {
		r.logger.Error("linking discord account", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	blocked, err := r.userService.IsBlocked(req.Context(), userID)
	if err != nil {
		r.logger.Error("checking blocked flag", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if blocked {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "account is blocked"})
		return
	}

	token, err := r.authService.CreateSession(req.Context(), userID)
	if err != nil {
		r.logger.Error("creating session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	r.logActivity(req, userID, activity.ActionLogin, "Logged in with Discord")
	setSessionCookie(w, token)
	http.Redirect(w, req, r.basePath+"/", http.StatusFound)
}
