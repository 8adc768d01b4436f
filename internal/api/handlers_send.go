package api

import (
	"encoding/json"
	"net/http"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api/middleware"
	"github.com/hookboard/hookboard/internal/dispatch"
)

// handleSend is the compose-and-dispatch endpoint.
// POST /api/v1/webhooks/send
func (r *Router) handleSend(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	blocked, err := r.userService.IsBlocked(req.Context(), userID)
	if err != nil {
		r.logger.Error("checking blocked status", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if blocked {
		// Blocked attempts land in the activity log, not the send history:
		// the dispatcher is never invoked, so no audit entry is written.
		r.logActivity(req, userID, activity.ActionSendBlocked, "Send rejected: account blocked")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "account is blocked"})
		return
	}

	var dreq dispatch.Request
	if err := json.NewDecoder(req.Body).Decode(&dreq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := r.dispatcher.Dispatch(req.Context(), userID, dreq)
	if err != nil {
		// Validation failure: nothing was sent and nothing was logged.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	switch result.Outcome {
	case dispatch.OutcomeSuccess:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook sent successfully"})
	case dispatch.OutcomeFailure:
		// Mirror the provider's status so the client sees what Discord said.
		writeJSON(w, result.StatusCode, map[string]string{"error": result.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": result.Message})
	}
}
