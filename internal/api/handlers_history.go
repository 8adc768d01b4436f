package api

import (
	"net/http"
	"strconv"

	"github.com/hookboard/hookboard/internal/api/middleware"
	"github.com/hookboard/hookboard/internal/audit"
)

// handleHistory returns the caller's send history, newest first.
// GET /api/v1/webhooks/history?limit=&offset=&status=&search=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	q := req.URL.Query()
	params := audit.ListParams{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Offset = n
		}
	}

	entries, err := r.auditService.ListByUser(req.Context(), userID, params)
	if err != nil {
		r.logger.Error("listing send history", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": entries})
}
