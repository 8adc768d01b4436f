package api

import (
	"net/http"
	"strconv"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api/middleware"
)

func (r *Router) handleActivity(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	records, err := r.activityService.ListByUser(req.Context(), userID, limit)
	if err != nil {
		r.logger.Error("listing activity", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if records == nil {
		records = []activity.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": records})
}
