// Package api wires the HTTP surface: routing, handlers, and middleware.
package api

import (
	"log/slog"
	"net/http"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api/middleware"
	"github.com/hookboard/hookboard/internal/audit"
	"github.com/hookboard/hookboard/internal/auth"
	"github.com/hookboard/hookboard/internal/dispatch"
	"github.com/hookboard/hookboard/internal/metrics"
	"github.com/hookboard/hookboard/internal/schedule"
	"github.com/hookboard/hookboard/internal/sendconfig"
	"github.com/hookboard/hookboard/internal/user"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	AuthService     *auth.Service
	DiscordAuth     *auth.DiscordAuth
	UserService     *user.Service
	Dispatcher      *dispatch.Dispatcher
	AuditService    *audit.Service
	ConfigService   *sendconfig.Service
	ScheduleService *schedule.Service
	ActivityService *activity.Service
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	BasePath        string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	authService     *auth.Service
	discordAuth     *auth.DiscordAuth
	userService     *user.Service
	dispatcher      *dispatch.Dispatcher
	auditService    *audit.Service
	configService   *sendconfig.Service
	scheduleService *schedule.Service
	activityService *activity.Service
	metrics         *metrics.Metrics
	logger          *slog.Logger
	basePath        string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		authService:     deps.AuthService,
		discordAuth:     deps.DiscordAuth,
		userService:     deps.UserService,
		dispatcher:      deps.Dispatcher,
		auditService:    deps.AuditService,
		configService:   deps.ConfigService,
		scheduleService: deps.ScheduleService,
		activityService: deps.ActivityService,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		basePath:        deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	authMw := middleware.Auth(r.authService)
	adminMw := middleware.RequireAdmin(r.userService)
	loginLimiter := middleware.NewLoginRateLimiter()

	mux := http.NewServeMux()
	bp := r.basePath

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.Handle("POST "+bp+"/api/v1/auth/setup", loginLimiter.Middleware(http.HandlerFunc(r.handleSetup)))
	mux.Handle("POST "+bp+"/api/v1/auth/login", loginLimiter.Middleware(http.HandlerFunc(r.handleLogin)))
	if r.discordAuth != nil {
		mux.Handle("GET "+bp+"/api/v1/auth/discord", loginLimiter.Middleware(http.HandlerFunc(r.handleDiscordBegin)))
		mux.Handle("GET "+bp+"/api/v1/auth/discord/callback", loginLimiter.Middleware(http.HandlerFunc(r.handleDiscordCallback)))
	}
	if r.metrics != nil {
		mux.Handle("GET "+bp+"/metrics", r.metrics.Handler())
	}

	// Protected routes (auth required)
	mux.HandleFunc("POST "+bp+"/api/v1/auth/logout", wrapAuth(r.handleLogout, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/auth/me", wrapAuth(r.handleMe, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/webhooks/send", wrapAuth(r.handleSend, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/webhooks/history", wrapAuth(r.handleHistory, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/configs", wrapAuth(r.handleListConfigs, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/configs", wrapAuth(r.handleCreateConfig, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/configs/{id}", wrapAuth(r.handleGetConfig, authMw))
	mux.HandleFunc("PUT "+bp+"/api/v1/configs/{id}", wrapAuth(r.handleUpdateConfig, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/configs/{id}", wrapAuth(r.handleDeleteConfig, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/schedules", wrapAuth(r.handleListSchedules, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/schedules", wrapAuth(r.handleCreateSchedule, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/schedules/{id}", wrapAuth(r.handleDeleteSchedule, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/schedules/{id}/pause", wrapAuth(r.handlePauseSchedule, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/schedules/{id}/resume", wrapAuth(r.handleResumeSchedule, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/activity", wrapAuth(r.handleActivity, authMw))

	// Admin routes
	mux.Handle("GET "+bp+"/api/v1/admin/users", authMw(adminMw(http.HandlerFunc(r.handleAdminListUsers))))
	mux.Handle("PUT "+bp+"/api/v1/admin/users/{id}", authMw(adminMw(http.HandlerFunc(r.handleAdminUpdateUser))))
	mux.Handle("GET "+bp+"/api/v1/admin/stats", authMw(adminMw(http.HandlerFunc(r.handleAdminStats))))

	var handler http.Handler = mux
	handler = middleware.SecurityHeaders(handler)
	return middleware.Logging(r.logger)(handler)
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authMw(fn).ServeHTTP(w, r)
	}
}
