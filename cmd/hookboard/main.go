package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hookboard/hookboard/internal/activity"
	"github.com/hookboard/hookboard/internal/api"
	"github.com/hookboard/hookboard/internal/audit"
	"github.com/hookboard/hookboard/internal/auth"
	"github.com/hookboard/hookboard/internal/config"
	"github.com/hookboard/hookboard/internal/database"
	"github.com/hookboard/hookboard/internal/dispatch"
	"github.com/hookboard/hookboard/internal/encryption"
	"github.com/hookboard/hookboard/internal/logging"
	"github.com/hookboard/hookboard/internal/maintenance"
	"github.com/hookboard/hookboard/internal/metrics"
	"github.com/hookboard/hookboard/internal/schedule"
	"github.com/hookboard/hookboard/internal/sendconfig"
	"github.com/hookboard/hookboard/internal/user"
	"github.com/hookboard/hookboard/internal/version"
)

func main() {
	// Handle subcommands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "reset-credentials":
			if err := resetCredentials(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := configPathFromEnv()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.New(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	encKey, err := resolveEncryptionKey(cfg, logger)
	if err != nil {
		return fmt.Errorf("resolving encryption key: %w", err)
	}
	encryptor, _, err := encryption.New(encKey)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	// Services
	authService := auth.NewService(db)
	userService := user.NewService(db, cfg.Auth.SuperAdminDiscordID)
	auditService := audit.NewService(db)
	configService := sendconfig.NewService(db, encryptor)
	scheduleService := schedule.NewService(db, encryptor)
	activityService := activity.NewService(db)
	appMetrics := metrics.New()

	dispatcher := dispatch.NewDispatcher(auditService, appMetrics, logger)

	discordAuth := auth.NewDiscordAuth(db, cfg.Discord.ClientID, cfg.Discord.ClientSecret, cfg.Discord.RedirectURL)
	if discordAuth == nil {
		logger.Info("discord oauth login disabled")
	}

	logger.Info("starting hookboard",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	router := api.NewRouter(api.RouterDeps{
		AuthService:     authService,
		DiscordAuth:     discordAuth,
		UserService:     userService,
		Dispatcher:      dispatcher,
		AuditService:    auditService,
		ConfigService:   configService,
		ScheduleService: scheduleService,
		ActivityService: activityService,
		Metrics:         appMetrics,
		Logger:          logger,
		BasePath:        cfg.Server.BasePath,
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the scheduled-send runner
	if cfg.Scheduler.Enabled {
		runner := schedule.NewRunner(scheduleService, dispatcher, userService, logger)
		interval := time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second
		go runner.Start(ctx, interval)
	}

	// Daily retention and SQLite housekeeping
	maintSvc := maintenance.NewService(db, maintenance.Policy{
		HistoryDays:  cfg.Retention.HistoryDays,
		ActivityDays: cfg.Retention.ActivityDays,
	}, logger)
	go maintSvc.StartScheduler(ctx, 24*time.Hour)

	// Session cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := authService.CleanExpiredSessions(ctx); err != nil {
					logger.Error("session cleanup failed", "error", err)
				}
			}
		}
	}()

	// Reload the log level when the config file changes
	if configPath != "" {
		go config.Watch(ctx, configPath, logger, func(updated *config.Config) {
			logManager.SetLevel(updated.Logging.Level)
			logger.Info("log level updated", slog.String("level", updated.Logging.Level))
		})
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func configPathFromEnv() string {
	if p := os.Getenv("HB_CONFIG_PATH"); p != "" {
		return p
	}
	return "/data/config.yaml"
}

// resolveEncryptionKey determines the key protecting stored webhook URLs.
// Priority: config/env > key file next to the database > generate new.
func resolveEncryptionKey(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.Encryption.Key != "" {
		return cfg.Encryption.Key, nil
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	keyFile := filepath.Join(dataDir, "encryption.key")

	data, err := os.ReadFile(keyFile) //nolint:gosec // G304: path derived from trusted config
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			logger.Debug("loaded encryption key from file", slog.String("path", keyFile))
			return key, nil
		}
	}

	_, key, err := encryption.New("")
	if err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		logger.Warn("could not create data directory for encryption key",
			slog.String("path", dataDir), slog.Any("error", err))
		return key, nil
	}

	if err := os.WriteFile(keyFile, []byte(key+"\n"), 0o600); err != nil {
		logger.Warn("could not save encryption key to file",
			slog.String("path", keyFile), slog.Any("error", err))
	} else {
		logger.Warn("generated new encryption key -- back up this file",
			slog.String("path", keyFile))
	}

	return key, nil
}

// resetCredentials sets a new password for an existing account from the
// terminal. This is an offline recovery path for a locked-out admin.
func resetCredentials() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: hookboard reset-credentials <username>")
	}
	username := os.Args[2]

	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	fmt.Printf("New password for %s: ", username)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	authService := auth.NewService(db)
	if err := authService.ResetPassword(context.Background(), username, string(password)); err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}

	fmt.Println("Password updated. Existing sessions for this account were revoked.")
	return nil
}
