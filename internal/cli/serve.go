package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rayhan/aska/internal/config"
	"github.com/rayhan/aska/internal/logger"
	"github.com/rayhan/aska/internal/observability"
	"github.com/rayhan/aska/pkg/auth"
	"github.com/rayhan/aska/pkg/chat"
	"github.com/rayhan/aska/pkg/events"
	"github.com/rayhan/aska/pkg/httpapi"
	"github.com/rayhan/aska/pkg/llm"
	"github.com/rayhan/aska/pkg/persona"
	"github.com/rayhan/aska/pkg/prompt"
	"github.com/rayhan/aska/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Aska HTTP service",
	Long: `Start the Aska HTTP service in the foreground.
The service answers questions via the configured AI provider and keeps
per-session conversation history until stopped with SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	validator := config.NewValidator()
	if errs := validator.ValidateConfig(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", e)
		}
		return fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	zl := log.GetZerolog()

	observability.EnsureRegistered()
	if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
		zl.Warn().Err(err).Msg("Audit logging disabled")
	}

	// Personas: builtins plus optional custom definitions, reloaded on
	// file changes.
	catalog := persona.NewCatalog()
	var watcher *persona.Watcher
	if cfg.PersonasDir != "" {
		if err := catalog.LoadDir(cfg.PersonasDir); err != nil {
			zl.Warn().Err(err).Str("dir", cfg.PersonasDir).Msg("Failed to load custom personas")
		}
		watcher, err = persona.NewWatcher(catalog, zl)
		if err != nil {
			zl.Warn().Err(err).Msg("Persona watcher unavailable")
		} else if err := watcher.Watch(cfg.PersonasDir); err != nil {
			zl.Warn().Err(err).Msg("Failed to watch personas directory")
		}
	}

	// Session store with the configured persistence backend.
	store := session.NewStore()
	var persister session.Persister
	switch cfg.Persistence.Backend {
	case "sqlite":
		sqlitePersister, err := session.NewSQLitePersister(cfg.Persistence.SessionsPath)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		defer sqlitePersister.Close()
		persister = sqlitePersister
	default:
		persister = session.NewFilePersister(cfg.Persistence.SessionsPath)
	}

	if snapshot, err := persister.Load(); err != nil {
		zl.Warn().Err(err).Msg("Failed to load persisted sessions, starting empty")
	} else if len(snapshot) > 0 {
		store.Restore(snapshot)
		zl.Info().Int("sessions", len(snapshot)).Msg("Restored persisted sessions")
	}

	saver := session.NewSaver(store, persister, zl)
	if cfg.Persistence.AutoSave != "" {
		if err := saver.StartAutoSave(cfg.Persistence.AutoSave); err != nil {
			zl.Warn().Err(err).Str("spec", cfg.Persistence.AutoSave).Msg("Auto-save disabled")
		}
	}
	defer saver.Stop()

	// User store, restored from disk if present.
	users := auth.NewStore()
	if err := users.LoadFile(cfg.Persistence.UsersPath); err != nil {
		zl.Warn().Err(err).Msg("Failed to load user records, starting empty")
	}

	provider, err := llm.NewProvider(llm.Settings{
		Provider:   cfg.AI.Provider,
		APIKey:     cfg.AI.APIKey,
		Endpoint:   cfg.AI.Endpoint,
		APIVersion: cfg.AI.APIVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}

	hub := events.NewHub(zl)

	service := chat.NewService(store, users, prompt.NewComposer(catalog), provider, saver, hub, zl, chat.Options{
		Model:       cfg.AI.Deployment,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     time.Duration(cfg.AI.Timeout) * time.Second,
	})

	server, err := httpapi.NewServer(httpapi.ServerOptions{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		UsersPath:          cfg.Persistence.UsersPath,
	}, service, users, catalog, saver, hub, zl)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			zl.Warn().Err(err).Msg("Failed to stop persona watcher")
		}
	}

	if err := server.Stop(); err != nil {
		zl.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	return nil
}
