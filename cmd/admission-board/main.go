package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/app"
	"github.com/klabast/wb-services/admission-board/internal/commands"
	"github.com/klabast/wb-services/admission-board/internal/storage"
)

func main() {
	os.Exit(runMain(os.Args[1:]))
}

// runMain returns the exit code instead of exiting so deferred cleanup runs
func runMain(args []string) int {
	// Check for subcommands
	if len(args) > 0 {
		switch args[0] {
		case "hash-password":
			commands.HashPassword(args[1:])
			return 0
		case "import":
			commands.Import(args[1:])
			return 0
		}
	}

	fs := flag.NewFlagSet("admission-board", flag.ContinueOnError)
	port := fs.Int("port", 0, "Port to listen on (overrides server.port)")
	editMode := fs.Bool("edit", false, "Enable admin routes (default is serve mode)")
	configPath := fs.String("config", "", "Config file (default: ./config.yaml if present)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if err := run(cfg, *editMode, logger); err != nil {
		logger.Error("admission board stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *app.Config, editMode bool, logger *zap.Logger) error {
	medium, closer, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.Backup, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("error closing storage", zap.Error(err))
		}
	}()
	store := storage.New(medium, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Surface unreadable rows at startup rather than on the first request
	evs, report, err := store.LoadAllWithReport(ctx)
	if err != nil {
		return err
	}
	if report.Missing {
		logger.Info("no events stored yet", zap.String("medium", store.Describe()))
	}

	var creds *app.Credentials
	if editMode {
		authFile, err := app.ResolveAuthFile(cfg.Auth.File)
		if err != nil {
			return err
		}
		if creds, err = app.LoadAuthCredentials(authFile, logger); err != nil {
			return fmt.Errorf("failed to load auth credentials: %w", err)
		}
	}

	sessions, err := app.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	if cfg.Auth.SessionSecret == "" && editMode {
		logger.Warn("no auth.session_secret set, sessions will not survive a restart")
	}

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := app.NewServer(app.Options{
		Store:       store,
		Credentials: creds,
		Sessions:    sessions,
		Logger:      logger,
		Location:    cfg.Location(),
		BaseURL:     cfg.Server.BaseURL,
		EditMode:    editMode,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("starting admission board",
		zap.String("mode", server.Mode()),
		zap.String("addr", addr),
		zap.String("medium", store.Describe()),
		zap.Int("events", len(evs)),
		zap.String("timezone", cfg.Board.Timezone),
	)
	return server.Run(ctx, addr)
}
