package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/crackenhq/cracken/internal/config"
	"github.com/crackenhq/cracken/internal/events"
	"github.com/crackenhq/cracken/internal/rotation"
	"github.com/crackenhq/cracken/internal/storage"
	"github.com/crackenhq/cracken/internal/store"
)

// app bundles the wired-up collaborators a command needs: config, store,
// event bus with the audit log attached, and the engine.
type app struct {
	cfg    *config.Config
	store  *store.SQLite
	bus    *events.Bus
	audit  *storage.AuditLog
	engine *rotation.Engine
}

func openApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level, cmd.Bool("debug"))

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(256)
	audit := storage.NewAuditLog(cfg.Audit.Dir, bus)

	return &app{
		cfg:    cfg,
		store:  st,
		bus:    bus,
		audit:  audit,
		engine: rotation.NewEngine(st, bus),
	}, nil
}

func (a *app) Close() {
	a.audit.Close()
	a.bus.Close()
	a.store.Close()
}

func setupLogging(level string, debug bool) {
	lvl := slog.LevelInfo
	if debug {
		lvl = slog.LevelDebug
	} else {
		switch strings.ToLower(level) {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// userByEmail resolves a --by/--as email flag to a user.
func (a *app) userByEmail(ctx context.Context, email string) (*rotation.User, error) {
	if email == "" {
		return nil, fmt.Errorf("an email is required (use --by or --as)")
	}
	return a.store.GetUserByEmail(ctx, email)
}
