// Package app wires configuration into the domain services shared by the
// server and the admin CLI.
package app

import (
	"context"
	"fmt"

	"fileshare/db"
	"fileshare/internal/access"
	"fileshare/internal/config"
	"fileshare/internal/database"
	"fileshare/internal/files"
	"fileshare/internal/identity"
	"fileshare/internal/notify"
	"fileshare/internal/permissions"
	"fileshare/internal/sharing"
	"fileshare/internal/storage"
	"fileshare/internal/websocket"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Pool     *pgxpool.Pool
	Store    *database.Store
	Storage  *storage.LocalStorage
	Perms    *permissions.Table
	Hub      *websocket.Hub
	Files    *files.Service
	Sharing  *sharing.Service
	Identity *identity.Service
}

// New connects to the database and builds every service. The caller owns
// the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	perms, err := permissions.ParseTable(cfg.Permissions.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("invalid permissions table: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	store := database.NewStore(pool)

	if cfg.DB.AutoMigrate {
		if err := store.Migrate(ctx, db.Schema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		log.Info("schema applied")
	}

	localStorage, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to initialize local storage: %w", err)
	}

	hub := websocket.NewHub(log)
	fileService, err := files.NewService(store, localStorage, access.New(perms), files.Config{
		MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
		AllowedExtensions: cfg.Storage.AllowedExtensions,
		UnlinkOnDelete:    cfg.Storage.UnlinkOnDelete,
	}, hub, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	identityService := identity.NewService(store, fileService, notify.NewLogNotifier(cfg.Mail.From, log), identity.Config{
		Secret:     cfg.JWT.Secret,
		ConfirmTTL: cfg.JWT.ConfirmTTL,
		BaseURL:    cfg.AppHost,
	}, log)

	return &App{
		Config:   cfg,
		Log:      log,
		Pool:     pool,
		Store:    store,
		Storage:  localStorage,
		Perms:    perms,
		Hub:      hub,
		Files:    fileService,
		Sharing:  sharing.NewService(store, fileService, hub, log),
		Identity: identityService,
	}, nil
}

func (a *App) Close() {
	a.Pool.Close()
}
