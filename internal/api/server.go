package api

import (
	"fileshare/internal/config"
	"fileshare/internal/database"
	"fileshare/internal/files"
	"fileshare/internal/identity"
	"fileshare/internal/permissions"
	"fileshare/internal/sharing"
	"fileshare/internal/websocket"

	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Services bundles the domain services the HTTP layer adapts.
type Services struct {
	Store       *database.Store
	Files       *files.Service
	Sharing     *sharing.Service
	Identity    *identity.Service
	Permissions *permissions.Table
}

type Server struct {
	config   *config.Config
	store    *database.Store
	files    *files.Service
	sharing  *sharing.Service
	identity *identity.Service
	perms    *permissions.Table
	wsHub    *websocket.Hub
	upgrader *gorillaws.Upgrader
	log      *zap.Logger
}

func NewServer(cfg *config.Config, svc Services, wsHub *websocket.Hub, log *zap.Logger) *Server {
	perms := svc.Permissions
	if perms == nil {
		perms = permissions.Default()
	}
	return &Server{
		config:   cfg,
		store:    svc.Store,
		files:    svc.Files,
		sharing:  svc.Sharing,
		identity: svc.Identity,
		perms:    perms,
		wsHub:    wsHub,
		upgrader: websocket.NewUpgrader(cfg.HTTP.CORSOrigins),
		log:      log.Named("api"),
	}
}
