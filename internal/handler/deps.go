package handler

import (
	"chatroom/internal/app/chat"
	"chatroom/internal/app/identity"
	"chatroom/internal/app/memstore"
	"chatroom/internal/app/render"
	"chatroom/internal/configs"
	"chatroom/internal/pkg/metrics"
	"chatroom/internal/pkg/pow"
)

// AppDeps are the services the HTTP layer is wired to.
type AppDeps struct {
	Config    *configs.AppConfig
	Identity  *identity.Service
	Manager   *chat.Manager
	Presenter *render.Presenter
	PoW       *pow.PoWManager
	Metrics   *metrics.Metrics

	// LocalAvatars is set when avatars are kept in process memory and must
	// be served by this server under /avatars/.
	LocalAvatars *memstore.Objects
}
