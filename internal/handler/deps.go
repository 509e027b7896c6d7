package handler

import (
	"estatechat/internal/app/chat"
	"estatechat/internal/app/store"
	"estatechat/internal/configs"
)

// AppDeps bundles the shared dependencies injected into HTTP handlers.
type AppDeps struct {
	Config   *configs.AppConfig
	Store    store.Store
	Router   *chat.Router
	Registry *chat.Registry
}
