package realtime

import (
	"context"

	apphttp "production_backend/internal/http"
	"production_backend/platform/config"
	"production_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module wires the hub, the websocket route and the optional Redis relay.
type Module struct {
	hub     *Hub
	handler *Handler
	relay   *Relay
}

// NewModule creates the realtime module. A nil redis client keeps delivery
// local to this instance.
func NewModule(cfg config.RealtimeConfig, jwt config.JWTConfig, rdb *redis.Client, log *logger.Logger) *Module {
	hub := NewHub(log)
	m := &Module{
		hub:     hub,
		handler: NewHandler(hub, JWTAuthenticator(jwt), OptionsFromConfig(cfg), cfg.GetCORSOrigins(), cfg.GetCORSAllowAll(), log),
	}
	if rdb != nil {
		m.relay = NewRelay(rdb, cfg.GetRealtimeChannel(), hub, log)
	}
	return m
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "realtime"
}

// Hub returns the local session registry.
func (m *Module) Hub() *Hub {
	return m.hub
}

// Transport returns the relay when configured, otherwise the local hub.
func (m *Module) Transport() Transport {
	if m.relay != nil {
		return m.relay
	}
	return m.hub
}

// Start begins relaying when Redis is configured.
func (m *Module) Start(ctx context.Context) error {
	if m.relay == nil {
		return nil
	}
	return m.relay.Start(ctx)
}

// RegisterRoutes registers the websocket endpoint
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/realtime/ws", m.handler.ServeWS)
}

var _ apphttp.Module = (*Module)(nil)
