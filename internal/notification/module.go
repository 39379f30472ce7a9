// Package notification turns lifecycle events into realtime pushes,
// persisted per-user notifications and assignment emails. Domain modules
// publish events and stay unaware of who is listening.
package notification

import (
	"context"

	"production_backend/internal/events"
	apphttp "production_backend/internal/http"
	notifhandler "production_backend/internal/notification/handler"
	"production_backend/internal/notification/inapp"
	"production_backend/internal/realtime"
	"production_backend/internal/scheduler"
	"production_backend/platform/config"
	"production_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators owned by other modules.
type Deps struct {
	Transport  realtime.Transport
	Recipients RecipientResolver
	Contacts   ContactReader
	// Emails is nil when email delivery is disabled.
	Emails scheduler.EmailQueue
}

// Module wires the broadcaster to the event bus and serves /notifications.
type Module struct {
	broadcaster *Broadcaster
	inapp       *inapp.Service
	handler     *notifhandler.HTTPHandler
	log         *logger.Logger
}

func NewModule(pool *pgxpool.Pool, cfg config.NotificationConfig, deps Deps, log *logger.Logger) *Module {
	return newModule(inapp.NewRepository(pool), cfg, deps, log)
}

func newModule(store inapp.Store, cfg config.NotificationConfig, deps Deps, log *logger.Logger) *Module {
	svc := inapp.NewService(store)
	return &Module{
		broadcaster: NewBroadcaster(deps.Transport, deps.Recipients, svc, deps.Contacts, deps.Emails, cfg.GetAppBaseURL(), log),
		inapp:       svc,
		handler:     notifhandler.NewHTTPHandler(svc),
		log:         log,
	}
}

// Name returns the module identifier
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the notification inbox.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// InAppService exposes the notification inbox.
func (m *Module) InAppService() *inapp.Service { return m.inapp }

// RegisterHandlers subscribes to every lifecycle event that reaches clients.
func (m *Module) RegisterHandlers(bus events.Bus) {
	events.SubscribeAll(bus, events.HandlerFunc(m.Handle), events.RoutableEventNames()...)
	m.log.Info("notification module registered event handlers")
}

// Handle broadcasts one event.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	routed, ok := event.(events.Routable)
	if !ok {
		return nil
	}
	msg, err := Compose(routed)
	if err != nil {
		return err
	}
	return m.broadcaster.Broadcast(ctx, msg)
}

var _ apphttp.Module = (*Module)(nil)
