package realtime

import (
	"net/http"
	"strings"

	"production_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to realtime sessions. Authentication
// happens inside the socket, so the route sits outside the bearer middleware.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	opts     Options
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHandler creates a websocket handler. An empty origin list with allowAll
// false only admits same-origin and non-browser clients.
func NewHandler(hub *Hub, auth Authenticator, opts Options, origins []string, allowAll bool, log *logger.Logger) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return &Handler{
		hub:  hub,
		auth: auth,
		opts: opts.withDefaults(),
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				return allowed[strings.TrimRight(strings.ToLower(origin), "/")]
			},
		},
	}
}

// ServeWS handles GET /api/v1/realtime/ws
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err, "clientIp", c.ClientIP())
		return
	}
	newSession(h.hub, conn, h.opts, h.log).run(h.auth)
}
