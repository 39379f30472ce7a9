// Package http holds the pieces shared between the router and the domain
// modules that mount onto it.
package http

import "github.com/gin-gonic/gin"

// Module is a domain package with its own routes.
type Module interface {
	// Name labels the module in startup logs.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the /api/v1 groups a module mounts onto.
type RouterContext struct {
	// V1 is unauthenticated; the realtime endpoint authenticates in-band.
	V1 *gin.RouterGroup
	// Protected requires a bearer token.
	Protected *gin.RouterGroup
	// Admin is Protected plus the admin role, mounted at /admin.
	Admin *gin.RouterGroup
	// Idempotent replays mutating requests that repeat an Idempotency-Key.
	Idempotent gin.HandlerFunc
}
