package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller that AuthRequired stored on the request.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	// TenantID is nil for tokens without a tenant scope.
	TenantID() *uuid.UUID
}

type tokenIdentity struct {
	userID   uuid.UUID
	roles    []string
	tenantID *uuid.UUID
}

func (i tokenIdentity) UserID() uuid.UUID        { return i.userID }
func (i tokenIdentity) Roles() []string          { return i.roles }
func (i tokenIdentity) HasRole(role string) bool { return slices.Contains(i.roles, role) }
func (i tokenIdentity) TenantID() *uuid.UUID     { return i.tenantID }

// GetIdentity returns the request's caller, or nil when the request carries
// no verified token.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return nil
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return nil
	}

	id := tokenIdentity{userID: userID}
	if roles, ok := c.Get(ContextRolesKey); ok {
		id.roles, _ = roles.([]string)
	}
	if raw, ok := c.Get(ContextTenantIDKey); ok {
		if tenantID, ok := raw.(uuid.UUID); ok {
			id.tenantID = &tenantID
		}
	}
	return id
}

// MustGetIdentity answers 401 and returns nil for anonymous requests.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if id == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "unauthorized"})
		return nil
	}
	return id
}

// MustGetTenantID returns the caller's tenant or answers 403 when the token
// carries none.
func MustGetTenantID(c *gin.Context, id Identity) (uuid.UUID, bool) {
	tenantID := id.TenantID()
	if tenantID == nil {
		Error(c, http.StatusForbidden, "tenant membership is required", nil)
		return uuid.UUID{}, false
	}
	return *tenantID, true
}
