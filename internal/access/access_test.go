package access

import (
	"testing"

	"production_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestEnsureTenant(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	actor := Actor{UserID: uuid.New(), TenantID: tenantA}

	if err := EnsureTenant(tenantA, actor, "test"); err != nil {
		t.Fatalf("same tenant should pass, got %v", err)
	}
	if err := EnsureTenant(tenantB, actor, "test"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden for other tenant, got %v", err)
	}
	if err := EnsureTenant(tenantA, Actor{UserID: uuid.New()}, "test"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden for actor without tenant, got %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(Actor{Roles: []string{RoleDesigner}}, "test"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if err := RequireAdmin(Actor{Roles: []string{RoleAdmin}}, "test"); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
}
