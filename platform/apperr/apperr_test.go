package apperr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
		code   string
	}{
		{"not found", NotFound("x"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid transition", InvalidTransition("x"), http.StatusBadRequest, "INVALID_TRANSITION"},
		{"invalid state", InvalidState("x"), http.StatusBadRequest, "INVALID_STATE"},
		{"invalid key", New(KindInvalidIdempotencyKey, "x"), http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY"},
		{"key reused", New(KindIdempotencyKeyReused, "x"), http.StatusConflict, "IDEMPOTENCY_KEY_REUSED"},
		{"conflict", Conflict("x"), http.StatusConflict, "CONFLICT"},
		{"forbidden", Forbidden("x"), http.StatusForbidden, "FORBIDDEN"},
		{"internal", Internal("x"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.status {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.status)
			}
			if got := tt.err.Code(); got != tt.code {
				t.Fatalf("Code() = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestGetKindUnwrapsChain(t *testing.T) {
	base := InvalidState("line items are frozen").WithOp("purchasing.add_line")
	wrapped := fmt.Errorf("add line: %w", base)

	if !Is(wrapped, KindInvalidState) {
		t.Fatalf("expected wrapped error to keep its kind, got %v", GetKind(wrapped))
	}
	if GetKind(fmt.Errorf("plain")) != KindUnknown {
		t.Fatal("expected plain error to be KindUnknown")
	}
}
