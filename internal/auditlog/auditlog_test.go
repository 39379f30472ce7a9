package auditlog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsConcreteType(t *testing.T) {
	assignee := uuid.New()
	eta := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload Payload
		check   func(t *testing.T, p Payload)
	}{
		{"assigned", Assigned{From: "pending_design", To: "assigned", AssigneeID: assignee}, func(t *testing.T, p Payload) {
			got, ok := p.(*Assigned)
			require.True(t, ok)
			assert.Equal(t, assignee, got.AssigneeID)
		}},
		{"delayed", Delayed{Reason: "fabric late", EstimatedCompletion: eta}, func(t *testing.T, p Payload) {
			got, ok := p.(*Delayed)
			require.True(t, ok)
			assert.True(t, eta.Equal(got.EstimatedCompletion))
		}},
		{"received", Received{Status: "partially_received", Lines: []ReceivedLine{{LineID: assignee, Quantity: 3}}}, func(t *testing.T, p Payload) {
			got, ok := p.(*Received)
			require.True(t, ok)
			require.Len(t, got.Lines, 1)
			assert.EqualValues(t, 3, got.Lines[0].Quantity)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, raw, err := Encode(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.payload.Kind(), kind)

			decoded, err := Decode(kind, raw)
			require.NoError(t, err)
			assert.Equal(t, kind, decoded.Kind())
			tt.check(t, decoded)
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode("teleported", []byte(`{}`))
	assert.Error(t, err)
}

func TestEveryKindIsRegistered(t *testing.T) {
	payloads := []Payload{
		Created{}, StatusChanged{}, Assigned{}, Submitted{}, Reviewed{}, Comment{},
		Delayed{}, MilestoneUpdated{}, LineChanged{}, Received{}, Approved{}, Cancelled{},
	}
	for _, p := range payloads {
		if _, ok := registry[p.Kind()]; !ok {
			t.Fatalf("kind %s has no decoder", p.Kind())
		}
	}
	if len(payloads) != len(registry) {
		t.Fatalf("registry has %d kinds, test covers %d", len(registry), len(payloads))
	}
}
