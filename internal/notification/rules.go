package notification

import (
	"encoding/json"
	"fmt"

	"production_backend/internal/access"
	"production_backend/internal/events"

	"github.com/google/uuid"
)

const maxPreview = 140

// Compose turns a routed domain event into a broadcast message. Events that
// concern specific people become durable; the rest only refresh clients.
func Compose(e events.Routable) (Message, error) {
	r := e.Route()
	payload, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", e.EventName(), err)
	}

	m := Message{
		TenantID:   r.TenantID,
		EventType:  e.EventName(),
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		ActorID:    r.ActorID,
		Payload:    payload,
		Rooms:      append([]string{r.Room()}, r.ParentRooms...),
	}

	switch ev := e.(type) {
	case events.DesignJobAssigned:
		m.notify(users(ev.DesignerID), "info", "Design job assigned",
			fmt.Sprintf("You were assigned the design job %q.", ev.Title))
		m.Email = true

	case events.DesignJobSubmitted:
		m.notify(roles(access.RoleAdmin), "info", "Design submitted for review",
			fmt.Sprintf("%q has %d asset version(s) waiting for review.", ev.Title, len(ev.AssetVersions)))

	case events.DesignJobReviewed:
		if ev.AssigneeID == nil {
			break
		}
		if ev.Decision == "approved" {
			m.notify(users(*ev.AssigneeID), "success", "Design approved",
				fmt.Sprintf("Your design for %q was approved.", ev.Title))
		} else {
			m.notify(users(*ev.AssigneeID), "warning", "Revision requested",
				fmt.Sprintf("%q needs changes: %s", ev.Title, preview(ev.Feedback)))
		}

	case events.DesignJobCommented:
		if ev.AssigneeID == nil {
			break
		}
		m.notify(users(*ev.AssigneeID), "info", "New comment on design job",
			fmt.Sprintf("%q: %s", ev.Title, preview(ev.Body)))

	case events.WorkOrderAssigned:
		m.notify(roles(access.RoleProduction), "info", "Work order assigned",
			fmt.Sprintf("%s was assigned to a manufacturer.", ev.Reference))

	case events.WorkOrderDelayed:
		m.notify(roles(access.RoleAdmin, access.RoleProduction), "warning", "Work order delayed",
			fmt.Sprintf("%s is delayed: %s. New estimate %s.", ev.Reference, preview(ev.Reason), ev.EstimatedCompletion.Format("2006-01-02")))

	case events.PurchaseOrderStatusChanged:
		switch ev.To {
		case "pending_approval":
			m.notify(roles(access.RoleAdmin), "info", "Purchase order awaiting approval",
				fmt.Sprintf("%s is waiting for approval.", ev.Number))
		case "approved":
			m.notify(roles(access.RolePurchasing), "success", "Purchase order approved",
				fmt.Sprintf("%s was approved and can be sent to the supplier.", ev.Number))
		}

	case events.PurchaseOrderReceived:
		content := fmt.Sprintf("Goods for %s were partially received.", ev.Number)
		if ev.FullyReceived {
			content = fmt.Sprintf("All goods for %s were received.", ev.Number)
		}
		m.notify(roles(access.RolePurchasing, access.RoleProduction), "success", "Goods received", content)
	}

	return m, nil
}

func (m *Message) notify(a Audience, category, title, content string) {
	m.Durable = true
	m.Audience = a
	m.Category = category
	m.Title = title
	m.Content = content
}

func users(ids ...uuid.UUID) Audience {
	return Audience{Scope: ScopeUser, UserIDs: ids}
}

func roles(names ...string) Audience {
	return Audience{Scope: ScopeRoles, Roles: names}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= maxPreview {
		return s
	}
	return string(r[:maxPreview-1]) + "…"
}
