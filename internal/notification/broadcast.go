package notification

import (
	"context"
	"encoding/json"
	"strings"

	"production_backend/internal/events"
	"production_backend/internal/notification/inapp"
	"production_backend/internal/realtime"
	"production_backend/internal/scheduler"
	"production_backend/platform/logger"

	"github.com/google/uuid"
)

// Scope selects who a durable message is for.
type Scope string

const (
	ScopeTenant Scope = "tenant"
	ScopeRoles  Scope = "roles"
	ScopeUser   Scope = "user"
)

// Audience is a scope plus its selector.
type Audience struct {
	Scope   Scope
	Roles   []string
	UserIDs []uuid.UUID
}

// Message is a domain event prepared for fan-out. Every message reaches the
// entity rooms and invalidates tenant caches. Durable messages additionally
// persist one notification per recipient and push it to that user.
type Message struct {
	TenantID   uuid.UUID
	EventType  string
	EntityType string
	EntityID   uuid.UUID
	ActorID    uuid.UUID
	Payload    json.RawMessage
	Rooms      []string

	Durable  bool
	Audience Audience
	Title    string
	Content  string
	Category string
	Email    bool
}

// EventPayload is the body of realtime event and cache_invalidate envelopes.
type EventPayload struct {
	EventType  string          `json:"eventType"`
	EntityType string          `json:"entityType"`
	EntityID   uuid.UUID       `json:"entityId"`
	ActorID    uuid.UUID       `json:"actorId,omitempty"`
	Rooms      []string        `json:"rooms,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// RecipientResolver expands role scopes. No roles means every member.
type RecipientResolver interface {
	UserIDsWithRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]uuid.UUID, error)
}

// ContactReader looks up email recipients.
type ContactReader interface {
	MemberContact(ctx context.Context, tenantID, userID uuid.UUID) (email string, name string, err error)
}

// Recorder persists durable notifications.
type Recorder interface {
	Record(ctx context.Context, p inapp.CreateParams) (inapp.Notification, error)
}

// Broadcaster fans messages out to realtime sessions, the notification store
// and the email queue. A failure for one recipient never stops the others.
type Broadcaster struct {
	transport  realtime.Transport
	recipients RecipientResolver
	recorder   Recorder
	contacts   ContactReader
	emails     scheduler.EmailQueue
	appBaseURL string
	log        *logger.Logger
}

// NewBroadcaster wires the fan-out. emails may be nil to disable email.
func NewBroadcaster(transport realtime.Transport, recipients RecipientResolver, recorder Recorder, contacts ContactReader, emails scheduler.EmailQueue, appBaseURL string, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		transport:  transport,
		recipients: recipients,
		recorder:   recorder,
		contacts:   contacts,
		emails:     emails,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		log:        log,
	}
}

// Broadcast delivers m. Only recipient resolution failures are returned.
func (b *Broadcaster) Broadcast(ctx context.Context, m Message) error {
	b.pushEphemeral(ctx, m)
	if !m.Durable {
		return nil
	}

	recipients, err := b.resolve(ctx, m)
	if err != nil {
		return err
	}
	for _, userID := range recipients {
		b.deliverDurable(ctx, m, userID)
	}
	return nil
}

func (b *Broadcaster) pushEphemeral(ctx context.Context, m Message) {
	payload := EventPayload{
		EventType:  m.EventType,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		ActorID:    m.ActorID,
		Rooms:      m.Rooms,
	}

	if len(m.Rooms) > 0 {
		withData := payload
		withData.Data = m.Payload
		b.push(ctx, realtime.Target{TenantID: m.TenantID, Rooms: m.Rooms}, realtime.TypeEvent, withData, m.EventType, "room")
	}
	b.push(ctx, realtime.Target{TenantID: m.TenantID}, realtime.TypeCacheInvalidate, payload, m.EventType, "tenant")
}

func (b *Broadcaster) push(ctx context.Context, target realtime.Target, typ string, payload any, eventType, recipient string) {
	env, err := realtime.NewEnvelope(typ, payload)
	if err != nil {
		b.log.WithContext(ctx).DeliveryFailed("realtime", recipient, eventType, err)
		return
	}
	tenantID := target.TenantID
	env.TenantID = &tenantID
	if len(target.UserIDs) == 1 {
		userID := target.UserIDs[0]
		env.UserID = &userID
	}
	if err := b.transport.Deliver(ctx, target, env); err != nil {
		b.log.WithContext(ctx).DeliveryFailed("realtime", recipient, eventType, err)
	}
}

// resolve returns the distinct recipients of a durable message, never the
// actor who caused it.
func (b *Broadcaster) resolve(ctx context.Context, m Message) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	switch m.Audience.Scope {
	case ScopeUser:
		ids = m.Audience.UserIDs
	case ScopeRoles:
		if len(m.Audience.Roles) == 0 {
			return nil, nil
		}
		resolved, err := b.recipients.UserIDsWithRoles(ctx, m.TenantID, m.Audience.Roles)
		if err != nil {
			return nil, err
		}
		ids = resolved
	case ScopeTenant:
		resolved, err := b.recipients.UserIDsWithRoles(ctx, m.TenantID, nil)
		if err != nil {
			return nil, err
		}
		ids = resolved
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || id == m.ActorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (b *Broadcaster) deliverDurable(ctx context.Context, m Message, userID uuid.UUID) {
	recipient := userID.String()
	resourceType := m.EntityType
	resourceID := m.EntityID

	n, err := b.recorder.Record(ctx, inapp.CreateParams{
		TenantID:     m.TenantID,
		UserID:       userID,
		EventType:    m.EventType,
		Title:        m.Title,
		Content:      m.Content,
		ResourceID:   &resourceID,
		ResourceType: &resourceType,
		Category:     m.Category,
		Payload:      m.Payload,
	})
	if err != nil {
		b.log.WithContext(ctx).DeliveryFailed("inapp", recipient, m.EventType, err)
		return
	}

	b.push(ctx, realtime.Target{TenantID: m.TenantID, UserIDs: []uuid.UUID{userID}}, realtime.TypeNotification, n, m.EventType, recipient)

	if m.Email && b.emails != nil {
		b.enqueueEmail(ctx, m, n, userID)
	}
}

func (b *Broadcaster) enqueueEmail(ctx context.Context, m Message, n inapp.Notification, userID uuid.UUID) {
	to, name, err := b.contacts.MemberContact(ctx, m.TenantID, userID)
	if err != nil {
		b.log.WithContext(ctx).DeliveryFailed("email", userID.String(), m.EventType, err)
		return
	}
	if to == "" {
		return
	}

	err = b.emails.EnqueueNotificationEmail(ctx, scheduler.NotificationEmailPayload{
		TenantID:       m.TenantID.String(),
		UserID:         userID.String(),
		NotificationID: n.ID.String(),
		ToEmail:        to,
		ToName:         name,
		Subject:        m.Title,
		Heading:        m.Title,
		Body:           m.Content,
		CTALabel:       "Open in workspace",
		CTAURL:         b.entityURL(m.EntityType, m.EntityID),
	})
	if err != nil {
		b.log.WithContext(ctx).DeliveryFailed("email", to, m.EventType, err)
	}
}

var entityPaths = map[string]string{
	events.EntityOrder:         "orders",
	events.EntityDesignJob:     "design-jobs",
	events.EntityWorkOrder:     "work-orders",
	events.EntityPurchaseOrder: "purchase-orders",
}

func (b *Broadcaster) entityURL(entityType string, id uuid.UUID) string {
	path, ok := entityPaths[entityType]
	if !ok || b.appBaseURL == "" {
		return ""
	}
	return b.appBaseURL + "/" + path + "/" + id.String()
}
