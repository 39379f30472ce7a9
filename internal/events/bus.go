package events

import (
	platformevents "production_backend/platform/events"
	"production_backend/platform/logger"
)

// InMemoryBus is the process-local bus shared by all modules.
type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

// SubscribeAll registers handler for every name in names.
var SubscribeAll = platformevents.SubscribeAll
