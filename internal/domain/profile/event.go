package profile

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCreated         EventType = "profile.created"
	EventUpdated         EventType = "profile.updated"
	EventDeleted         EventType = "profile.deleted"
	EventAccountOrphaned EventType = "account.orphaned"
)

// Event describes a change that already happened to a profile or its
// owning account.
type Event struct {
	Type       EventType `json:"type"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Handle     string    `json:"handle,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
