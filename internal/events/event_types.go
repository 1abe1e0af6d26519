package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated  EventType = "complaint_created"
	EventComplaintUpdated  EventType = "complaint_updated"
	EventComplaintDeleted  EventType = "complaint_deleted"
	EventComplaintResolved EventType = "complaint_resolved"
	EventUserRegistered    EventType = "user_registered"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventComplaintCreated,
	EventComplaintUpdated,
	EventComplaintDeleted,
	EventComplaintResolved,
	EventUserRegistered,
}

// Actor encapsulates actor metadata for an event. Anonymous actors have an
// empty email.
type Actor struct {
	Email string      `json:"email,omitempty"`
	Role  domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID int         `json:"complaint_id,omitempty"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, complaintID int, actor Actor, payload interface{}, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		Actor:       actor,
		Timestamp:   at.UTC(),
		Payload:     payload,
	}
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Title         string `json:"title"`
	CustomerEmail string `json:"customer_email"`
}

// ComplaintUpdatedPayload payload.
type ComplaintUpdatedPayload struct {
	Title string `json:"title"`
}

// ComplaintResolvedPayload payload.
type ComplaintResolvedPayload struct {
	OldStatus     domain.ComplaintStatus `json:"old_status"`
	NewStatus     domain.ComplaintStatus `json:"new_status"`
	Comment       string                 `json:"comment,omitempty"`
	CustomerEmail string                 `json:"customer_email"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID   int         `json:"user_id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}
