// Package notify delivers assignment events to lawyers. The engine calls a
// Notifier after every committed assignment; delivery is best effort.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// EventAssigned is the event type published when a lawyer receives a case.
const EventAssigned = "assignment.assigned.v1"

// Producer names this service in event metadata.
const Producer = "go-case-router"

// Meta is the event metadata carried by every Envelope.
type Meta struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Producer      string    `json:"producer"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

// Envelope is the wire format of published events.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Assigned is the payload of EventAssigned. The lawyer-facing wording
// ("Nuevo caso asignado") is rendered by the consumer.
type Assigned struct {
	LawyerUserID string `json:"lawyer_user_id"`
	CaseID       string `json:"case_id"`
	CaseSummary  string `json:"case_summary"`
}

// NewAssignedEnvelope builds an EventAssigned envelope. An empty
// correlation id falls back to the event id.
func NewAssignedEnvelope(correlationID string, data Assigned, now time.Time) Envelope {
	id := uuid.NewString()
	if correlationID == "" {
		correlationID = id
	}
	return Envelope{
		Meta: Meta{
			ID:            id,
			CorrelationID: correlationID,
			Producer:      Producer,
			Time:          now.UTC(),
			Type:          EventAssigned,
		},
		Data: data,
	}
}
