// Package notify delivers invitation notifications to the external email backend.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tenancy-control-plane/backend/internal/invitation/domain"
	"tenancy-control-plane/backend/internal/telemetry"
)

// EventInvitationCreated is the event type carried by every notification.
const EventInvitationCreated = "invitation.created"

// Message is the JSON payload of an invitation notification.
type Message struct {
	Event          string    `json:"event"`
	Key            string    `json:"key"`
	OrganizationID string    `json:"organization"`
	UserID         string    `json:"user"`
	Role           string    `json:"role"`
	OwnerID        string    `json:"owner,omitempty"`
	State          string    `json:"state"`
	CreatedDate    time.Time `json:"created_date"`
}

// NewMessage builds the notification payload for w.
func NewMessage(w *domain.WithMembership) Message {
	msg := Message{
		Event:       EventInvitationCreated,
		Key:         w.Invitation.Key,
		OwnerID:     w.Invitation.OwnerID,
		State:       string(w.State()),
		CreatedDate: w.Invitation.CreatedAt,
	}
	if m := w.Membership; m != nil {
		msg.OrganizationID = m.OrgID
		msg.UserID = m.UserID
		msg.Role = string(m.Role)
	}
	return msg
}

// LogNotifier records notifications in the process log and, when an emitter is set, as OTel
// log records. It is used when no Kafka brokers are configured.
type LogNotifier struct {
	emitter telemetry.EventEmitter
}

// NewLogNotifier returns a LogNotifier. emitter may be nil.
func NewLogNotifier(emitter telemetry.EventEmitter) *LogNotifier {
	return &LogNotifier{emitter: emitter}
}

// Send logs the invitation. It only fails if the payload cannot be encoded.
func (n *LogNotifier) Send(ctx context.Context, w *domain.WithMembership) error {
	if w == nil || w.Invitation == nil {
		return nil
	}
	msg := NewMessage(w)
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	log.Printf("invitation: notify org=%s user=%s role=%s state=%s", msg.OrganizationID, msg.UserID, msg.Role, msg.State)
	telemetry.EmitAsync(n.emitter, ctx, &telemetry.Event{
		Type:       EventInvitationCreated,
		OrgID:      msg.OrganizationID,
		UserID:     msg.UserID,
		Attributes: map[string]string{"role": msg.Role, "state": msg.State},
		Body:       body,
		CreatedAt:  msg.CreatedDate,
	})
	return nil
}

// Close is a no-op.
func (n *LogNotifier) Close() error { return nil }
