package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"tenancy-control-plane/backend/internal/invitation/domain"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	"tenancy-control-plane/backend/internal/telemetry"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type recordingEmitter struct {
	events chan *telemetry.Event
}

func (e *recordingEmitter) Emit(ctx context.Context, ev *telemetry.Event) error {
	e.events <- ev
	return nil
}

func sampleInvitation() *domain.WithMembership {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m := membershipdomain.NewPendingMembership("m1", "u1", "o1", membershipdomain.RoleSupervisor)
	return &domain.WithMembership{
		Invitation: domain.New("key-1", "owner-1", "m1", created),
		Membership: m,
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(sampleInvitation())
	if msg.Event != EventInvitationCreated || msg.Key != "key-1" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.OrganizationID != "o1" || msg.UserID != "u1" || msg.Role != "supervisor" || msg.OwnerID != "owner-1" {
		t.Errorf("msg references = %+v", msg)
	}
	if msg.State != string(domain.StatePending) {
		t.Errorf("state = %q, want pending", msg.State)
	}
}

func TestNewKafkaNotifier_RequiresConfig(t *testing.T) {
	if _, err := NewKafkaNotifier(nil, "topic"); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaNotifier([]string{"localhost:9092"}, ""); err == nil {
		t.Error("expected error without topic")
	}
	n, err := NewKafkaNotifier([]string{"localhost:9092"}, "org-invitations")
	if err != nil {
		t.Fatalf("NewKafkaNotifier: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestKafkaNotifier_Send(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w, topic: "org-invitations"}

	if err := n.Send(context.Background(), sampleInvitation()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	got := w.msgs[0]
	if string(got.Key) != "key-1" {
		t.Errorf("key = %q, want key-1", got.Key)
	}
	var msg Message
	if err := json.Unmarshal(got.Value, &msg); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if msg.Role != "supervisor" || msg.OrganizationID != "o1" {
		t.Errorf("payload = %+v", msg)
	}
}

func TestKafkaNotifier_SendError(t *testing.T) {
	boom := errors.New("broker down")
	n := &KafkaNotifier{writer: &fakeWriter{err: boom}}
	if err := n.Send(context.Background(), sampleInvitation()); !errors.Is(err, boom) {
		t.Errorf("Send error = %v, want %v", err, boom)
	}
}

func TestKafkaNotifier_NilSafe(t *testing.T) {
	var n *KafkaNotifier
	if err := n.Send(context.Background(), sampleInvitation()); err != nil {
		t.Errorf("nil Send: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestLogNotifier_Send(t *testing.T) {
	em := &recordingEmitter{events: make(chan *telemetry.Event, 1)}
	n := NewLogNotifier(em)
	if err := n.Send(context.Background(), sampleInvitation()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case ev := <-em.events:
		if ev.Type != EventInvitationCreated || ev.OrgID != "o1" || ev.Attributes["role"] != "supervisor" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event emitted")
	}

	if err := NewLogNotifier(nil).Send(context.Background(), sampleInvitation()); err != nil {
		t.Errorf("Send without emitter: %v", err)
	}
}
