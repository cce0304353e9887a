package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for service metrics.
const meterName = "tenancy-control-plane"

// Instruments are the counters recorded by the organization and invitation services.
// A nil *Instruments is valid and records nothing.
type Instruments struct {
	organizationsCreated metric.Int64Counter
	invitationsCreated   metric.Int64Counter
	notifyFailures       metric.Int64Counter
}

// NewInstruments creates the service counters on provider. A nil provider yields no-op counters.
func NewInstruments(provider metric.MeterProvider) (*Instruments, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	m := provider.Meter(meterName)
	orgs, err := m.Int64Counter("orgs.organizations.created",
		metric.WithDescription("Organizations created"))
	if err != nil {
		return nil, err
	}
	invs, err := m.Int64Counter("orgs.invitations.created",
		metric.WithDescription("Invitations created"))
	if err != nil {
		return nil, err
	}
	fails, err := m.Int64Counter("orgs.invitations.notify_failures",
		metric.WithDescription("Invitation notifications that could not be delivered"))
	if err != nil {
		return nil, err
	}
	return &Instruments{organizationsCreated: orgs, invitationsCreated: invs, notifyFailures: fails}, nil
}

// OrganizationCreated counts one created organization.
func (i *Instruments) OrganizationCreated(ctx context.Context) {
	if i == nil {
		return
	}
	i.organizationsCreated.Add(ctx, 1)
}

// InvitationCreated counts one invitation for role; activated reports whether the membership was activated immediately.
func (i *Instruments) InvitationCreated(ctx context.Context, role string, activated bool) {
	if i == nil {
		return
	}
	i.invitationsCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.Bool("activated", activated),
	))
}

// NotifyFailed counts one failed invitation notification.
func (i *Instruments) NotifyFailed(ctx context.Context) {
	if i == nil {
		return
	}
	i.notifyFailures.Add(ctx, 1)
}
