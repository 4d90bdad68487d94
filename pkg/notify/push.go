package notify

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sitewatch/platform/pkg/events"
)

// PushNotifier publishes alerts onto the in-process event broker, where
// any in-process Subscriber of that broker receives them. The API
// server does not subscribe to the broker.
type PushNotifier struct {
	broker *events.Broker
}

// NewPushNotifier wraps an already-running broker.
func NewPushNotifier(broker *events.Broker) *PushNotifier {
	return &PushNotifier{broker: broker}
}

// VerifyTarget treats the target as the siteId the alert concerns.
func (n *PushNotifier) VerifyTarget(target string) bool {
	return strings.TrimSpace(target) != ""
}

func (n *PushNotifier) Send(ctx context.Context, target, message string) error {
	n.broker.Publish(&events.Event{
		ID:      uuid.New().String(),
		Type:    events.EventSiteStatusChanged,
		SiteID:  target,
		Message: message,
	})
	return nil
}
