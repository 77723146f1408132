// Package eventbus routes change-feed and run lifecycle events between the
// listener, the engine workers, and the admin surface.
package eventbus

import (
	"context"

	"github.com/fieldline/automation/pkg/events"
)

// EventHandler processes one decoded event. Returning an error nacks the
// message.
type EventHandler func(ctx context.Context, event any) error

// EventBus publishes typed events and dispatches subscribed topics to
// registered handlers.
type EventBus interface {
	GenerateID() string
	Publish(ctx context.Context, key string, event events.Event) error
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
	Close() error
}
