package events

import "context"

type Handler func(Event)

type Subscription interface {
	Unsubscribe()
}

type TopicStats struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}

// Stats is a point-in-time view of a bus. Dropped counts events that did not
// fit the publish queue; pairs may be out of step with the links when it
// grows.
type Stats struct {
	Topics       []TopicStats `json:"topics"`
	PublishChLen int          `json:"publish-channel-length"`
	PublishChCap int          `json:"publish-channel-capacity"`
	Published    uint64       `json:"published"`
	Dropped      uint64       `json:"dropped"`
	DebugTopics  []string     `json:"debug-topics,omitempty"`
}

// Bus delivers link and pair events to subscribers. Handlers run one at a
// time in publish order, so a handler that blocks stalls delivery.
type Bus interface {
	Publish(topic string, event Event)
	Subscribe(topic string, handler Handler) Subscription
	SubscribeAll(handler Handler) Subscription
	// Sync returns once every event published before the call has been
	// handled.
	Sync(ctx context.Context) error
	Stats() Stats
	SetDebugTopics(topics []string)
	DebugTopics() []string
	Close() error
}
