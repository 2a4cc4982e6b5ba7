package events

import "context"

// Sink receives link update notifications.
type Sink interface {
	Publish(ctx context.Context, ev LinkUpdate)
}

// MultiSink fans one update out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, ev LinkUpdate) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}
