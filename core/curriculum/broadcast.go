package curriculum

import "context"
import "sync"

type (
	// Broadcaster distributes saved document snapshots to other open clients.
	Broadcaster interface {
		// Publish sends a snapshot on the channel keyed by its offering id.
		Publish(ctx context.Context, doc Document) error
		// Subscribe starts listening for snapshots of the given offering.
		// Caller must Close() the subscription when done.
		Subscribe(ctx context.Context, offeringID string) (*Subscription, error)
	}

	// Subscription is an active snapshot feed. Updates are delivered on a
	// buffered channel; if the subscriber is too slow, at-most-once delivery
	// applies and snapshots may be dropped.
	Subscription struct {
		updates <-chan Document
		errs    <-chan error
		cancel  func()
		once    sync.Once
	}
)

// NewSubscription wraps producer-owned channels with a cancellation handle.
func NewSubscription(updates <-chan Document, errs <-chan error, cancel func()) *Subscription {
	return &Subscription{updates: updates, errs: errs, cancel: cancel}
}

// Updates returns the channel of received snapshots. The channel is closed
// when the subscription ends.
func (s *Subscription) Updates() <-chan Document {
	return s.updates
}

// Err returns the channel of subscription errors (decode failures etc.).
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}
