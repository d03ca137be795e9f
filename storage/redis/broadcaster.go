// Package redisbroadcast distributes saved document snapshots over Redis
// Pub/Sub. Delivery is at-most-once: a slow or disconnected client simply
// misses snapshots and catches up on its next load.
package redisbroadcast

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/curriculum"
)

const latestSnapshotTTL = 0 // keep until next save

type Broadcaster struct {
	rdb    *redis.Client
	logger core.Logger
}

var _ curriculum.Broadcaster = (*Broadcaster)(nil) // interface compliance check

func NewBroadcaster(opts *redis.Options, logger core.Logger) *Broadcaster {
	return &Broadcaster{rdb: redis.NewClient(opts), logger: logger}
}

// Close closes the Redis connection. Implements io.Closer.
func (b *Broadcaster) Close() error {
	return b.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (b *Broadcaster) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func docChannel(offeringID string) string {
	return "mtaala:doc:" + offeringID
}

func latestKey(offeringID string) string {
	return docChannel(offeringID) + ":latest"
}

// Publish caches the snapshot at mtaala:doc:{offering}:latest and publishes it
// on the channel of the same name. The cache is advisory (fast reloads); the
// document store remains the system of record.
func (b *Broadcaster) Publish(ctx context.Context, doc curriculum.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}

	if err := b.rdb.Set(ctx, latestKey(doc.OfferingID), payload, latestSnapshotTTL).Err(); err != nil {
		// cache only; the publish below is what other clients wait on
		b.logger.Warn("caching snapshot", err, map[string]interface{}{"offering_id": doc.OfferingID})
	}
	if err := b.rdb.Publish(ctx, docChannel(doc.OfferingID), payload).Err(); err != nil {
		return errors.Wrap(err, "publishing snapshot")
	}
	return nil
}

// Subscribe starts listening for snapshots of the given offering. Snapshots
// are delivered on a buffered channel (size 10); decode failures go to the
// error channel and the message is skipped. Caller must Close() the
// subscription; context cancellation also stops it.
func (b *Broadcaster) Subscribe(ctx context.Context, offeringID string) (*curriculum.Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, docChannel(offeringID))
	// force the connection now so an unreachable broker degrades at Subscribe
	// time, not on first receive
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "subscribing to snapshot channel")
	}

	updates := make(chan curriculum.Document, 10)
	errs := make(chan error, 10)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(updates)
		defer close(errs)
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var doc curriculum.Document
				if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
					select {
					case errs <- errors.Wrap(err, "decoding snapshot"):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case updates <- doc:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return curriculum.NewSubscription(updates, errs, cancel), nil
}

// Latest returns the cached last-published snapshot, if any.
func (b *Broadcaster) Latest(ctx context.Context, offeringID string) (curriculum.Document, error) {
	payload, err := b.rdb.Get(ctx, latestKey(offeringID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return curriculum.Document{}, curriculum.ErrNotFound
		}
		return curriculum.Document{}, errors.Wrap(err, "getting cached snapshot")
	}
	var doc curriculum.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return curriculum.Document{}, errors.Wrap(err, "decoding cached snapshot")
	}
	return doc, nil
}
