// Package consumer keeps a subscription to a station's orders alive and
// forwards the ones that still need printing.
package consumer

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/store"
)

const DefaultResubscribeDelay = 5 * time.Second

// Handler receives one change that passed the printed filter.
type Handler func(ctx context.Context, change model.OrderChange)

type Consumer struct {
	feed      store.OrderFeed
	stationID string
	backoff   backoff.BackOff
	logger    *log.Logger
}

type Option func(*Consumer)

// WithResubscribeDelay sets the fixed wait between subscription attempts.
func WithResubscribeDelay(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.backoff = backoff.NewConstantBackOff(d)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Consumer) { c.logger = l }
}

func New(feed store.OrderFeed, stationID string, opts ...Option) *Consumer {
	c := &Consumer{
		feed:      feed,
		stationID: stationID,
		backoff:   backoff.NewConstantBackOff(DefaultResubscribeDelay),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run subscribes until ctx is canceled. A failed or ended subscription is
// logged and retried after the resubscribe delay.
func (c *Consumer) Run(ctx context.Context, handler Handler) {
	for {
		err := c.feed.Subscribe(ctx, c.stationID, func(change model.OrderChange) {
			if Wanted(change) {
				handler(ctx, change)
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Printf("[%s] Subscription failed: %v", c.stationID, err)
		} else {
			c.logger.Printf("[%s] Subscription ended", c.stationID)
		}

		delay := c.backoff.NextBackOff()
		c.logger.Printf("[%s] Resubscribing in %s...", c.stationID, delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// Wanted reports whether a change should reach the pipeline: removals and
// already printed orders never do.
func Wanted(change model.OrderChange) bool {
	if change.Type == model.ChangeRemoved {
		return false
	}
	return !change.Order.PrintStatus.Printed
}
