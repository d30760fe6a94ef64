package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
)

// SwapChannels lists the channels a swap is published to.
func SwapChannels(swap *models.SwapEvent) []string {
	channels := []string{constants.PubSubChannelSwaps}
	if swap.Kind != "" {
		channels = append(channels, constants.PubSubChannelKind+swap.Kind)
	}
	if swap.TokenOut != "" {
		channels = append(channels, constants.PubSubChannelToken+strings.ToLower(swap.TokenOut))
	}
	return channels
}

// PublishSwap publishes swap to the live, per-kind and per-token channels
func (r *RedisCache) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, channel := range SwapChannels(swap) {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

// SubscribeSwaps streams swaps from the live channel until ctx is done.
func (r *RedisCache) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error) {
	return r.subscribe(ctx, constants.PubSubChannelSwaps, false)
}

// PSubscribeSwaps streams swaps from every channel matching pattern,
// e.g. "swaps:kind:*".
func (r *RedisCache) PSubscribeSwaps(ctx context.Context, pattern string) (<-chan *models.SwapEvent, error) {
	return r.subscribe(ctx, pattern, true)
}

func (r *RedisCache) subscribe(ctx context.Context, channel string, pattern bool) (<-chan *models.SwapEvent, error) {
	var ps *redis.PubSub
	if pattern {
		ps = r.client.PSubscribe(ctx, channel)
	} else {
		ps = r.client.Subscribe(ctx, channel)
	}

	// wait for the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	r.logger.WithField("channel", channel).Info("subscribed to swap channel")

	out := make(chan *models.SwapEvent, 64)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var swap models.SwapEvent
				if err := json.Unmarshal([]byte(msg.Payload), &swap); err != nil {
					r.logger.WithFields(logrus.Fields{
						"channel": msg.Channel,
						"error":   err,
					}).Warn("error unmarshaling swap")
					continue
				}
				select {
				case out <- &swap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Subscribe runs handler for every swap on the live channel until ctx is done.
func (r *RedisCache) Subscribe(ctx context.Context, handler storage.SwapHandler) error {
	swaps, err := r.SubscribeSwaps(ctx)
	if err != nil {
		return err
	}
	for s := range swaps {
		handler(s)
	}
	return ctx.Err()
}
