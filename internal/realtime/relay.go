package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/charlesng35/taskhub/pkg/logger"
)

// Envelope scopes.
const (
	ScopeAll    = "all"
	ScopeUser   = "user"
	ScopeGroup  = "group"
	ScopeDirect = "direct"
)

// DefaultRelayChannel is the pub/sub channel used when none is configured.
const DefaultRelayChannel = "taskhub:realtime"

// Envelope is a hub send as it travels between nodes.
type Envelope struct {
	Origin  string  `json:"origin"`
	Scope   string  `json:"scope"`
	Target  string  `json:"target,omitempty"`
	Sender  string  `json:"sender,omitempty"`
	Message Message `json:"message"`
}

// RedisRelay fans hub sends out to every node subscribed to the same Redis channel.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	log     *zap.Logger

	mu         sync.Mutex
	subscribed bool
	lastErr    error
}

// NewRedisRelay constructs a relay on the given channel.
func NewRedisRelay(client redis.UniversalClient, channel string) (*RedisRelay, error) {
	if client == nil {
		return nil, errors.New("realtime: redis client is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		log:     logger.WithModule("realtime.relay"),
	}, nil
}

// Channel returns the pub/sub channel name.
func (r *RedisRelay) Channel() string {
	return r.channel
}

// Publish encodes and publishes env.
func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("realtime: encode envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish envelope: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel and hands remote envelopes to hub until ctx is
// cancelled. The ready callback, when set, fires once the subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub, ready func()) error {
	if hub == nil {
		return errors.New("realtime: hub is required")
	}

	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: subscribe %s: %w", r.channel, err)
	}
	r.setState(true, nil)
	defer r.setState(false, nil)
	if ready != nil {
		ready()
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn("invalid relay envelope", zap.Error(err))
				continue
			}
			hub.Receive(env)
		}
	}
}

// Supervise keeps the relay subscribed until ctx is cancelled, re-running Run with
// exponential backoff between minBackoff and maxBackoff after each failure. The backoff
// resets once a subscription succeeds.
func (r *RedisRelay) Supervise(ctx context.Context, hub *Hub, minBackoff, maxBackoff time.Duration) {
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = minBackoff
	}

	backoff := minBackoff
	for {
		connected := false
		err := r.Run(ctx, hub, func() { connected = true })
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("realtime: relay subscription closed")
		}
		if connected {
			backoff = minBackoff
		}
		r.setState(false, err)
		r.log.Warn("realtime relay interrupted; retrying", zap.Duration("retry_in", backoff), zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Subscribed reports whether the relay currently holds a live subscription.
func (r *RedisRelay) Subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribed
}

// Err returns the error that ended the most recent subscription attempt, if any.
func (r *RedisRelay) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *RedisRelay) setState(subscribed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed = subscribed
	if subscribed || err != nil {
		r.lastErr = err
	}
}
