package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/estate-backend/internal/platform/logger"
)

const DefaultChannel = "estate.events"

// EventMessage is the wire envelope of one committed estate event.
type EventMessage struct {
	ID            uuid.UUID       `json:"id"`
	EstateID      uuid.UUID       `json:"estate_id"`
	EstateVersion int64           `json:"estate_version"`
	Sequence      int             `json:"sequence"`
	Type          string          `json:"type"`
	Actor         string          `json:"actor,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

type EventBus interface {
	Publish(ctx context.Context, msg EventMessage) error
	StartForwarder(ctx context.Context, onMsg func(m EventMessage)) error
	Close() error
}

type eventBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewEventBus dials addr and checks it with a ping before returning.
func NewEventBus(log *logger.Logger, addr, channel string) (EventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewEventBusFromClient(log, rdb, channel), nil
}

func NewEventBusFromClient(log *logger.Logger, rdb *goredis.Client, channel string) EventBus {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &eventBus{
		log:     log.With("service", "RedisEventBus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *eventBus) Publish(ctx context.Context, msg EventMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := EncodeEvent(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and calls onMsg for every decodable message until ctx
// is done. It returns once the subscription is confirmed.
func (b *eventBus) StartForwarder(ctx context.Context, onMsg func(m EventMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				msg, err := DecodeEvent([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

func (b *eventBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func EncodeEvent(msg EventMessage) ([]byte, error) {
	if msg.ID == uuid.Nil || msg.EstateID == uuid.Nil {
		return nil, fmt.Errorf("event message missing id")
	}
	if len(msg.Payload) == 0 {
		msg.Payload = json.RawMessage(`{}`)
	}
	return json.Marshal(msg)
}

func DecodeEvent(raw []byte) (EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return EventMessage{}, err
	}
	if msg.ID == uuid.Nil || strings.TrimSpace(msg.Type) == "" {
		return EventMessage{}, fmt.Errorf("event message missing id or type")
	}
	return msg, nil
}
