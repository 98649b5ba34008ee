package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/estate-backend/internal/platform/logger"
)

func testMessage() EventMessage {
	return EventMessage{
		ID:            uuid.New(),
		EstateID:      uuid.New(),
		EstateVersion: 4,
		Sequence:      2,
		Type:          "debt.paid",
		Actor:         "executor-1",
		OccurredAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Payload:       json.RawMessage(`{"amount":{"amount":"400.00","currency":"KES"}}`),
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	msg := testMessage()
	raw, err := EncodeEvent(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != msg.ID || got.EstateVersion != 4 || got.Type != "debt.paid" || !got.OccurredAt.Equal(msg.OccurredAt) {
		t.Fatalf("decoded: want=%+v got=%+v", msg, got)
	}

	msg.Payload = nil
	raw, err = EncodeEvent(msg)
	if err != nil {
		t.Fatalf("encode empty payload: %v", err)
	}
	got, _ = DecodeEvent(raw)
	if string(got.Payload) != "{}" {
		t.Fatalf("empty payload: want={} got=%s", got.Payload)
	}
}

func TestEncodeDecodeRejectIncompleteMessages(t *testing.T) {
	if _, err := EncodeEvent(EventMessage{Type: "x"}); err == nil {
		t.Fatalf("encode without ids should fail")
	}
	if _, err := DecodeEvent([]byte(`{"id":"` + uuid.NewString() + `"}`)); err == nil {
		t.Fatalf("decode without type should fail")
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Fatalf("decode garbage should fail")
	}
}

// TestEventBusRoundTrip needs a reachable redis at TEST_REDIS_ADDR.
func TestEventBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	bus := NewEventBusFromClient(log, rdb, "estate.events.test."+uuid.NewString())
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan EventMessage, 1)
	if err := bus.StartForwarder(ctx, func(m EventMessage) { got <- m }); err != nil {
		t.Fatalf("forwarder: %v", err)
	}
	msg := testMessage()
	if err := bus.Publish(ctx, msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case m := <-got:
		if m.ID != msg.ID {
			t.Fatalf("message id: want=%s got=%s", msg.ID, m.ID)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}
}
