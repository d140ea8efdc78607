package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/realtime"
)

func TestLocalPublishesToHub(t *testing.T) {
	hub := realtime.NewSSEHub(logger.Nop())
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, realtime.UserChannel(userID))

	var b Bus = Local{Hub: hub}
	if err := b.Publish(context.Background(), realtime.SSEMessage{Channel: realtime.UserChannel(userID), Event: realtime.SSEEventProgressUpdated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-client.Outbound:
		if msg.Event != realtime.SSEEventProgressUpdated {
			t.Fatalf("event: %s", msg.Event)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis bus tests")
	}
	b, err := NewRedisBus(RedisConfig{Addr: addr, Channel: "courseflow:test:" + uuid.NewString()}, logger.Nop())
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan realtime.SSEMessage, 1)
	if err := b.StartForwarder(ctx, func(m realtime.SSEMessage) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(ctx, realtime.SSEMessage{Channel: "user:x", Event: realtime.SSEEventCourseCompleted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Event != realtime.SSEEventCourseCompleted || m.Channel != "user:x" {
			t.Fatalf("unexpected message: %+v", m)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for forwarded message")
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	if _, err := NewRedisBus(RedisConfig{}, logger.Nop()); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
