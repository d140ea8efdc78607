package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	channel := UserChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventEnrollmentCreated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventProgressUpdated, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventEnrollmentCreated {
		t.Fatalf("first event: want=%s got=%s", SSEEventEnrollmentCreated, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventProgressUpdated {
		t.Fatalf("second event: want=%s got=%s", SSEEventProgressUpdated, got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", n)
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventCourseCompleted})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventCourseCompleted {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventCourseCompleted, got.Event)
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	channel := UserChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	for i := 0; i < outboundBuffer+5; i++ {
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventProgressUpdated})
	}
	if got := len(client.Outbound); got != outboundBuffer {
		t.Fatalf("buffered: want=%d got=%d", outboundBuffer, got)
	}
	if got := client.Dropped(); got != 5 {
		t.Fatalf("dropped: want=5 got=%d", got)
	}
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()

	hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventProgressUpdated, Data: map[string]any{"progress": 50}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: progress.updated") || !strings.Contains(body, `"progress":50`) {
		t.Fatalf("unexpected stream body: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
}
