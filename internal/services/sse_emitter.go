package services

import (
	"context"

	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/realtime"
	"github.com/yungbote/courseflow-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// BusEmitter publishes through the realtime bus so every API instance sees the event.
type BusEmitter struct {
	Bus     bus.Bus
	Log     *logger.Logger
	Metrics *observability.Metrics
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Bus == nil {
		return
	}
	if err := e.Bus.Publish(ctx, msg); err != nil {
		e.Metrics.IncEventPublished(string(msg.Event), "error")
		if e.Log != nil {
			e.Log.Warn("realtime publish failed", "event", string(msg.Event), "channel", msg.Channel, "error", err)
		}
		return
	}
	e.Metrics.IncEventPublished(string(msg.Event), "ok")
}
