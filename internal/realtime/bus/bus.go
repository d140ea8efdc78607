package bus

import (
	"context"

	"github.com/yungbote/courseflow-backend/internal/realtime"
)

// Bus fans realtime messages out across API instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// Local delivers straight to an in-process hub. Used when no redis is configured.
type Local struct {
	Hub *realtime.SSEHub
}

func (l Local) Publish(_ context.Context, msg realtime.SSEMessage) error {
	if l.Hub != nil {
		l.Hub.Broadcast(msg)
	}
	return nil
}

func (Local) StartForwarder(context.Context, func(m realtime.SSEMessage)) error { return nil }

func (Local) Close() error { return nil }
