package realtime

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

// SSEClient is one open event stream. A learner may hold several (one per tab).
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	dropped  atomic.Int64
	Logger   *logger.Logger
}

// Dropped counts messages skipped because this client's buffer was full.
// Progress events carry absolute values, so a reader recovers on the next one.
func (c *SSEClient) Dropped() int64 {
	return c.dropped.Load()
}
