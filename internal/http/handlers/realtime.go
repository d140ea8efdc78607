package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	closeOnce sync.Once
	done      chan struct{}
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RealtimeHandler{
		log:  log.With("handler", "RealtimeHandler"),
		hub:  hub,
		done: make(chan struct{}),
	}
}

// Shutdown ends every open stream. http.Server does not wait for them otherwise.
func (h *RealtimeHandler) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })
}

// GET /api/events
//
// Every open stream of a user is subscribed to that user's channel.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "not authenticated", "code": "unauthorized"}})
		return
	}
	select {
	case <-h.done:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"message": "shutting down", "code": "retryable"}})
		return
	default:
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	client := h.hub.NewSSEClient(rd.UserID)
	h.hub.AddChannel(client, realtime.UserChannel(rd.UserID))
	h.log.Debug("event stream open", "user_id", rd.UserID.String(), "client_id", client.ID.String())

	h.hub.ServeHTTP(c.Writer, c.Request.WithContext(ctx), client)

	h.hub.CloseClient(client)
	h.log.Debug("event stream closed", "user_id", rd.UserID.String(), "client_id", client.ID.String())
}
