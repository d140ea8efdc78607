package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventEnrollmentCreated SSEEvent = "enrollment.created"
	SSEEventProgressUpdated   SSEEvent = "progress.updated"
	SSEEventCourseCompleted   SSEEvent = "course.completed"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-user channel every stream of that user is subscribed to.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
