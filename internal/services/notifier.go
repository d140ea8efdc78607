package services

import (
	"context"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/realtime"
)

// LearningNotifier publishes enrollment and progress events on the student's channel.
// Every method is called only after the owning transaction committed.
type LearningNotifier interface {
	EnrollmentCreated(ctx context.Context, e *learning.Enrollment, source string)
	ProgressUpdated(ctx context.Context, snap domainagg.ProgressSnapshot, trigger string)
}

type learningNotifier struct {
	emit    SSEEmitter
	metrics *observability.Metrics
}

func NewLearningNotifier(emit SSEEmitter, metrics *observability.Metrics) LearningNotifier {
	return &learningNotifier{emit: emit, metrics: metrics}
}

func (n *learningNotifier) EnrollmentCreated(ctx context.Context, e *learning.Enrollment, source string) {
	if n == nil || n.emit == nil || e == nil || e.StudentID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(e.StudentID),
		Event:   realtime.SSEEventEnrollmentCreated,
		Data: map[string]any{
			"enrollment_id": e.ID,
			"course_id":     e.CourseID,
			"progress":      e.Progress,
			"state":         e.State(),
			"source":        source,
		},
	})
}

// ProgressUpdated emits progress.updated when the value moved and
// course.completed when the snapshot crossed into completion.
func (n *learningNotifier) ProgressUpdated(ctx context.Context, snap domainagg.ProgressSnapshot, trigger string) {
	if n == nil {
		return
	}
	changed := snap.Previous != snap.Progress
	n.metrics.IncProgressRecompute(trigger, changed)
	if n.emit == nil || snap.StudentID == uuid.Nil || !changed {
		return
	}
	channel := realtime.UserChannel(snap.StudentID)
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: channel,
		Event:   realtime.SSEEventProgressUpdated,
		Data: map[string]any{
			"enrollment_id": snap.EnrollmentID,
			"course_id":     snap.CourseID,
			"previous":      snap.Previous,
			"progress":      snap.Progress,
			"trigger":       trigger,
		},
	})
	if snap.Completed() {
		n.metrics.IncCourseCompleted()
		n.emit.Emit(ctx, realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventCourseCompleted,
			Data: map[string]any{
				"enrollment_id": snap.EnrollmentID,
				"course_id":     snap.CourseID,
			},
		})
	}
}
