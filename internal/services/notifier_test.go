package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/realtime"
)

func TestProgressUpdatedSkipsUnchanged(t *testing.T) {
	em := &recordingEmitter{}
	n := NewLearningNotifier(em, nil)
	n.ProgressUpdated(context.Background(), domainagg.ProgressSnapshot{StudentID: uuid.New(), Previous: 50, Progress: 50}, "refresh")
	if len(em.events()) != 0 {
		t.Fatalf("unchanged progress should not emit, got=%v", em.events())
	}
}

func TestProgressUpdatedEmitsCompletionOnce(t *testing.T) {
	em := &recordingEmitter{}
	m := observability.New(observability.MetricsConfig{Enabled: true})
	n := NewLearningNotifier(em, m)
	student := uuid.New()

	n.ProgressUpdated(context.Background(), domainagg.ProgressSnapshot{StudentID: student, Previous: 66, Progress: 100}, "consume")
	got := em.events()
	if len(got) != 2 || got[0] != realtime.SSEEventProgressUpdated || got[1] != realtime.SSEEventCourseCompleted {
		t.Fatalf("events: %v", got)
	}
	if em.msgs[0].Channel != realtime.UserChannel(student) {
		t.Fatalf("channel: got=%q", em.msgs[0].Channel)
	}

	// Dropping from 100 back down to a lower value is progress, not completion.
	n.ProgressUpdated(context.Background(), domainagg.ProgressSnapshot{StudentID: student, Previous: 100, Progress: 75}, "structure_delete")
	if got := em.events(); len(got) != 3 || got[2] != realtime.SSEEventProgressUpdated {
		t.Fatalf("events after drop: %v", got)
	}
}

func TestEnrollmentCreatedCarriesState(t *testing.T) {
	em := &recordingEmitter{}
	n := NewLearningNotifier(em, nil)
	e := &learning.Enrollment{ID: uuid.New(), StudentID: uuid.New(), CourseID: uuid.New()}
	n.EnrollmentCreated(context.Background(), e, EnrollmentSourceFree)
	n.EnrollmentCreated(context.Background(), nil, EnrollmentSourceFree)
	if len(em.msgs) != 1 {
		t.Fatalf("messages: want=1 got=%d", len(em.msgs))
	}
	data := em.msgs[0].Data.(map[string]any)
	if data["state"] != learning.EnrollmentEnrolled || data["source"] != EnrollmentSourceFree {
		t.Fatalf("payload: %+v", data)
	}
}
