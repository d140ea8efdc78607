package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/courseflow-backend/internal/data/aggregates"
	"github.com/yungbote/courseflow-backend/internal/data/repos"
	repotest "github.com/yungbote/courseflow-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (r *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingEmitter) events() []realtime.SSEEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Event)
	}
	return out
}

type serviceHarness struct {
	db        *gorm.DB
	repos     repos.Set
	emitter   *recordingEmitter
	structure StructureService
	catalog   CatalogService
	enroll    EnrollmentService
	progress  ProgressService
	payAgg    domainagg.PaymentAggregate
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)
	base := dataagg.BaseDeps{DB: db, Log: log}
	emitter := &recordingEmitter{}
	notify := NewLearningNotifier(emitter, nil)

	structAgg := dataagg.NewCourseStructureAggregate(dataagg.CourseStructureAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Sections:    set.Section,
		Items:       set.ContentItem,
		Enrollments: set.Enrollment,
		Consumption: set.Consumption,
		Payments:    set.Payment,
	})
	enrollAgg := dataagg.NewEnrollmentAggregate(dataagg.EnrollmentAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Enrollments: set.Enrollment,
		Payments:    set.Payment,
	})
	progressAgg := dataagg.NewProgressAggregate(dataagg.ProgressAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Sections:    set.Section,
		Items:       set.ContentItem,
		Enrollments: set.Enrollment,
		Consumption: set.Consumption,
	})
	payAgg := dataagg.NewPaymentAggregate(dataagg.PaymentAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Enrollments: set.Enrollment,
		Payments:    set.Payment,
	})

	return &serviceHarness{
		db:        db,
		repos:     set,
		emitter:   emitter,
		structure: NewStructureService(log, structAgg, notify),
		catalog:   NewCatalogService(db, log, set.Course, set.Section, set.ContentItem, nil, nil),
		enroll:    NewEnrollmentService(db, log, enrollAgg, set.Enrollment, notify, nil),
		progress:  NewProgressService(db, log, progressAgg, set.Enrollment, notify),
		payAgg:    payAgg,
	}
}

func staffViewer() user.Viewer   { return user.Viewer{UserID: uuid.New(), Role: user.RoleStaff} }
func studentViewer() user.Viewer { return user.Viewer{UserID: uuid.New(), Role: user.RoleStudent} }

func wantCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	if !domainagg.IsCode(err, code) {
		t.Fatalf("want code %s, got %v", code, err)
	}
}
