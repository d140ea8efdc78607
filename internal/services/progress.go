package services

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/data/repos"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

const (
	triggerConsume = "consume"
	triggerRefresh = "refresh"
)

type ProgressService interface {
	MarkConsumed(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (domainagg.ConsumeResult, error)
	// Get reads the stored progress of the viewer's enrollment without recomputing.
	Get(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (EnrollmentView, error)
	// Refresh re-derives progress on demand. Concurrent refreshes of one
	// (student, course) pair share a single recompute.
	Refresh(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (domainagg.ProgressSnapshot, error)
}

type progressService struct {
	db          *gorm.DB
	log         *logger.Logger
	agg         domainagg.ProgressAggregate
	enrollments repos.EnrollmentRepo
	notify      LearningNotifier
	refresh     singleflight.Group
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	agg domainagg.ProgressAggregate,
	enrollments repos.EnrollmentRepo,
	notify LearningNotifier,
) ProgressService {
	return &progressService{
		db:          db,
		log:         baseLog.With("service", "ProgressService"),
		agg:         agg,
		enrollments: enrollments,
		notify:      notify,
	}
}

func (s *progressService) MarkConsumed(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (domainagg.ConsumeResult, error) {
	res, err := s.agg.MarkConsumed(ctx, viewer, itemID)
	if err != nil {
		return res, err
	}
	if s.notify != nil {
		s.notify.ProgressUpdated(ctx, res.Snapshot, triggerConsume)
	}
	if res.Snapshot.Completed() {
		s.log.Info("course completed", "student_id", res.Snapshot.StudentID, "course_id", res.Snapshot.CourseID)
	}
	return res, nil
}

func (s *progressService) Get(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (EnrollmentView, error) {
	const op = "Progress.Get"
	if viewer.IsAnonymous() {
		return EnrollmentView{}, domainagg.NewFieldError(op, "missing viewer", map[string]string{"student_id": "required"})
	}
	e, err := s.enrollments.GetByStudentAndCourse(dbctx.Context{Ctx: ctx, Tx: s.db}, viewer.UserID, courseID)
	if err != nil {
		return EnrollmentView{}, err
	}
	if e == nil {
		return EnrollmentView{}, domainagg.NewError(domainagg.CodeNotEnrolled, op, "not enrolled", nil)
	}
	return NewEnrollmentView(e), nil
}

func (s *progressService) Refresh(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (domainagg.ProgressSnapshot, error) {
	const op = "Progress.Refresh"
	if viewer.IsAnonymous() {
		return domainagg.ProgressSnapshot{}, domainagg.NewFieldError(op, "missing viewer", map[string]string{"student_id": "required"})
	}
	key := viewer.UserID.String() + ":" + courseID.String()
	v, err, _ := s.refresh.Do(key, func() (any, error) {
		snap, err := s.agg.Recompute(ctx, viewer.UserID, courseID)
		if err != nil {
			return snap, err
		}
		// Published once per shared recompute, not once per waiting caller.
		if s.notify != nil {
			s.notify.ProgressUpdated(ctx, snap, triggerRefresh)
		}
		return snap, nil
	})
	if err != nil {
		return domainagg.ProgressSnapshot{}, err
	}
	return v.(domainagg.ProgressSnapshot), nil
}
