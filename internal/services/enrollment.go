package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/data/repos"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

const (
	EnrollmentSourceFree    = "free"
	EnrollmentSourcePayment = "payment"
)

// EnrollmentView is an enrollment with its derived lifecycle state.
type EnrollmentView struct {
	*learning.Enrollment
	State learning.EnrollmentState `json:"state"`
}

func NewEnrollmentView(e *learning.Enrollment) EnrollmentView {
	return EnrollmentView{Enrollment: e, State: e.State()}
}

type EnrollmentService interface {
	Enroll(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (domainagg.EnrollResult, error)
	// RecordPaidEnrollment reports an enrollment the payment ledger committed.
	RecordPaidEnrollment(ctx context.Context, res domainagg.EnrollResult)
	ListMine(ctx context.Context, viewer user.Viewer) ([]EnrollmentView, error)
}

type enrollmentService struct {
	db          *gorm.DB
	log         *logger.Logger
	agg         domainagg.EnrollmentAggregate
	enrollments repos.EnrollmentRepo
	notify      LearningNotifier
	metrics     *observability.Metrics
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	agg domainagg.EnrollmentAggregate,
	enrollments repos.EnrollmentRepo,
	notify LearningNotifier,
	metrics *observability.Metrics,
) EnrollmentService {
	return &enrollmentService{
		db:          db,
		log:         baseLog.With("service", "EnrollmentService"),
		agg:         agg,
		enrollments: enrollments,
		notify:      notify,
		metrics:     metrics,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (domainagg.EnrollResult, error) {
	res, err := s.agg.Enroll(ctx, viewer, courseID)
	s.observe(EnrollmentSourceFree, res, err)
	if err != nil {
		return res, err
	}
	if res.Created && s.notify != nil {
		s.notify.EnrollmentCreated(ctx, res.Enrollment, EnrollmentSourceFree)
	}
	return res, nil
}

func (s *enrollmentService) RecordPaidEnrollment(ctx context.Context, res domainagg.EnrollResult) {
	s.observe(EnrollmentSourcePayment, res, nil)
	if !res.Created || res.Enrollment == nil {
		return
	}
	s.log.Info("paid enrollment created", "student_id", res.Enrollment.StudentID, "course_id", res.Enrollment.CourseID, "payment_id", res.Enrollment.PaymentID)
	if s.notify != nil {
		s.notify.EnrollmentCreated(ctx, res.Enrollment, EnrollmentSourcePayment)
	}
}

func (s *enrollmentService) observe(source string, res domainagg.EnrollResult, err error) {
	switch {
	case err != nil:
		code := domainagg.CodeOf(err)
		if code == "" {
			code = domainagg.CodeInternal
		}
		s.metrics.IncEnrollment(source, string(code))
	case res.Created:
		s.metrics.IncEnrollment(source, "created")
	default:
		s.metrics.IncEnrollment(source, "existing")
	}
}

func (s *enrollmentService) ListMine(ctx context.Context, viewer user.Viewer) ([]EnrollmentView, error) {
	const op = "Enrollment.ListMine"
	if viewer.IsAnonymous() {
		return nil, domainagg.NewFieldError(op, "missing viewer", map[string]string{"student_id": "required"})
	}
	rows, err := s.enrollments.ListByStudentID(dbctx.Context{Ctx: ctx, Tx: s.db}, viewer.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]EnrollmentView, 0, len(rows))
	for _, e := range rows {
		out = append(out, NewEnrollmentView(e))
	}
	return out, nil
}
