package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/data/repos"
	repolearning "github.com/yungbote/courseflow-backend/internal/data/repos/learning"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
)

type EnrollmentAggregateDeps struct {
	Base BaseDeps

	Courses     repos.CourseRepo
	Enrollments repos.EnrollmentRepo
	Payments    repos.PaymentRepo
}

type enrollmentAggregate struct {
	deps EnrollmentAggregateDeps
}

func NewEnrollmentAggregate(deps EnrollmentAggregateDeps) domainagg.EnrollmentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &enrollmentAggregate{deps: deps}
}

func (a *enrollmentAggregate) Contract() domainagg.Contract {
	return domainagg.EnrollmentAggregateContract
}

func (a *enrollmentAggregate) Enroll(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (domainagg.EnrollResult, error) {
	const op = "Learning.Enrollment.Enroll"
	var out domainagg.EnrollResult
	if viewer.IsAnonymous() {
		return out, domainagg.NewFieldError(op, "invalid input", map[string]string{"student_id": "required"})
	}
	if courseID == uuid.Nil {
		return out, domainagg.NewFieldError(op, "invalid input", map[string]string{"course_id": "required"})
	}
	if a.deps.Courses == nil || a.deps.Enrollments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		// Shared lock orders the enroll against a concurrent unpublish or price change.
		c, err := a.deps.Courses.LockByID(dbc, courseID, repolearning.LockForShare)
		if err != nil {
			return err
		}
		if c == nil {
			return notFound(op, "course")
		}
		if !learning.CanView(viewer, c) {
			return notAvailable(op)
		}
		if !c.IsFree() {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "payment required", nil)
		}
		out, err = a.insert(dbc, op, viewer.UserID, c.ID, nil)
		return err
	})
	return out, err
}

func (a *enrollmentAggregate) OnPaymentCompleted(ctx context.Context, in domainagg.PaymentCompletedInput) (domainagg.EnrollResult, error) {
	const op = "Learning.Enrollment.OnPaymentCompleted"
	var out domainagg.EnrollResult
	if in.StudentID == uuid.Nil || in.CourseID == uuid.Nil || in.PaymentID == uuid.Nil {
		return out, domainagg.NewFieldError(op, "invalid input", map[string]string{"payment": "student_id, course_id and payment_id are required"})
	}
	if a.deps.Courses == nil || a.deps.Enrollments == nil || a.deps.Payments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.deps.Payments.GetByID(dbc, in.PaymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound(op, "payment")
		}
		if p.StudentID != in.StudentID || p.CourseID != in.CourseID {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "payment does not belong to this student and course", nil)
		}
		if p.Status != learning.PaymentCompleted {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "payment is "+string(p.Status)+", not completed", nil)
		}
		c, err := a.deps.Courses.LockByID(dbc, in.CourseID, repolearning.LockForShare)
		if err != nil {
			return err
		}
		if c == nil {
			return notFound(op, "course")
		}
		if !learning.CanView(user.Viewer{UserID: in.StudentID, Role: user.RoleStudent}, c) {
			return notAvailable(op)
		}
		paymentID := p.ID
		out, err = a.insert(dbc, op, in.StudentID, c.ID, &paymentID)
		return err
	})
	return out, err
}

func (a *enrollmentAggregate) insert(dbc dbctx.Context, op string, studentID, courseID uuid.UUID, paymentID *uuid.UUID) (domainagg.EnrollResult, error) {
	return createEnrollment(dbc, a.deps.Base, a.deps.Enrollments, op, studentID, courseID, paymentID)
}

// createEnrollment is the idempotent NONE -> ENROLLED transition. A duplicate is
// the already_enrolled case, recovered here by returning the existing row.
func createEnrollment(dbc dbctx.Context, base BaseDeps, enrollments repos.EnrollmentRepo, op string, studentID, courseID uuid.UUID, paymentID *uuid.UUID) (domainagg.EnrollResult, error) {
	row := &learning.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		PaymentID:  paymentID,
		EnrolledAt: base.Now(),
	}
	created, err := enrollments.CreateIfAbsent(dbc, row)
	if err != nil {
		return domainagg.EnrollResult{}, err
	}
	if created {
		return domainagg.EnrollResult{Enrollment: row, Created: true}, nil
	}
	existing, err := enrollments.GetByStudentAndCourse(dbc, studentID, courseID)
	if err != nil {
		return domainagg.EnrollResult{}, err
	}
	if existing == nil {
		return domainagg.EnrollResult{}, RetryableError("enrollment conflict without a visible row")
	}
	base.Log.Debug("duplicate enrollment recovered",
		"op", op,
		"code", string(domainagg.CodeAlreadyEnrolled),
		"course_id", courseID.String(),
		"student_id", studentID.String(),
	)
	return domainagg.EnrollResult{Enrollment: existing, Created: false}, nil
}
