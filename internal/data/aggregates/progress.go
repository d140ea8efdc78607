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

type ProgressAggregateDeps struct {
	Base BaseDeps

	Courses     repos.CourseRepo
	Sections    repos.SectionRepo
	Items       repos.ContentItemRepo
	Enrollments repos.EnrollmentRepo
	Consumption repos.ConsumptionRepo
}

type progressAggregate struct {
	deps   ProgressAggregateDeps
	engine progressEngine
}

func NewProgressAggregate(deps ProgressAggregateDeps) domainagg.ProgressAggregate {
	deps.Base = deps.Base.withDefaults()
	return &progressAggregate{
		deps: deps,
		engine: progressEngine{
			items:       deps.Items,
			consumption: deps.Consumption,
			enrollments: deps.Enrollments,
		},
	}
}

func (a *progressAggregate) Contract() domainagg.Contract {
	return domainagg.ProgressAggregateContract
}

func (a *progressAggregate) Recompute(ctx context.Context, studentID, courseID uuid.UUID) (domainagg.ProgressSnapshot, error) {
	const op = "Learning.Progress.Recompute"
	var out domainagg.ProgressSnapshot
	if studentID == uuid.Nil || courseID == uuid.Nil {
		return out, domainagg.NewFieldError(op, "invalid input", map[string]string{"enrollment": "student_id and course_id are required"})
	}
	if !a.engine.ready() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		e, err := a.deps.Enrollments.GetByStudentAndCourse(dbc, studentID, courseID)
		if err != nil {
			return err
		}
		if e == nil {
			return domainagg.NewError(domainagg.CodeNotEnrolled, op, "student is not enrolled in course", nil)
		}
		out, err = a.engine.recompute(dbc, e)
		return err
	})
	return out, err
}

func (a *progressAggregate) MarkConsumed(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (domainagg.ConsumeResult, error) {
	const op = "Learning.Progress.MarkConsumed"
	var out domainagg.ConsumeResult
	if viewer.IsAnonymous() {
		return out, domainagg.NewFieldError(op, "invalid input", map[string]string{"student_id": "required"})
	}
	if itemID == uuid.Nil {
		return out, domainagg.NewFieldError(op, "invalid input", map[string]string{"item_id": "required"})
	}
	if a.deps.Courses == nil || a.deps.Sections == nil || !a.engine.ready() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		it, err := a.deps.Items.GetByID(dbc, itemID)
		if err != nil {
			return err
		}
		if it == nil {
			return notFound(op, "content item")
		}
		s, err := a.deps.Sections.GetByID(dbc, it.SectionID)
		if err != nil {
			return err
		}
		if s == nil {
			return notFound(op, "content item")
		}
		// A shared lock orders this commit against structure mutations of the course.
		c, err := a.deps.Courses.LockByID(dbc, s.CourseID, repolearning.LockForShare)
		if err != nil {
			return err
		}
		if c == nil {
			return notFound(op, "course")
		}
		if !learning.CanView(viewer, c) {
			return notAvailable(op)
		}
		if it, err = a.deps.Items.GetByID(dbc, itemID); err != nil {
			return err
		}
		if it == nil {
			return notFound(op, "content item")
		}
		e, err := a.deps.Enrollments.GetByStudentAndCourse(dbc, viewer.UserID, c.ID)
		if err != nil {
			return err
		}
		if e == nil {
			return domainagg.NewError(domainagg.CodeNotEnrolled, op, "student is not enrolled in course", nil)
		}
		first, err := a.deps.Consumption.MarkCompleted(dbc, viewer.UserID, c.ID, it.ID, a.deps.Base.Now())
		if err != nil {
			return err
		}
		snap, err := a.engine.recompute(dbc, e)
		if err != nil {
			return err
		}
		out = domainagg.ConsumeResult{ItemID: it.ID, Snapshot: snap, FirstTime: first}
		return nil
	})
	return out, err
}
