package aggregates

import (
	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/data/repos"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
)

// progressEngine re-derives enrollment progress from consumption records and
// the structure visible inside the current transaction.
type progressEngine struct {
	items       repos.ContentItemRepo
	consumption repos.ConsumptionRepo
	enrollments repos.EnrollmentRepo
}

func (p progressEngine) ready() bool {
	return p.items != nil && p.consumption != nil && p.enrollments != nil
}

func (p progressEngine) recompute(dbc dbctx.Context, e *learning.Enrollment) (domainagg.ProgressSnapshot, error) {
	total, err := p.items.CountByCourseID(dbc, e.CourseID)
	if err != nil {
		return domainagg.ProgressSnapshot{}, err
	}
	consumed, err := p.consumption.CountCompletedInCourse(dbc, e.StudentID, e.CourseID)
	if err != nil {
		return domainagg.ProgressSnapshot{}, err
	}
	next := learning.ComputeProgress(total, consumed)
	snap := domainagg.ProgressSnapshot{
		EnrollmentID: e.ID,
		StudentID:    e.StudentID,
		CourseID:     e.CourseID,
		Previous:     e.Progress,
		Progress:     next,
	}
	if next != e.Progress {
		if err := p.enrollments.UpdateProgress(dbc, e.ID, next); err != nil {
			return domainagg.ProgressSnapshot{}, err
		}
		e.Progress = next
	}
	return snap, nil
}

// recomputeCourse re-derives every enrollment of the course. The item total is
// the same for all of them, so it is read once.
func (p progressEngine) recomputeCourse(dbc dbctx.Context, courseID uuid.UUID) ([]domainagg.ProgressSnapshot, error) {
	enrollments, err := p.enrollments.ListByCourseID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return nil, nil
	}
	total, err := p.items.CountByCourseID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]domainagg.ProgressSnapshot, 0, len(enrollments))
	for _, e := range enrollments {
		consumed, err := p.consumption.CountCompletedInCourse(dbc, e.StudentID, courseID)
		if err != nil {
			return nil, err
		}
		next := learning.ComputeProgress(total, consumed)
		if next != e.Progress {
			if err := p.enrollments.UpdateProgress(dbc, e.ID, next); err != nil {
				return nil, err
			}
		}
		out = append(out, domainagg.ProgressSnapshot{
			EnrollmentID: e.ID,
			StudentID:    e.StudentID,
			CourseID:     courseID,
			Previous:     e.Progress,
			Progress:     next,
		})
	}
	return out, nil
}
