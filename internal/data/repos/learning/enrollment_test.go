package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
)

func TestEnrollmentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEnrollmentRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, uuid.New(), 0, true)
	student := uuid.New()

	first := &types.Enrollment{StudentID: student, CourseID: course.ID}
	created, err := repo.CreateIfAbsent(dbc, first)
	if err != nil || !created {
		t.Fatalf("CreateIfAbsent first: err=%v created=%v", err, created)
	}
	dup := &types.Enrollment{StudentID: student, CourseID: course.ID}
	created, err = repo.CreateIfAbsent(dbc, dup)
	if err != nil || created {
		t.Fatalf("CreateIfAbsent duplicate: err=%v created=%v", err, created)
	}
	if n, _ := repo.CountByCourseID(dbc, course.ID); n != 1 {
		t.Fatalf("CountByCourseID: want=1 got=%d", n)
	}

	got, err := repo.GetByStudentAndCourse(dbc, student, course.ID)
	if err != nil || got == nil || got.ID != first.ID || got.Progress != 0 {
		t.Fatalf("GetByStudentAndCourse: err=%v got=%v", err, got)
	}
	if got.EnrolledAt.IsZero() || time.Since(got.EnrolledAt) > time.Minute {
		t.Fatalf("EnrolledAt not stamped: %v", got.EnrolledAt)
	}
	if none, err := repo.GetByStudentAndCourse(dbc, uuid.New(), course.ID); err != nil || none != nil {
		t.Fatalf("GetByStudentAndCourse missing: err=%v got=%v", err, none)
	}

	if err := repo.UpdateProgress(dbc, first.ID, 66); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	list, err := repo.ListByStudentID(dbc, student)
	if err != nil || len(list) != 1 || list[0].Progress != 66 || list[0].Course == nil || list[0].Course.ID != course.ID {
		t.Fatalf("ListByStudentID: err=%v list=%v", err, list)
	}
	if rows, err := repo.ListByCourseID(dbc, course.ID); err != nil || len(rows) != 1 {
		t.Fatalf("ListByCourseID: err=%v len=%d", err, len(rows))
	}

	if err := repo.FullDeleteByCourseID(dbc, course.ID); err != nil {
		t.Fatalf("FullDeleteByCourseID: %v", err)
	}
	if n, _ := repo.CountByCourseID(dbc, course.ID); n != 0 {
		t.Fatalf("after FullDeleteByCourseID: n=%d", n)
	}
}
