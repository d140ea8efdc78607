package aggregates

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/data/repos"
	repotest "github.com/yungbote/courseflow-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type learningHarness struct {
	db        *gorm.DB
	repos     repos.Set
	structure domainagg.CourseStructureAggregate
	enroll    domainagg.EnrollmentAggregate
	progress  domainagg.ProgressAggregate
	payments  domainagg.PaymentAggregate
}

func newLearningHarness(t *testing.T, db *gorm.DB) *learningHarness {
	t.Helper()
	set := repos.NewSet(db, repotest.Logger(t))
	base := BaseDeps{DB: db, Log: repotest.Logger(t)}
	return &learningHarness{
		db:    db,
		repos: set,
		structure: NewCourseStructureAggregate(CourseStructureAggregateDeps{
			Base:        base,
			Courses:     set.Course,
			Sections:    set.Section,
			Items:       set.ContentItem,
			Enrollments: set.Enrollment,
			Consumption: set.Consumption,
			Payments:    set.Payment,
		}),
		enroll: NewEnrollmentAggregate(EnrollmentAggregateDeps{
			Base:        base,
			Courses:     set.Course,
			Enrollments: set.Enrollment,
			Payments:    set.Payment,
		}),
		progress: NewProgressAggregate(ProgressAggregateDeps{
			Base:        base,
			Courses:     set.Course,
			Sections:    set.Section,
			Items:       set.ContentItem,
			Enrollments: set.Enrollment,
			Consumption: set.Consumption,
		}),
		payments: NewPaymentAggregate(PaymentAggregateDeps{
			Base:        base,
			Courses:     set.Course,
			Enrollments: set.Enrollment,
			Payments:    set.Payment,
		}),
	}
}

func staff() user.Viewer   { return user.Viewer{UserID: uuid.New(), Role: user.RoleStaff} }
func student() user.Viewer { return user.Viewer{UserID: uuid.New(), Role: user.RoleStudent} }

func textData(t *testing.T, body string) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"text": body})
	if err != nil {
		t.Fatalf("marshal text: %v", err)
	}
	return datatypes.JSON(raw)
}

func (h *learningHarness) course(t *testing.T, author user.Viewer, price int64, published bool) *learning.Course {
	t.Helper()
	ctx := context.Background()
	c, err := h.structure.CreateCourse(ctx, domainagg.CreateCourseInput{Viewer: author, Title: "Course", Price: price})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if published {
		if c, err = h.structure.SetPublished(ctx, domainagg.SetPublishedInput{Viewer: author, CourseID: c.ID, Published: true}); err != nil {
			t.Fatalf("SetPublished: %v", err)
		}
	}
	return c
}

func (h *learningHarness) section(t *testing.T, author user.Viewer, courseID uuid.UUID, title string) *learning.Section {
	t.Helper()
	s, err := h.structure.AddSection(context.Background(), domainagg.AddSectionInput{Viewer: author, CourseID: courseID, Title: title})
	if err != nil {
		t.Fatalf("AddSection %s: %v", title, err)
	}
	return s
}

func (h *learningHarness) item(t *testing.T, author user.Viewer, sectionID uuid.UUID, title string) *learning.ContentItem {
	t.Helper()
	it, err := h.structure.AddContentItem(context.Background(), domainagg.AddContentItemInput{
		Viewer:      author,
		SectionID:   sectionID,
		Title:       title,
		ContentType: learning.ContentText,
		ContentData: textData(t, title),
	})
	if err != nil {
		t.Fatalf("AddContentItem %s: %v", title, err)
	}
	return it
}

func (h *learningHarness) sectionOrder(t *testing.T, courseID uuid.UUID) []uuid.UUID {
	t.Helper()
	rows, err := h.repos.Section.ListByCourseID(dbctx.Context{Ctx: context.Background()}, courseID)
	if err != nil {
		t.Fatalf("ListByCourseID: %v", err)
	}
	out := make([]uuid.UUID, 0, len(rows))
	for i, s := range rows {
		if s.OrderIndex != i {
			t.Fatalf("section %s order_index: want=%d got=%d", s.ID, i, s.OrderIndex)
		}
		out = append(out, s.ID)
	}
	return out
}

func (h *learningHarness) itemOrder(t *testing.T, sectionID uuid.UUID) []uuid.UUID {
	t.Helper()
	rows, err := h.repos.ContentItem.ListBySectionID(dbctx.Context{Ctx: context.Background()}, sectionID)
	if err != nil {
		t.Fatalf("ListBySectionID: %v", err)
	}
	out := make([]uuid.UUID, 0, len(rows))
	for i, it := range rows {
		if it.OrderIndex != i {
			t.Fatalf("item %s order_index: want=%d got=%d", it.ID, i, it.OrderIndex)
		}
		out = append(out, it.ID)
	}
	return out
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCourseStructureKeepsOrderDense(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	c := h.course(t, author, 0, false)

	s1 := h.section(t, author, c.ID, "one")
	s2 := h.section(t, author, c.ID, "two")
	s3 := h.section(t, author, c.ID, "three")
	if got := h.sectionOrder(t, c.ID); !sameIDs(got, []uuid.UUID{s1.ID, s2.ID, s3.ID}) {
		t.Fatalf("append order: %v", got)
	}

	a := h.item(t, author, s1.ID, "a")
	b := h.item(t, author, s1.ID, "b")
	d := h.item(t, author, s1.ID, "d")

	if _, err := h.structure.ReorderContentItems(ctx, domainagg.ReorderInput{Viewer: author, ScopeID: s1.ID, OrderedIDs: []uuid.UUID{d.ID, a.ID, b.ID}}); err != nil {
		t.Fatalf("ReorderContentItems: %v", err)
	}
	if got := h.itemOrder(t, s1.ID); !sameIDs(got, []uuid.UUID{d.ID, a.ID, b.ID}) {
		t.Fatalf("item reorder: %v", got)
	}

	if _, err := h.structure.DeleteContentItem(ctx, author, a.ID); err != nil {
		t.Fatalf("DeleteContentItem: %v", err)
	}
	if got := h.itemOrder(t, s1.ID); !sameIDs(got, []uuid.UUID{d.ID, b.ID}) {
		t.Fatalf("after item delete: %v", got)
	}

	res, err := h.structure.DeleteSection(ctx, author, s2.ID)
	if err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	if res.CourseID != c.ID || len(res.RemovedIDs) != 1 {
		t.Fatalf("delete result: %+v", res)
	}
	if got := h.sectionOrder(t, c.ID); !sameIDs(got, []uuid.UUID{s1.ID, s3.ID}) {
		t.Fatalf("after section delete: %v", got)
	}

	s4 := h.section(t, author, c.ID, "four")
	if _, err := h.structure.ReorderSections(ctx, domainagg.ReorderInput{Viewer: author, ScopeID: c.ID, OrderedIDs: []uuid.UUID{s4.ID, s3.ID, s1.ID}}); err != nil {
		t.Fatalf("ReorderSections: %v", err)
	}
	if got := h.sectionOrder(t, c.ID); !sameIDs(got, []uuid.UUID{s4.ID, s3.ID, s1.ID}) {
		t.Fatalf("section reorder: %v", got)
	}
}

func TestReorderRejectsPartialPermutation(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	c := h.course(t, author, 0, false)
	s1 := h.section(t, author, c.ID, "one")
	s2 := h.section(t, author, c.ID, "two")

	cases := [][]uuid.UUID{
		{s2.ID},
		{s2.ID, s2.ID},
		{s2.ID, uuid.New()},
	}
	for _, ids := range cases {
		_, err := h.structure.ReorderSections(ctx, domainagg.ReorderInput{Viewer: author, ScopeID: c.ID, OrderedIDs: ids})
		if !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("ids=%v: expected validation, got=%v", ids, err)
		}
		if domainagg.FieldsOf(err)["ordered_ids"] == "" {
			t.Fatalf("ids=%v: missing ordered_ids field: %v", ids, domainagg.FieldsOf(err))
		}
	}
	if got := h.sectionOrder(t, c.ID); !sameIDs(got, []uuid.UUID{s1.ID, s2.ID}) {
		t.Fatalf("rejected reorder changed state: %v", got)
	}
}

func TestAddContentItemValidatesContentData(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	c := h.course(t, author, 0, false)
	s := h.section(t, author, c.ID, "one")

	_, err := h.structure.AddContentItem(ctx, domainagg.AddContentItemInput{
		Viewer:      author,
		SectionID:   s.ID,
		Title:       "clip",
		ContentType: learning.ContentVideo,
		ContentData: datatypes.JSON(`{"text":"not a video"}`),
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation, got=%v", err)
	}
	if len(domainagg.FieldsOf(err)) == 0 {
		t.Fatalf("expected field errors, got none")
	}

	_, err = h.structure.AddContentItem(ctx, domainagg.AddContentItemInput{Viewer: author, SectionID: s.ID, ContentType: learning.ContentText, ContentData: textData(t, "x")})
	if domainagg.FieldsOf(err)["title"] != "required" {
		t.Fatalf("expected title required, got=%v", err)
	}
	if got := h.itemOrder(t, s.ID); len(got) != 0 {
		t.Fatalf("invalid items were stored: %v", got)
	}
}

func TestProgressExampleScenario(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	learner := student()

	c := h.course(t, author, 0, true)
	s1 := h.section(t, author, c.ID, "S1")
	s2 := h.section(t, author, c.ID, "S2")
	a := h.item(t, author, s1.ID, "A")
	b := h.item(t, author, s1.ID, "B")
	d := h.item(t, author, s2.ID, "D")

	enr, err := h.enroll.Enroll(ctx, learner, c.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if !enr.Created || enr.Enrollment.Progress != 0 {
		t.Fatalf("fresh enrollment: %+v", enr)
	}

	res, err := h.progress.MarkConsumed(ctx, learner, a.ID)
	if err != nil {
		t.Fatalf("MarkConsumed A: %v", err)
	}
	if res.Snapshot.Progress != 33 || !res.FirstTime {
		t.Fatalf("after A: %+v", res)
	}
	if _, err := h.progress.MarkConsumed(ctx, learner, b.ID); err != nil {
		t.Fatalf("MarkConsumed B: %v", err)
	}
	res, err = h.progress.MarkConsumed(ctx, learner, d.ID)
	if err != nil {
		t.Fatalf("MarkConsumed D: %v", err)
	}
	if res.Snapshot.Progress != 100 || !res.Snapshot.Completed() {
		t.Fatalf("after D: %+v", res.Snapshot)
	}

	change, err := h.structure.DeleteContentItem(ctx, author, d.ID)
	if err != nil {
		t.Fatalf("DeleteContentItem D: %v", err)
	}
	if len(change.Recomputed) != 1 || change.Recomputed[0].Progress != 100 {
		t.Fatalf("after deleting D: %+v", change.Recomputed)
	}

	h.item(t, author, s2.ID, "E")
	got, err := h.repos.Enrollment.GetByStudentAndCourse(dbctx.Context{Ctx: ctx}, learner.UserID, c.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByStudentAndCourse: err=%v", err)
	}
	if got.Progress != 100 {
		t.Fatalf("adding E must not recompute: progress=%d", got.Progress)
	}

	res, err = h.progress.MarkConsumed(ctx, learner, a.ID)
	if err != nil {
		t.Fatalf("MarkConsumed A again: %v", err)
	}
	if res.FirstTime || res.Snapshot.Progress != 66 {
		t.Fatalf("after re-consuming A: %+v", res)
	}
}

func TestRecomputeIsIdempotentAndEmptyCourseIsZero(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	learner := student()
	c := h.course(t, author, 0, true)

	if _, err := h.enroll.Enroll(ctx, learner, c.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	for i := 0; i < 2; i++ {
		snap, err := h.progress.Recompute(ctx, learner.UserID, c.ID)
		if err != nil {
			t.Fatalf("Recompute #%d: %v", i, err)
		}
		if snap.Progress != 0 || snap.Previous != 0 {
			t.Fatalf("empty course snapshot #%d: %+v", i, snap)
		}
	}

	_, err := h.progress.Recompute(ctx, uuid.New(), c.ID)
	if !domainagg.IsCode(err, domainagg.CodeNotEnrolled) {
		t.Fatalf("expected not_enrolled, got=%v", err)
	}
}

func TestMarkConsumedRequiresEnrollment(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	c := h.course(t, author, 0, true)
	s := h.section(t, author, c.ID, "one")
	it := h.item(t, author, s.ID, "a")

	_, err := h.progress.MarkConsumed(ctx, student(), it.ID)
	if !domainagg.IsCode(err, domainagg.CodeNotEnrolled) {
		t.Fatalf("expected not_enrolled, got=%v", err)
	}
	_, err = h.progress.MarkConsumed(ctx, student(), uuid.New())
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got=%v", err)
	}
}

func TestPublicationGate(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	c := h.course(t, author, 0, false)
	s := h.section(t, author, c.ID, "draft")

	_, err := h.enroll.Enroll(ctx, student(), c.ID)
	if !domainagg.IsCode(err, domainagg.CodeNotAvailable) {
		t.Fatalf("student enroll in draft: expected not_available, got=%v", err)
	}
	_, err = h.structure.AddSection(ctx, domainagg.AddSectionInput{Viewer: student(), CourseID: c.ID, Title: "x"})
	if !domainagg.IsCode(err, domainagg.CodeNotAvailable) {
		t.Fatalf("student edit of draft: expected not_available, got=%v", err)
	}
	_, err = h.structure.RenameSection(ctx, domainagg.RenameSectionInput{Viewer: staff(), SectionID: s.ID, Title: "x"})
	if !domainagg.IsCode(err, domainagg.CodeNotAvailable) {
		t.Fatalf("other staff edit of draft: expected not_available, got=%v", err)
	}
	if _, err := h.structure.RenameSection(ctx, domainagg.RenameSectionInput{Viewer: author, SectionID: s.ID, Title: "renamed"}); err != nil {
		t.Fatalf("author rename: %v", err)
	}

	if _, err := h.structure.SetPublished(ctx, domainagg.SetPublishedInput{Viewer: author, CourseID: c.ID, Published: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := h.enroll.Enroll(ctx, student(), c.ID); err != nil {
		t.Fatalf("enroll after publish: %v", err)
	}
	_, err = h.structure.RenameSection(ctx, domainagg.RenameSectionInput{Viewer: staff(), SectionID: s.ID, Title: "x"})
	if !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("other staff edit of published course: expected forbidden, got=%v", err)
	}
	_, err = h.structure.AddSection(ctx, domainagg.AddSectionInput{Viewer: student(), CourseID: c.ID, Title: "x"})
	if !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("student edit of published course: expected forbidden, got=%v", err)
	}
}

func TestEnrollPaidCourseNeedsPayment(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	learner := student()
	c := h.course(t, author, 150000, true)

	_, err := h.enroll.Enroll(ctx, learner, c.ID)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed, got=%v", err)
	}

	p, err := h.payments.OpenCheckout(ctx, domainagg.OpenCheckoutInput{
		Viewer:     learner,
		CourseID:   c.ID,
		Provider:   "midtrans",
		ExternalID: "order-1",
		Currency:   "idr",
	})
	if err != nil {
		t.Fatalf("OpenCheckout: %v", err)
	}
	if p.Amount != 150000 || p.Status != learning.PaymentPending || p.Currency != "IDR" {
		t.Fatalf("checkout row: %+v", p)
	}

	_, err = h.enroll.OnPaymentCompleted(ctx, domainagg.PaymentCompletedInput{StudentID: learner.UserID, CourseID: c.ID, PaymentID: p.ID})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("pending payment: expected precondition_failed, got=%v", err)
	}

	applied, err := h.payments.ApplyGatewayStatus(ctx, domainagg.GatewayStatusInput{ExternalID: "order-1", Status: learning.PaymentCompleted, GatewayRef: "tx-1"})
	if err != nil {
		t.Fatalf("ApplyGatewayStatus: %v", err)
	}
	if !applied.Changed || applied.Payment.Status != learning.PaymentCompleted || applied.Payment.CompletedAt == nil {
		t.Fatalf("applied: %+v", applied)
	}
	if applied.Enrollment == nil || !applied.Enrollment.Created {
		t.Fatalf("completed payment should enroll in the same write: %+v", applied.Enrollment)
	}
	if pid := applied.Enrollment.Enrollment.PaymentID; pid == nil || *pid != p.ID {
		t.Fatalf("enrollment payment id: %+v", applied.Enrollment.Enrollment)
	}
	stale, err := h.payments.ApplyGatewayStatus(ctx, domainagg.GatewayStatusInput{ExternalID: "order-1", Status: learning.PaymentFailed})
	if err != nil || stale.Changed {
		t.Fatalf("stale notification: err=%v changed=%v", err, stale.Changed)
	}
	if stale.Enrollment == nil || stale.Enrollment.Created || stale.Enrollment.Enrollment.ID != applied.Enrollment.Enrollment.ID {
		t.Fatalf("stale replay should return the existing enrollment: %+v", stale.Enrollment)
	}

	res, err := h.enroll.OnPaymentCompleted(ctx, domainagg.PaymentCompletedInput{StudentID: learner.UserID, CourseID: c.ID, PaymentID: p.ID})
	if err != nil {
		t.Fatalf("OnPaymentCompleted: %v", err)
	}
	if res.Created || res.Enrollment.ID != applied.Enrollment.Enrollment.ID {
		t.Fatalf("OnPaymentCompleted should recover the existing row: created=%v", res.Created)
	}
	if n, _ := h.repos.Enrollment.CountByCourseID(dbctx.Context{Ctx: ctx}, c.ID); n != 1 {
		t.Fatalf("enrollments: want=1 got=%d", n)
	}

	_, err = h.payments.OpenCheckout(ctx, domainagg.OpenCheckoutInput{Viewer: learner, CourseID: c.ID, Provider: "midtrans", ExternalID: "order-2", Currency: "IDR"})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("checkout while enrolled: expected precondition_failed, got=%v", err)
	}
}

func TestEnrollIsIdempotentUnderConcurrency(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	learner := student()
	c := h.course(t, author, 0, true)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[uuid.UUID]bool{}
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.enroll.Enroll(ctx, learner, c.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.Created {
				created++
			}
			ids[res.Enrollment.ID] = true
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("concurrent enroll errors: %v", errs)
	}
	if created != 1 || len(ids) != 1 {
		t.Fatalf("want exactly one enrollment, created=%d ids=%d", created, len(ids))
	}
	n, err := h.repos.Enrollment.CountByCourseID(dbctx.Context{Ctx: ctx}, c.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountByCourseID: n=%d err=%v", n, err)
	}
}

func TestEnrollIsIdempotentOnPostgres(t *testing.T) {
	db := repotest.PostgresDB(t)
	h := newLearningHarness(t, db)
	ctx := context.Background()
	author := staff()
	learner := student()
	c := h.course(t, author, 0, true)
	t.Cleanup(func() {
		_ = h.structure.DeleteCourse(ctx, user.Viewer{UserID: uuid.New(), Role: user.RoleAdmin}, c.ID)
	})

	var wg sync.WaitGroup
	results := make(chan domainagg.EnrollResult, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.enroll.Enroll(ctx, learner, c.ID)
			if err != nil {
				t.Errorf("Enroll: %v", err)
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for res := range results {
		if res.Created {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("want exactly one created enrollment, got=%d", created)
	}
}

func TestDeleteCourseCascades(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	learner := student()
	c := h.course(t, author, 0, true)
	s := h.section(t, author, c.ID, "one")
	it := h.item(t, author, s.ID, "a")
	if _, err := h.enroll.Enroll(ctx, learner, c.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := h.progress.MarkConsumed(ctx, learner, it.ID); err != nil {
		t.Fatalf("MarkConsumed: %v", err)
	}

	if err := h.structure.DeleteCourse(ctx, author, c.ID); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("staff delete: expected forbidden, got=%v", err)
	}
	admin := user.Viewer{UserID: uuid.New(), Role: user.RoleAdmin}
	if err := h.structure.DeleteCourse(ctx, admin, c.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if got, _ := h.repos.Course.GetByID(dbc, c.ID); got != nil {
		t.Fatalf("course survived")
	}
	if n, _ := h.repos.ContentItem.CountByCourseID(dbc, c.ID); n != 0 {
		t.Fatalf("items survived: %d", n)
	}
	if n, _ := h.repos.Enrollment.CountByCourseID(dbc, c.ID); n != 0 {
		t.Fatalf("enrollments survived: %d", n)
	}
	if n, _ := h.repos.Consumption.CountCompletedInCourse(dbc, learner.UserID, c.ID); n != 0 {
		t.Fatalf("consumption survived: %d", n)
	}
}

func TestUpdateContentItemRevalidatesOnTypeChange(t *testing.T) {
	h := newLearningHarness(t, repotest.DB(t))
	ctx := context.Background()
	author := staff()
	c := h.course(t, author, 0, false)
	s := h.section(t, author, c.ID, "one")
	it := h.item(t, author, s.ID, "intro")

	video := learning.ContentVideo
	_, err := h.structure.UpdateContentItem(ctx, domainagg.UpdateContentItemInput{Viewer: author, ItemID: it.ID, ContentType: &video})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("type-only change to video: expected validation, got=%v", err)
	}

	unknown := learning.ContentType("audio")
	_, err = h.structure.UpdateContentItem(ctx, domainagg.UpdateContentItemInput{Viewer: author, ItemID: it.ID, ContentType: &unknown, ContentData: datatypes.JSON(`{"url":"https://cdn.example.com/a.mp3"}`)})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("unknown type: expected validation, got=%v", err)
	}

	empty := "   "
	_, err = h.structure.UpdateContentItem(ctx, domainagg.UpdateContentItemInput{Viewer: author, ItemID: it.ID, Title: &empty})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("empty title: expected validation, got=%v", err)
	}

	unchanged, err := h.repos.ContentItem.GetByID(dbctx.Context{Ctx: ctx}, it.ID)
	if err != nil || unchanged == nil || unchanged.ContentType != learning.ContentText || unchanged.Title != "intro" {
		t.Fatalf("rejected updates must not apply: err=%v item=%+v", err, unchanged)
	}

	renamed := "welcome"
	got, err := h.structure.UpdateContentItem(ctx, domainagg.UpdateContentItemInput{Viewer: author, ItemID: it.ID, Title: &renamed})
	if err != nil {
		t.Fatalf("title-only update: %v", err)
	}
	var text map[string]string
	if err := json.Unmarshal(got.ContentData, &text); err != nil || text["text"] != "intro" || got.ContentType != learning.ContentText || got.Title != "welcome" {
		t.Fatalf("title-only update changed data: err=%v type=%s data=%s title=%s", err, got.ContentType, got.ContentData, got.Title)
	}

	got, err = h.structure.UpdateContentItem(ctx, domainagg.UpdateContentItemInput{Viewer: author, ItemID: it.ID, ContentType: &video, ContentData: datatypes.JSON(`{"url":"https://cdn.example.com/intro.mp4"}`)})
	if err != nil {
		t.Fatalf("type change with url: %v", err)
	}
	var vid learning.VideoContent
	if err := json.Unmarshal(got.ContentData, &vid); err != nil || got.ContentType != learning.ContentVideo || vid.URL != "https://cdn.example.com/intro.mp4" {
		t.Fatalf("video update: err=%v type=%s data=%s", err, got.ContentType, got.ContentData)
	}
}
