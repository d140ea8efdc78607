package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/data/repos"
	repolearning "github.com/yungbote/courseflow-backend/internal/data/repos/learning"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

type CourseStructureAggregateDeps struct {
	Base BaseDeps

	Courses     repos.CourseRepo
	Sections    repos.SectionRepo
	Items       repos.ContentItemRepo
	Enrollments repos.EnrollmentRepo
	Consumption repos.ConsumptionRepo
	Payments    repos.PaymentRepo
}

type courseStructureAggregate struct {
	deps   CourseStructureAggregateDeps
	engine progressEngine
}

func NewCourseStructureAggregate(deps CourseStructureAggregateDeps) domainagg.CourseStructureAggregate {
	deps.Base = deps.Base.withDefaults()
	return &courseStructureAggregate{
		deps: deps,
		engine: progressEngine{
			items:       deps.Items,
			consumption: deps.Consumption,
			enrollments: deps.Enrollments,
		},
	}
}

func (a *courseStructureAggregate) Contract() domainagg.Contract {
	return domainagg.CourseStructureAggregateContract
}

func (a *courseStructureAggregate) configured() bool {
	return a.deps.Courses != nil && a.deps.Sections != nil && a.engine.ready()
}

func (a *courseStructureAggregate) CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (*learning.Course, error) {
	const op = "Learning.CourseStructure.CreateCourse"
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return nil, err
	}
	if !in.Viewer.CanAuthorCourses() {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "only staff and admins create courses", nil)
	}
	if a.deps.Courses == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course repo not configured", nil)
	}

	var out *learning.Course
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Courses.Create(dbc, &learning.Course{
			AuthorID:    in.Viewer.UserID,
			Title:       in.Title,
			Description: in.Description,
			Price:       in.Price,
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) UpdateCourse(ctx context.Context, in domainagg.UpdateCourseInput) (*learning.Course, error) {
	const op = "Learning.CourseStructure.UpdateCourse"
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, domainagg.NewFieldError(op, "invalid input", map[string]string{"title": "required"})
		}
		in.Title = &t
	}
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return nil, err
	}
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out *learning.Course
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.lockCourseForAuthor(dbc, op, in.Viewer, in.CourseID); err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = *in.Title
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		// Existing enrollments are never touched by a price change.
		if in.Price != nil {
			updates["price"] = *in.Price
		}
		if len(updates) > 0 {
			updates["updated_at"] = a.deps.Base.Now()
			if err := a.deps.Courses.UpdateFields(dbc, in.CourseID, updates); err != nil {
				return err
			}
		}
		c, err := a.deps.Courses.GetByID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) SetPublished(ctx context.Context, in domainagg.SetPublishedInput) (*learning.Course, error) {
	const op = "Learning.CourseStructure.SetPublished"
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out *learning.Course
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.lockCourseForAuthor(dbc, op, in.Viewer, in.CourseID)
		if err != nil {
			return err
		}
		if c.IsPublished != in.Published {
			now := a.deps.Base.Now()
			updates := map[string]interface{}{
				"is_published": in.Published,
				"updated_at":   now,
			}
			if in.Published {
				updates["published_at"] = now
			} else {
				updates["published_at"] = nil
			}
			if err := a.deps.Courses.UpdateFields(dbc, c.ID, updates); err != nil {
				return err
			}
		}
		c, err = a.deps.Courses.GetByID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) DeleteCourse(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) error {
	const op = "Learning.CourseStructure.DeleteCourse"
	if !viewer.IsAdmin() {
		return domainagg.NewError(domainagg.CodeForbidden, op, "only admins delete courses", nil)
	}
	if !a.configured() || a.deps.Payments == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.lockCourseForAuthor(dbc, op, viewer, courseID); err != nil {
			return err
		}
		sections, err := a.deps.Sections.ListByCourseID(dbc, courseID)
		if err != nil {
			return err
		}
		sectionIDs := make([]uuid.UUID, 0, len(sections))
		for _, s := range sections {
			sectionIDs = append(sectionIDs, s.ID)
		}
		if err := a.deps.Consumption.FullDeleteByCourseID(dbc, courseID); err != nil {
			return err
		}
		if err := a.deps.Items.FullDeleteBySectionIDs(dbc, sectionIDs); err != nil {
			return err
		}
		if err := a.deps.Sections.FullDeleteByCourseID(dbc, courseID); err != nil {
			return err
		}
		if err := a.deps.Enrollments.FullDeleteByCourseID(dbc, courseID); err != nil {
			return err
		}
		if err := a.deps.Payments.FullDeleteByCourseID(dbc, courseID); err != nil {
			return err
		}
		return a.deps.Courses.FullDeleteByID(dbc, courseID)
	})
}

func (a *courseStructureAggregate) AddSection(ctx context.Context, in domainagg.AddSectionInput) (*learning.Section, error) {
	const op = "Learning.CourseStructure.AddSection"
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return nil, err
	}
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out *learning.Section
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.lockCourseForAuthor(dbc, op, in.Viewer, in.CourseID); err != nil {
			return err
		}
		n, err := a.deps.Sections.CountByCourseID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		s, err := a.deps.Sections.Create(dbc, &learning.Section{
			CourseID:   in.CourseID,
			Title:      in.Title,
			OrderIndex: n,
		})
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) RenameSection(ctx context.Context, in domainagg.RenameSectionInput) (*learning.Section, error) {
	const op = "Learning.CourseStructure.RenameSection"
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return nil, err
	}
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out *learning.Section
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, _, err := a.lockSectionForAuthor(dbc, op, in.Viewer, in.SectionID)
		if err != nil {
			return err
		}
		if err := a.deps.Sections.UpdateTitle(dbc, s.ID, in.Title); err != nil {
			return err
		}
		s.Title = in.Title
		out = s
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) DeleteSection(ctx context.Context, viewer user.Viewer, sectionID uuid.UUID) (domainagg.StructureChangeResult, error) {
	const op = "Learning.CourseStructure.DeleteSection"
	var out domainagg.StructureChangeResult
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, c, err := a.lockSectionForAuthor(dbc, op, viewer, sectionID)
		if err != nil {
			return err
		}
		itemIDs, err := a.deps.Items.ListIDsBySectionIDs(dbc, []uuid.UUID{s.ID})
		if err != nil {
			return err
		}
		if err := a.deps.Consumption.FullDeleteByItemIDs(dbc, itemIDs); err != nil {
			return err
		}
		if err := a.deps.Items.FullDeleteBySectionIDs(dbc, []uuid.UUID{s.ID}); err != nil {
			return err
		}
		if err := a.deps.Sections.FullDeleteByIDs(dbc, []uuid.UUID{s.ID}); err != nil {
			return err
		}
		if err := a.compactSections(dbc, c.ID); err != nil {
			return err
		}
		snaps, err := a.engine.recomputeCourse(dbc, c.ID)
		if err != nil {
			return err
		}
		out = domainagg.StructureChangeResult{
			CourseID:   c.ID,
			Recomputed: snaps,
			RemovedIDs: append([]uuid.UUID{s.ID}, itemIDs...),
		}
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) ReorderSections(ctx context.Context, in domainagg.ReorderInput) ([]*learning.Section, error) {
	const op = "Learning.CourseStructure.ReorderSections"
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out []*learning.Section
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.lockCourseForAuthor(dbc, op, in.Viewer, in.ScopeID); err != nil {
			return err
		}
		current, err := a.deps.Sections.ListByCourseID(dbc, in.ScopeID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(current))
		for _, s := range current {
			ids = append(ids, s.ID)
		}
		if fields := RequireExactIDSet(ids, in.OrderedIDs); fields != nil {
			return domainagg.NewFieldError(op, "reorder must be a full permutation of the course's sections", fields)
		}
		if err := a.deps.Sections.Renumber(dbc, in.ScopeID, in.OrderedIDs); err != nil {
			return err
		}
		out, err = a.deps.Sections.ListByCourseID(dbc, in.ScopeID)
		return err
	})
	return out, err
}

func (a *courseStructureAggregate) AddContentItem(ctx context.Context, in domainagg.AddContentItemInput) (*learning.ContentItem, error) {
	const op = "Learning.CourseStructure.AddContentItem"
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return nil, err
	}
	raw, err := canonicalContent(op, in.ContentType, in.ContentData)
	if err != nil {
		return nil, err
	}
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out *learning.ContentItem
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, _, err := a.lockSectionForAuthor(dbc, op, in.Viewer, in.SectionID)
		if err != nil {
			return err
		}
		n, err := a.deps.Items.CountBySectionID(dbc, s.ID)
		if err != nil {
			return err
		}
		it, err := a.deps.Items.Create(dbc, &learning.ContentItem{
			SectionID:   s.ID,
			Title:       in.Title,
			ContentType: in.ContentType,
			ContentData: raw,
			OrderIndex:  n,
		})
		if err != nil {
			return err
		}
		out = it
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) UpdateContentItem(ctx context.Context, in domainagg.UpdateContentItemInput) (*learning.ContentItem, error) {
	const op = "Learning.CourseStructure.UpdateContentItem"
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, domainagg.NewFieldError(op, "invalid input", map[string]string{"title": "required"})
		}
		in.Title = &t
	}
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return nil, err
	}
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out *learning.ContentItem
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		it, err := a.lockItemForAuthor(dbc, op, in.Viewer, in.ItemID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = *in.Title
		}
		if in.ContentType != nil || in.ContentData != nil {
			nextType := it.ContentType
			if in.ContentType != nil {
				nextType = *in.ContentType
			}
			nextData := it.ContentData
			if in.ContentData != nil {
				nextData = in.ContentData
			}
			raw, err := canonicalContent(op, nextType, nextData)
			if err != nil {
				return err
			}
			updates["content_type"] = nextType
			updates["content_data"] = raw
		}
		if len(updates) > 0 {
			if err := a.deps.Items.UpdateFields(dbc, it.ID, updates); err != nil {
				return err
			}
		}
		out, err = a.deps.Items.GetByID(dbc, it.ID)
		return err
	})
	return out, err
}

func (a *courseStructureAggregate) DeleteContentItem(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (domainagg.StructureChangeResult, error) {
	const op = "Learning.CourseStructure.DeleteContentItem"
	var out domainagg.StructureChangeResult
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		it, err := a.lockItemForAuthor(dbc, op, viewer, itemID)
		if err != nil {
			return err
		}
		s, err := a.deps.Sections.GetByID(dbc, it.SectionID)
		if err != nil {
			return err
		}
		if s == nil {
			return InvariantError(fmt.Sprintf("content item %s has no section", it.ID))
		}
		if err := a.deps.Consumption.FullDeleteByItemIDs(dbc, []uuid.UUID{it.ID}); err != nil {
			return err
		}
		if err := a.deps.Items.FullDeleteByIDs(dbc, []uuid.UUID{it.ID}); err != nil {
			return err
		}
		if err := a.compactItems(dbc, s.ID); err != nil {
			return err
		}
		// T changed for every enrollment of the course, not only for students who consumed the item.
		snaps, err := a.engine.recomputeCourse(dbc, s.CourseID)
		if err != nil {
			return err
		}
		out = domainagg.StructureChangeResult{
			CourseID:   s.CourseID,
			Recomputed: snaps,
			RemovedIDs: []uuid.UUID{it.ID},
		}
		return nil
	})
	return out, err
}

func (a *courseStructureAggregate) ReorderContentItems(ctx context.Context, in domainagg.ReorderInput) ([]*learning.ContentItem, error) {
	const op = "Learning.CourseStructure.ReorderContentItems"
	if !a.configured() {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "course structure repos not configured", nil)
	}

	var out []*learning.ContentItem
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, _, err := a.lockSectionForAuthor(dbc, op, in.Viewer, in.ScopeID)
		if err != nil {
			return err
		}
		current, err := a.deps.Items.ListBySectionID(dbc, s.ID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(current))
		for _, it := range current {
			ids = append(ids, it.ID)
		}
		if fields := RequireExactIDSet(ids, in.OrderedIDs); fields != nil {
			return domainagg.NewFieldError(op, "reorder must be a full permutation of the section's items", fields)
		}
		if err := a.deps.Items.Renumber(dbc, s.ID, in.OrderedIDs); err != nil {
			return err
		}
		out, err = a.deps.Items.ListBySectionID(dbc, s.ID)
		return err
	})
	return out, err
}

// lockCourseForAuthor takes the per-course structure lock and checks authorship.
// Viewers who cannot see the course get not_available so drafts do not leak.
func (a *courseStructureAggregate) lockCourseForAuthor(dbc dbctx.Context, op string, viewer user.Viewer, courseID uuid.UUID) (*learning.Course, error) {
	if courseID == uuid.Nil {
		return nil, domainagg.NewFieldError(op, "invalid input", map[string]string{"course_id": "required"})
	}
	c, err := a.deps.Courses.LockByID(dbc, courseID, repolearning.LockForUpdate)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound(op, "course")
	}
	if !learning.CanView(viewer, c) {
		return nil, notAvailable(op)
	}
	if !learning.CanAuthor(viewer, c) {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "only the course author or an admin may change this course", nil)
	}
	return c, nil
}

// lockSectionForAuthor resolves the section's course, locks it, then re-reads the
// section so a concurrent delete that committed before the lock is observed.
func (a *courseStructureAggregate) lockSectionForAuthor(dbc dbctx.Context, op string, viewer user.Viewer, sectionID uuid.UUID) (*learning.Section, *learning.Course, error) {
	if sectionID == uuid.Nil {
		return nil, nil, domainagg.NewFieldError(op, "invalid input", map[string]string{"section_id": "required"})
	}
	s, err := a.deps.Sections.GetByID(dbc, sectionID)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		return nil, nil, notFound(op, "section")
	}
	c, err := a.lockCourseForAuthor(dbc, op, viewer, s.CourseID)
	if err != nil {
		return nil, nil, err
	}
	s, err = a.deps.Sections.GetByID(dbc, sectionID)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		return nil, nil, notFound(op, "section")
	}
	return s, c, nil
}

func (a *courseStructureAggregate) lockItemForAuthor(dbc dbctx.Context, op string, viewer user.Viewer, itemID uuid.UUID) (*learning.ContentItem, error) {
	if itemID == uuid.Nil {
		return nil, domainagg.NewFieldError(op, "invalid input", map[string]string{"item_id": "required"})
	}
	it, err := a.deps.Items.GetByID(dbc, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, notFound(op, "content item")
	}
	if _, _, err := a.lockSectionForAuthor(dbc, op, viewer, it.SectionID); err != nil {
		return nil, err
	}
	it, err = a.deps.Items.GetByID(dbc, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, notFound(op, "content item")
	}
	return it, nil
}

func (a *courseStructureAggregate) compactSections(dbc dbctx.Context, courseID uuid.UUID) error {
	remaining, err := a.deps.Sections.ListByCourseID(dbc, courseID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(remaining))
	for _, s := range remaining {
		ids = append(ids, s.ID)
	}
	return a.deps.Sections.Renumber(dbc, courseID, ids)
}

func (a *courseStructureAggregate) compactItems(dbc dbctx.Context, sectionID uuid.UUID) error {
	remaining, err := a.deps.Items.ListBySectionID(dbc, sectionID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(remaining))
	for _, it := range remaining {
		ids = append(ids, it.ID)
	}
	return a.deps.Items.Renumber(dbc, sectionID, ids)
}

// canonicalContent checks contentData against contentType and returns its canonical JSON.
func canonicalContent(op string, ct learning.ContentType, raw datatypes.JSON) (datatypes.JSON, error) {
	data, err := learning.DecodeContentData(ct, raw)
	if err != nil {
		var fe learning.FieldErrors
		if errors.As(err, &fe) {
			return nil, domainagg.NewFieldError(op, "content data does not match content type", fe)
		}
		return nil, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	out, err := learning.EncodeContentData(data)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	return datatypes.JSON(out), nil
}
