package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"gorm.io/datatypes"
)

var CourseStructureAggregateContract = Contract{
	Name:             "Learning.CourseStructureAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockScope:        LockScopeCourse,
	Notes:            "Owns course/section/item writes; keeps order indexes dense per scope under a course row lock.",
}

// CourseStructureAggregate owns the ordered section/item tree of a course.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeNotAvailable, CodePreconditionFailed, CodeConflict, CodeRetryable, CodeInternal.
type CourseStructureAggregate interface {
	Aggregate

	CreateCourse(ctx context.Context, in CreateCourseInput) (*learning.Course, error)
	UpdateCourse(ctx context.Context, in UpdateCourseInput) (*learning.Course, error)
	SetPublished(ctx context.Context, in SetPublishedInput) (*learning.Course, error)
	// DeleteCourse is an administrative hard cascade over the whole course.
	DeleteCourse(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) error

	// AddSection appends at order_index = current section count.
	AddSection(ctx context.Context, in AddSectionInput) (*learning.Section, error)
	RenameSection(ctx context.Context, in RenameSectionInput) (*learning.Section, error)
	// DeleteSection cascades to its items, compacts siblings, and recomputes progress.
	DeleteSection(ctx context.Context, viewer user.Viewer, sectionID uuid.UUID) (StructureChangeResult, error)
	// ReorderSections requires the exact set of the course's section ids.
	ReorderSections(ctx context.Context, in ReorderInput) ([]*learning.Section, error)

	AddContentItem(ctx context.Context, in AddContentItemInput) (*learning.ContentItem, error)
	UpdateContentItem(ctx context.Context, in UpdateContentItemInput) (*learning.ContentItem, error)
	DeleteContentItem(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (StructureChangeResult, error)
	ReorderContentItems(ctx context.Context, in ReorderInput) ([]*learning.ContentItem, error)
}

type CreateCourseInput struct {
	Viewer      user.Viewer
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=10000"`
	Price       int64  `validate:"gte=0"`
}

type UpdateCourseInput struct {
	Viewer      user.Viewer
	CourseID    uuid.UUID
	Title       *string `validate:"omitempty,max=200"`
	Description *string `validate:"omitempty,max=10000"`
	Price       *int64  `validate:"omitempty,gte=0"`
}

type SetPublishedInput struct {
	Viewer    user.Viewer
	CourseID  uuid.UUID
	Published bool
}

type AddSectionInput struct {
	Viewer   user.Viewer
	CourseID uuid.UUID
	Title    string `validate:"required,max=200"`
}

type RenameSectionInput struct {
	Viewer    user.Viewer
	SectionID uuid.UUID
	Title     string `validate:"required,max=200"`
}

type AddContentItemInput struct {
	Viewer      user.Viewer
	SectionID   uuid.UUID
	Title       string               `validate:"required,max=200"`
	ContentType learning.ContentType `validate:"required"`
	ContentData datatypes.JSON
}

// UpdateContentItemInput is a partial update. When ContentType changes,
// ContentData is re-validated against the new type (the stored payload is used
// if ContentData is nil).
type UpdateContentItemInput struct {
	Viewer      user.Viewer
	ItemID      uuid.UUID
	Title       *string `validate:"omitempty,max=200"`
	ContentType *learning.ContentType
	ContentData datatypes.JSON
}

// ReorderInput carries the full permutation of sibling ids for ScopeID
// (a course for sections, a section for items).
type ReorderInput struct {
	Viewer     user.Viewer
	ScopeID    uuid.UUID
	OrderedIDs []uuid.UUID
}

// StructureChangeResult reports the enrollments whose progress was re-derived.
type StructureChangeResult struct {
	CourseID   uuid.UUID
	Recomputed []ProgressSnapshot
	RemovedIDs []uuid.UUID
}

type ProgressSnapshot struct {
	EnrollmentID uuid.UUID
	StudentID    uuid.UUID
	CourseID     uuid.UUID
	Previous     int
	Progress     int
}

// Completed reports whether this snapshot crossed into completion.
func (p ProgressSnapshot) Completed() bool {
	return p.Previous < 100 && p.Progress >= 100
}
