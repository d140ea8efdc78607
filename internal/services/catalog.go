package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/data/repos"
	repolearning "github.com/yungbote/courseflow-backend/internal/data/repos/learning"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

const defaultListLimit = 50

// CourseStructure is a course with its ordered sections, each carrying its ordered items.
type CourseStructure struct {
	Course   *learning.Course    `json:"course"`
	Sections []*learning.Section `json:"sections"`
}

type ListCoursesInput struct {
	Viewer user.Viewer
	Limit  int
	Offset int
}

// CatalogService serves read paths. Every read re-checks the publication gate.
type CatalogService interface {
	ListCourses(ctx context.Context, in ListCoursesInput) ([]*learning.Course, error)
	GetCourse(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (*learning.Course, error)
	GetStructure(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (*CourseStructure, error)
	GetItem(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (*learning.ContentItem, error)
}

type catalogService struct {
	db       *gorm.DB
	log      *logger.Logger
	courses  repos.CourseRepo
	sections repos.SectionRepo
	items    repos.ContentItemRepo
	urls     ContentURLResolver
	metrics  *observability.Metrics
}

func NewCatalogService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	sections repos.SectionRepo,
	items repos.ContentItemRepo,
	urls ContentURLResolver,
	metrics *observability.Metrics,
) CatalogService {
	if urls == nil {
		urls = NewPassthroughResolver()
	}
	return &catalogService{
		db:       db,
		log:      baseLog.With("service", "CatalogService"),
		courses:  courses,
		sections: sections,
		items:    items,
		urls:     urls,
		metrics:  metrics,
	}
}

func (s *catalogService) ListCourses(ctx context.Context, in ListCoursesInput) ([]*learning.Course, error) {
	f := repolearning.CourseListFilter{Limit: in.Limit, Offset: in.Offset}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch {
	case in.Viewer.IsAnonymous():
	case in.Viewer.IsAdmin():
		f.All = true
	case in.Viewer.IsStaff():
		author := in.Viewer.UserID
		f.AuthorID = &author
	}
	rows, err := s.courses.ListVisible(dbctx.Context{Ctx: ctx, Tx: s.db}, f)
	if err != nil {
		return nil, err
	}
	out := make([]*learning.Course, 0, len(rows))
	for _, c := range rows {
		if learning.CanView(in.Viewer, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *catalogService) GetCourse(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (*learning.Course, error) {
	const op = "Catalog.GetCourse"
	return s.visibleCourse(dbctx.Context{Ctx: ctx, Tx: s.db}, op, viewer, courseID)
}

func (s *catalogService) visibleCourse(dbc dbctx.Context, op string, viewer user.Viewer, courseID uuid.UUID) (*learning.Course, error) {
	if courseID == uuid.Nil {
		return nil, domainagg.NewFieldError(op, "invalid course id", map[string]string{"course_id": "required"})
	}
	c, err := s.courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", nil)
	}
	if !learning.CanView(viewer, c) {
		s.log.Warn("gated access to unpublished course", "op", op, "course_id", courseID, "user_id", viewer.UserID)
		s.metrics.IncGateDenied(op)
		return nil, domainagg.NewError(domainagg.CodeNotAvailable, op, "course not available", nil)
	}
	return c, nil
}

func (s *catalogService) GetStructure(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (*CourseStructure, error) {
	const op = "Catalog.GetStructure"
	var out *CourseStructure
	// One read transaction so sections and items come from the same snapshot.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := s.visibleCourse(dbc, op, viewer, courseID)
		if err != nil {
			return err
		}
		sections, err := s.sections.ListByCourseID(dbc, courseID)
		if err != nil {
			return err
		}
		items, err := s.items.ListByCourseID(dbc, courseID)
		if err != nil {
			return err
		}
		bySection := make(map[uuid.UUID][]*learning.ContentItem, len(sections))
		for _, it := range items {
			bySection[it.SectionID] = append(bySection[it.SectionID], it)
		}
		for _, sec := range sections {
			sec.Items = bySection[sec.ID]
			if sec.Items == nil {
				sec.Items = []*learning.ContentItem{}
			}
		}
		out = &CourseStructure{Course: c, Sections: sections}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, sec := range out.Sections {
		for i, it := range sec.Items {
			resolved, rerr := s.urls.ResolveItem(ctx, it)
			if rerr != nil {
				s.log.Warn("content url resolution failed", "item_id", it.ID, "error", rerr)
				continue
			}
			sec.Items[i] = resolved
		}
	}
	return out, nil
}

func (s *catalogService) GetItem(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (*learning.ContentItem, error) {
	const op = "Catalog.GetItem"
	if itemID == uuid.Nil {
		return nil, domainagg.NewFieldError(op, "invalid item id", map[string]string{"item_id": "required"})
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	item, err := s.items.GetByID(dbc, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "content item not found", nil)
	}
	sec, err := s.sections.GetByID(dbc, item.SectionID)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "section not found", nil)
	}
	if _, err := s.visibleCourse(dbc, op, viewer, sec.CourseID); err != nil {
		return nil, err
	}
	return s.urls.ResolveItem(ctx, item)
}
