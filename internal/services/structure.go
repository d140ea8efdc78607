package services

import (
	"context"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

const triggerStructureDelete = "structure_delete"

// StructureService is the authoring surface over CourseStructureAggregate.
type StructureService interface {
	CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (*learning.Course, error)
	UpdateCourse(ctx context.Context, in domainagg.UpdateCourseInput) (*learning.Course, error)
	SetPublished(ctx context.Context, in domainagg.SetPublishedInput) (*learning.Course, error)
	DeleteCourse(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) error

	AddSection(ctx context.Context, in domainagg.AddSectionInput) (*learning.Section, error)
	RenameSection(ctx context.Context, in domainagg.RenameSectionInput) (*learning.Section, error)
	DeleteSection(ctx context.Context, viewer user.Viewer, sectionID uuid.UUID) (domainagg.StructureChangeResult, error)
	ReorderSections(ctx context.Context, in domainagg.ReorderInput) ([]*learning.Section, error)

	AddContentItem(ctx context.Context, in domainagg.AddContentItemInput) (*learning.ContentItem, error)
	UpdateContentItem(ctx context.Context, in domainagg.UpdateContentItemInput) (*learning.ContentItem, error)
	DeleteContentItem(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (domainagg.StructureChangeResult, error)
	ReorderContentItems(ctx context.Context, in domainagg.ReorderInput) ([]*learning.ContentItem, error)
}

type structureService struct {
	log    *logger.Logger
	agg    domainagg.CourseStructureAggregate
	notify LearningNotifier
}

func NewStructureService(baseLog *logger.Logger, agg domainagg.CourseStructureAggregate, notify LearningNotifier) StructureService {
	return &structureService{
		log:    baseLog.With("service", "StructureService"),
		agg:    agg,
		notify: notify,
	}
}

func (s *structureService) CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (*learning.Course, error) {
	c, err := s.agg.CreateCourse(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("course created", "course_id", c.ID, "user_id", in.Viewer.UserID)
	return c, nil
}

func (s *structureService) UpdateCourse(ctx context.Context, in domainagg.UpdateCourseInput) (*learning.Course, error) {
	return s.agg.UpdateCourse(ctx, in)
}

func (s *structureService) SetPublished(ctx context.Context, in domainagg.SetPublishedInput) (*learning.Course, error) {
	c, err := s.agg.SetPublished(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("course publication changed", "course_id", c.ID, "published", c.IsPublished)
	return c, nil
}

func (s *structureService) DeleteCourse(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) error {
	if err := s.agg.DeleteCourse(ctx, viewer, courseID); err != nil {
		return err
	}
	s.log.Warn("course deleted", "course_id", courseID, "user_id", viewer.UserID)
	return nil
}

func (s *structureService) AddSection(ctx context.Context, in domainagg.AddSectionInput) (*learning.Section, error) {
	return s.agg.AddSection(ctx, in)
}

func (s *structureService) RenameSection(ctx context.Context, in domainagg.RenameSectionInput) (*learning.Section, error) {
	return s.agg.RenameSection(ctx, in)
}

func (s *structureService) DeleteSection(ctx context.Context, viewer user.Viewer, sectionID uuid.UUID) (domainagg.StructureChangeResult, error) {
	res, err := s.agg.DeleteSection(ctx, viewer, sectionID)
	if err != nil {
		return res, err
	}
	s.publishRecomputed(ctx, res)
	return res, nil
}

func (s *structureService) ReorderSections(ctx context.Context, in domainagg.ReorderInput) ([]*learning.Section, error) {
	return s.agg.ReorderSections(ctx, in)
}

func (s *structureService) AddContentItem(ctx context.Context, in domainagg.AddContentItemInput) (*learning.ContentItem, error) {
	return s.agg.AddContentItem(ctx, in)
}

func (s *structureService) UpdateContentItem(ctx context.Context, in domainagg.UpdateContentItemInput) (*learning.ContentItem, error) {
	return s.agg.UpdateContentItem(ctx, in)
}

func (s *structureService) DeleteContentItem(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (domainagg.StructureChangeResult, error) {
	res, err := s.agg.DeleteContentItem(ctx, viewer, itemID)
	if err != nil {
		return res, err
	}
	s.publishRecomputed(ctx, res)
	return res, nil
}

func (s *structureService) ReorderContentItems(ctx context.Context, in domainagg.ReorderInput) ([]*learning.ContentItem, error) {
	return s.agg.ReorderContentItems(ctx, in)
}

func (s *structureService) publishRecomputed(ctx context.Context, res domainagg.StructureChangeResult) {
	if s.notify == nil {
		return
	}
	for _, snap := range res.Recomputed {
		s.notify.ProgressUpdated(ctx, snap, triggerStructureDelete)
	}
}
