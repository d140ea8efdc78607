package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

type ContentItemRepo interface {
	Create(dbc dbctx.Context, item *types.ContentItem) (*types.ContentItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	ListBySectionID(dbc dbctx.Context, sectionID uuid.UUID) ([]*types.ContentItem, error)
	// ListByCourseID returns every item of the course ordered by section then item position.
	ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.ContentItem, error)
	ListIDsBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) ([]uuid.UUID, error)
	CountBySectionID(dbc dbctx.Context, sectionID uuid.UUID) (int, error)
	CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Renumber(dbc dbctx.Context, sectionID uuid.UUID, orderedIDs []uuid.UUID) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) error
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

const joinItemSection = "JOIN course_section ON course_section.id = content_item.section_id"

func (r *contentItemRepo) Create(dbc dbctx.Context, item *types.ContentItem) (*types.ContentItem, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(dbc.Ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// GetByID returns nil, nil when the item does not exist.
func (r *contentItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.ContentItem
	if err := tx.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *contentItemRepo) ListBySectionID(dbc dbctx.Context, sectionID uuid.UUID) ([]*types.ContentItem, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.ContentItem{}
	if sectionID == uuid.Nil {
		return out, nil
	}
	if err := tx.WithContext(dbc.Ctx).
		Where("section_id = ?", sectionID).
		Order("order_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.ContentItem, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.ContentItem{}
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := tx.WithContext(dbc.Ctx).
		Select("content_item.*").
		Joins(joinItemSection).
		Where("course_section.course_id = ?", courseID).
		Order("course_section.order_index ASC, content_item.order_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) ListIDsBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) ([]uuid.UUID, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []uuid.UUID{}
	if len(sectionIDs) == 0 {
		return out, nil
	}
	if err := tx.WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("section_id IN ?", sectionIDs).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) CountBySectionID(dbc dbctx.Context, sectionID uuid.UUID) (int, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var n int64
	if err := tx.WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("section_id = ?", sectionID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountByCourseID is the progress denominator T at the time of the call.
func (r *contentItemRepo) CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var n int64
	if err := tx.WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Joins(joinItemSection).
		Where("course_section.course_id = ?", courseID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *contentItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return tx.WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *contentItemRepo) Renumber(dbc dbctx.Context, sectionID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return renumber(tx.WithContext(dbc.Ctx), types.ContentItem{}.TableName(), "section_id", sectionID, orderedIDs)
}

func (r *contentItemRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.ContentItem{}).Error
}

func (r *contentItemRepo) FullDeleteBySectionIDs(dbc dbctx.Context, sectionIDs []uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if len(sectionIDs) == 0 {
		return nil
	}
	return tx.WithContext(dbc.Ctx).Where("section_id IN ?", sectionIDs).Delete(&types.ContentItem{}).Error
}
