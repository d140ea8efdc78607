package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

type SectionRepo interface {
	Create(dbc dbctx.Context, section *types.Section) (*types.Section, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error)
	ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error)
	CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int, error)
	UpdateTitle(dbc dbctx.Context, id uuid.UUID, title string) error
	// Renumber rewrites order_index for the whole course to match orderedIDs.
	Renumber(dbc dbctx.Context, courseID uuid.UUID, orderedIDs []uuid.UUID) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return &sectionRepo{db: db, log: baseLog.With("repo", "SectionRepo")}
}

func (r *sectionRepo) Create(dbc dbctx.Context, section *types.Section) (*types.Section, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(dbc.Ctx).Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

// GetByID returns nil, nil when the section does not exist.
func (r *sectionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Section
	if err := tx.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *sectionRepo) ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.Section{}
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := tx.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("order_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sectionRepo) CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var n int64
	if err := tx.WithContext(dbc.Ctx).
		Model(&types.Section{}).
		Where("course_id = ?", courseID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *sectionRepo) UpdateTitle(dbc dbctx.Context, id uuid.UUID, title string) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).
		Model(&types.Section{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *sectionRepo) Renumber(dbc dbctx.Context, courseID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return renumber(tx.WithContext(dbc.Ctx), types.Section{}.TableName(), "course_id", courseID, orderedIDs)
}

func (r *sectionRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.Section{}).Error
}

func (r *sectionRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).Where("course_id = ?", courseID).Delete(&types.Section{}).Error
}
