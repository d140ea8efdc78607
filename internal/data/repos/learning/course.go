package learning

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

// LockStrength selects the row lock taken by LockByID.
type LockStrength string

const (
	LockForUpdate LockStrength = "UPDATE"
	LockForShare  LockStrength = "SHARE"
)

// CourseListFilter narrows ListVisible.
// Published courses are always included; AuthorID adds that author's drafts; All disables filtering.
type CourseListFilter struct {
	AuthorID *uuid.UUID
	All      bool
	Limit    int
	Offset   int
}

type CourseRepo interface {
	Create(dbc dbctx.Context, course *types.Course) (*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error)
	LockByID(dbc dbctx.Context, id uuid.UUID, strength LockStrength) (*types.Course, error)
	ListVisible(dbc dbctx.Context, f CourseListFilter) ([]*types.Course, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, course *types.Course) (*types.Course, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(dbc.Ctx).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// GetByID returns nil, nil when the course does not exist.
func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Course
	if err := tx.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.Course{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := tx.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LockByID reads the course row with a row lock. Callers must pass a transaction.
func (r *courseRepo) LockByID(dbc dbctx.Context, id uuid.UUID, strength LockStrength) (*types.Course, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	if strings.TrimSpace(string(strength)) == "" {
		strength = LockForUpdate
	}
	var out []*types.Course
	if err := tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: string(strength)}).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *courseRepo) ListVisible(dbc dbctx.Context, f CourseListFilter) ([]*types.Course, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	q := tx.WithContext(dbc.Ctx).Model(&types.Course{})
	switch {
	case f.All:
	case f.AuthorID != nil && *f.AuthorID != uuid.Nil:
		q = q.Where("is_published = ? OR author_id = ?", true, *f.AuthorID)
	default:
		q = q.Where("is_published = ?", true)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	out := []*types.Course{}
	if err := q.Order("created_at DESC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return tx.WithContext(dbc.Ctx).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *courseRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return tx.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Course{}).Error
}
