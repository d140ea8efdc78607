package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// CreateIfAbsent inserts the row unless (student_id, course_id) already exists.
	// created is false when another row already held the pair.
	CreateIfAbsent(dbc dbctx.Context, row *types.Enrollment) (created bool, err error)
	GetByStudentAndCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error)
	ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Enrollment, error)
	ListByStudentID(dbc dbctx.Context, studentID uuid.UUID) ([]*types.Enrollment, error)
	CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int, error)
	UpdateProgress(dbc dbctx.Context, id uuid.UUID, progress int) error
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) CreateIfAbsent(dbc dbctx.Context, row *types.Enrollment) (bool, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByStudentAndCourse returns nil, nil when the student is not enrolled.
func (r *enrollmentRepo) GetByStudentAndCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var out []*types.Enrollment
	if err := tx.WithContext(dbc.Ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *enrollmentRepo) ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Enrollment, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.Enrollment{}
	if err := tx.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("enrolled_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) ListByStudentID(dbc dbctx.Context, studentID uuid.UUID) ([]*types.Enrollment, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.Enrollment{}
	if err := tx.WithContext(dbc.Ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var n int64
	if err := tx.WithContext(dbc.Ctx).
		Model(&types.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *enrollmentRepo) UpdateProgress(dbc dbctx.Context, id uuid.UUID, progress int) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).
		Model(&types.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *enrollmentRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).Where("course_id = ?", courseID).Delete(&types.Enrollment{}).Error
}
