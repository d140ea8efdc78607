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

type ConsumptionRepo interface {
	// MarkCompleted upserts the (student, item) record as completed.
	// firstTime is false when a completed record already existed.
	MarkCompleted(dbc dbctx.Context, studentID, courseID, itemID uuid.UUID, at time.Time) (firstTime bool, err error)
	// CountCompletedInCourse counts completed records whose item still belongs to the course.
	CountCompletedInCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (int, error)
	ListCompletedItemIDs(dbc dbctx.Context, studentID, courseID uuid.UUID) ([]uuid.UUID, error)
	FullDeleteByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) error
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type consumptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConsumptionRepo(db *gorm.DB, baseLog *logger.Logger) ConsumptionRepo {
	return &consumptionRepo{db: db, log: baseLog.With("repo", "ConsumptionRepo")}
}

func (r *consumptionRepo) MarkCompleted(dbc dbctx.Context, studentID, courseID, itemID uuid.UUID, at time.Time) (bool, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var existing []*types.ConsumptionRecord
	if err := tx.WithContext(dbc.Ctx).
		Where("student_id = ? AND content_item_id = ?", studentID, itemID).
		Limit(1).
		Find(&existing).Error; err != nil {
		return false, err
	}
	if len(existing) > 0 && existing[0].Completed {
		return false, nil
	}

	completedAt := at.UTC()
	row := &types.ConsumptionRecord{
		StudentID:     studentID,
		ContentItemID: itemID,
		CourseID:      courseID,
		Completed:     true,
		CompletedAt:   &completedAt,
	}
	if err := tx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "content_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "course_id", "updated_at"}),
		}).
		Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *consumptionRepo) completedInCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).
		Model(&types.ConsumptionRecord{}).
		Joins("JOIN content_item ON content_item.id = consumption_record.content_item_id").
		Joins("JOIN course_section ON course_section.id = content_item.section_id").
		Where("consumption_record.student_id = ? AND course_section.course_id = ? AND consumption_record.completed = ?", studentID, courseID, true)
}

func (r *consumptionRepo) CountCompletedInCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (int, error) {
	var n int64
	if err := r.completedInCourse(dbc, studentID, courseID).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *consumptionRepo) ListCompletedItemIDs(dbc dbctx.Context, studentID, courseID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	if err := r.completedInCourse(dbc, studentID, courseID).
		Pluck("consumption_record.content_item_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *consumptionRepo) FullDeleteByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if len(itemIDs) == 0 {
		return nil
	}
	return tx.WithContext(dbc.Ctx).Where("content_item_id IN ?", itemIDs).Delete(&types.ConsumptionRecord{}).Error
}

func (r *consumptionRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).Where("course_id = ?", courseID).Delete(&types.ConsumptionRecord{}).Error
}
