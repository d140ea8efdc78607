package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsumptionRecord is the ground truth progress is derived from.
// CourseID is denormalized so records of one course can be scanned without joins.
type ConsumptionRecord struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_consumption_student_item,priority:1" json:"student_id"`
	ContentItemID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_consumption_student_item,priority:2;index" json:"content_item_id"`
	CourseID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	Completed     bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

func (ConsumptionRecord) TableName() string { return "consumption_record" }

func (r *ConsumptionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
