package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Section is an ordered container of content items. OrderIndex values for one
// course are always exactly 0..N-1.
type Section struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_section_course_order,priority:1" json:"course_id"`
	Course     *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	Title      string    `gorm:"column:title;not null" json:"title"`
	OrderIndex int       `gorm:"column:order_index;not null;uniqueIndex:idx_section_course_order,priority:2" json:"order_index"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`

	Items []*ContentItem `gorm:"-" json:"items,omitempty"`
}

func (Section) TableName() string { return "course_section" }

func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
