package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnrollmentState string

const (
	EnrollmentEnrolled  EnrollmentState = "enrolled"
	EnrollmentCompleted EnrollmentState = "completed"
)

// Enrollment links one student to one course. At most one row exists per (student, course).
type Enrollment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:1" json:"student_id"`
	CourseID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:2;index" json:"course_id"`
	Course     *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Progress   int        `gorm:"column:progress;not null;default:0" json:"progress"`
	PaymentID  *uuid.UUID `gorm:"type:uuid;column:payment_id" json:"payment_id,omitempty"`
	EnrolledAt time.Time  `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	return nil
}

// State is a view over Progress; COMPLETED is never stored.
func (e Enrollment) State() EnrollmentState {
	if e.Progress >= 100 {
		return EnrollmentCompleted
	}
	return EnrollmentEnrolled
}
