package repos

import (
	"github.com/yungbote/courseflow-backend/internal/data/repos/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CourseRepo = learning.CourseRepo
type SectionRepo = learning.SectionRepo
type ContentItemRepo = learning.ContentItemRepo
type EnrollmentRepo = learning.EnrollmentRepo
type ConsumptionRepo = learning.ConsumptionRepo
type PaymentRepo = learning.PaymentRepo

// Set is every table repo the service layer needs.
type Set struct {
	Course      CourseRepo
	Section     SectionRepo
	ContentItem ContentItemRepo
	Enrollment  EnrollmentRepo
	Consumption ConsumptionRepo
	Payment     PaymentRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Course:      learning.NewCourseRepo(db, log),
		Section:     learning.NewSectionRepo(db, log),
		ContentItem: learning.NewContentItemRepo(db, log),
		Enrollment:  learning.NewEnrollmentRepo(db, log),
		Consumption: learning.NewConsumptionRepo(db, log),
		Payment:     learning.NewPaymentRepo(db, log),
	}
}
