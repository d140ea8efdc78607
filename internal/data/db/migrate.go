package db

import (
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Catalog + structure
		&learning.Course{},
		&learning.Section{},
		&learning.ContentItem{},

		// Learner state
		&learning.Enrollment{},
		&learning.ConsumptionRecord{},

		// Payment ledger
		&learning.Payment{},
	)
}
