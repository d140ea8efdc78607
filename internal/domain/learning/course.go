package learning

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	Price       int64      `gorm:"column:price;not null;default:0;check:price >= 0" json:"price"`
	IsPublished bool       `gorm:"column:is_published;not null;default:false;index" json:"is_published"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsFree is derived from price so the two can never disagree.
func (c Course) IsFree() bool { return c.Price == 0 }

func (c Course) MarshalJSON() ([]byte, error) {
	type plain Course
	return json.Marshal(struct {
		plain
		IsFree bool `json:"is_free"`
	}{plain: plain(c), IsFree: c.IsFree()})
}
