package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContentItem struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SectionID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_item_section_order,priority:1" json:"section_id"`
	Section     *Section       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"-"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	ContentType ContentType    `gorm:"column:content_type;not null" json:"content_type"`
	ContentData datatypes.JSON `gorm:"column:content_data;type:jsonb;not null" json:"content_data"`
	OrderIndex  int            `gorm:"column:order_index;not null;uniqueIndex:idx_item_section_order,priority:2" json:"order_index"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_item" }

func (i *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Data decodes ContentData according to ContentType.
func (i ContentItem) Data() (ContentData, error) {
	return DecodeContentData(i.ContentType, i.ContentData)
}
