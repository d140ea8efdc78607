package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCanceled  PaymentStatus = "canceled"
	PaymentExpired   PaymentStatus = "expired"
	PaymentRefunded  PaymentStatus = "refunded"
)

// CanTransition reports whether a payment may move from s to next.
// Only pending payments move freely; a completed payment can only be refunded.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case PaymentPending:
		return true
	case PaymentCompleted:
		return next == PaymentRefunded
	default:
		return false
	}
}

// Payment is the local ledger row of a checkout with the payment gateway.
type Payment struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_payment_student_course,priority:1" json:"student_id"`
	CourseID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_payment_student_course,priority:2" json:"course_id"`
	Provider    string         `gorm:"column:provider;not null" json:"provider"`
	ExternalID  string         `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	Amount      int64          `gorm:"column:amount;not null" json:"amount"`
	Currency    string         `gorm:"column:currency;not null" json:"currency"`
	Status      PaymentStatus  `gorm:"column:status;not null;index" json:"status"`
	GatewayRef  string         `gorm:"column:gateway_ref" json:"gateway_ref,omitempty"`
	RedirectURL string         `gorm:"column:redirect_url" json:"redirect_url,omitempty"`
	Raw         datatypes.JSON `gorm:"column:raw;type:jsonb" json:"-"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
