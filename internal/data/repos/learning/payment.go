package learning

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

type PaymentRepo interface {
	Create(dbc dbctx.Context, p *types.Payment) (*types.Payment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Payment, error)
	GetByExternalID(dbc dbctx.Context, externalID string) (*types.Payment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) Create(dbc dbctx.Context, p *types.Payment) (*types.Payment, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(dbc.Ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Payment, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Payment
	if err := tx.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *paymentRepo) GetByExternalID(dbc dbctx.Context, externalID string) (*types.Payment, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	var out []*types.Payment
	if err := tx.WithContext(dbc.Ctx).Where("external_id = ?", externalID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *paymentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return tx.WithContext(dbc.Ctx).Model(&types.Payment{}).Where("id = ?", id).Updates(updates).Error
}

func (r *paymentRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).Where("course_id = ?", courseID).Delete(&types.Payment{}).Error
}
