package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/payboard/payboard-backend/pkg/db/models"
)

// Repository manages persistence for audit entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListByPaymentID(ctx context.Context, paymentID string) ([]models.AuditEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByPaymentID returns entries in insertion order. The seq tiebreak keeps
// entries written within the same timestamp stable.
func (r *repository) ListByPaymentID(ctx context.Context, paymentID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
