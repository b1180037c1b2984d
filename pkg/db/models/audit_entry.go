package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/payboard/payboard-backend/pkg/enums"
)

// AuditEntry records one immutable line of payment history. Rows are only
// ever appended; they survive deletion of the payment they describe.
type AuditEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Seq       int64             `gorm:"column:seq;autoIncrement;uniqueIndex"`
	PaymentID string            `gorm:"column:payment_id;size:12;not null;index"`
	Action    enums.AuditAction `gorm:"column:action;size:16;not null"`
	Actor     string            `gorm:"column:actor;not null"`
	Changes   json.RawMessage   `gorm:"column:changes;type:jsonb"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
