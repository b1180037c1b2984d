package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/payboard/payboard-backend/pkg/db/models"
	"github.com/payboard/payboard-backend/pkg/enums"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/types"
)

// Service defines the append-only history surface. Entries are never updated
// or deleted; they outlive the payments they describe.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.AuditEntry, error)
	Query(ctx context.Context, paymentID string) ([]models.AuditEntry, error)
}

// AppendInput captures one history line.
type AppendInput struct {
	PaymentID string
	Action    enums.AuditAction
	Actor     string
	Changes   types.ChangeSet
}

type service struct {
	repo Repository
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.AuditEntry, error) {
	if input.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if input.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid audit action %q", input.Action))
	}

	var changes json.RawMessage
	if len(input.Changes) > 0 {
		encoded, err := json.Marshal(input.Changes)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding audit changes")
		}
		changes = encoded
	}

	entry := &models.AuditEntry{
		PaymentID: input.PaymentID,
		Action:    input.Action,
		Actor:     input.Actor,
		Changes:   changes,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending audit entry")
	}
	return entry, nil
}

func (s *service) Query(ctx context.Context, paymentID string) ([]models.AuditEntry, error) {
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	entries, err := s.repo.ListByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "querying audit entries")
	}
	return entries, nil
}
