// Package payments is the ledger: the only component allowed to construct or
// mutate payment business state. Everything else reads through it.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/payboard/payboard-backend/internal/audit"
	"github.com/payboard/payboard-backend/pkg/cache"
	"github.com/payboard/payboard-backend/pkg/db/models"
	"github.com/payboard/payboard-backend/pkg/enums"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/money"
	"github.com/payboard/payboard-backend/pkg/outbox"
	"github.com/payboard/payboard-backend/pkg/outbox/payloads"
	"github.com/payboard/payboard-backend/pkg/pagination"
	"github.com/payboard/payboard-backend/pkg/sheets"
	"github.com/payboard/payboard-backend/pkg/types"
)

const listSnapshotKey = "all"

// amountFields are the fields that parse as money; comparisons and
// normalization for them go through pkg/money.
var amountFields = map[string]bool{
	sheets.FieldQuantity:  true,
	sheets.FieldUnitPrice: true,
	sheets.FieldTotal:     true,
}

// Service is the payment ledger surface.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateInput) (*CreateResult, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, actor Actor, id string, patch UpdateInput) error
	SetPaid(ctx context.Context, actor Actor, id string, paid bool) error
	Delete(ctx context.Context, actor Actor, id string) error
}

// ListResult is one page of the ledger.
type ListResult struct {
	Items []Payment       `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

type auditAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input audit.AppendInput) (*models.AuditEntry, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type listCache interface {
	Get(ctx context.Context, ns cache.Namespace, key string) (string, bool, error)
	Set(ctx context.Context, ns cache.Namespace, key, value string) error
	InvalidateAll(ctx context.Context, ns cache.Namespace) error
}

type dueHoursSource interface {
	DueHours(ctx context.Context) (int, error)
}

// Deps wires the ledger's collaborators.
type Deps struct {
	Store  sheets.RowStore
	Audit  auditAppender
	Events eventEmitter
	Tx     txRunner
	Cache  listCache
	Info   dueHoursSource
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	store  sheets.RowStore
	audit  auditAppender
	events eventEmitter
	tx     txRunner
	cache  listCache
	info   dueHoursSource
	logg   *logger.Logger
	now    func() time.Time
	layout *sheets.Layout
}

// NewService validates the wiring and returns the ledger.
func NewService(deps Deps) (Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("row store required")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if deps.Info == nil {
		return nil, fmt.Errorf("payment info source required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	layout, err := sheets.LayoutFor(sheets.TablePayments)
	if err != nil {
		return nil, err
	}
	return &service{
		store:  deps.Store,
		audit:  deps.Audit,
		events: deps.Events,
		tx:     deps.Tx,
		cache:  deps.Cache,
		info:   deps.Info,
		logg:   deps.Logger,
		now:    deps.Now,
		layout: layout,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateInput) (*CreateResult, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ownerId is required").
			WithDetails(map[string]string{"field": "ownerId"})
	}
	quantity, err := money.Parse(input.Quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity must be numeric").
			WithDetails(map[string]string{"field": "quantity"})
	}
	unitPrice, err := money.Parse(input.UnitPrice)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unitPrice must be numeric").
			WithDetails(map[string]string{"field": "unitPrice"})
	}

	// Any client-supplied total is ignored on create.
	total := quantity.Mul(unitPrice)

	now := s.now().In(displayZone)
	id := NewUniqueID()

	dueAt := strings.TrimSpace(input.DueAt)
	if dueAt == "" {
		hours, err := s.info.DueHours(ctx)
		if err != nil {
			return nil, err
		}
		dueAt = now.Add(time.Duration(hours) * time.Hour).Format(displayTimeFormat)
	}

	cells := make([]string, s.layout.Width())
	set := func(field, value string) {
		cells[s.layout.MustOffset(field)] = value
	}
	set(sheets.FieldCreatedAt, now.Format(displayTimeFormat))
	set(sheets.FieldOwnerID, input.OwnerID)
	set(sheets.FieldSource, input.Source)
	set(sheets.FieldMethod, input.Method)
	set(sheets.FieldQuantity, money.Format(quantity))
	set(sheets.FieldUnitPrice, money.Format(unitPrice))
	set(sheets.FieldTotal, money.Format(total))
	set(sheets.FieldCurrency, input.Currency)
	set(sheets.FieldCardNumber, input.CardNumber)
	set(sheets.FieldIbanOrSheba, input.IbanOrSheba)
	set(sheets.FieldPayeeName, input.PayeeName)
	set(sheets.FieldWalletAddress, input.WalletAddress)
	set(sheets.FieldExternalWalletAddress, input.ExternalWalletAddress)
	set(sheets.FieldNote, input.Note)
	set(sheets.FieldAdminNote, input.AdminNote)
	set(sheets.FieldPaid, "FALSE")
	set(sheets.FieldDueAt, dueAt)
	set(sheets.FieldID, id)

	if err := s.store.AppendRow(ctx, sheets.TablePayments, cells); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.audit.Append(ctx, tx, audit.AppendInput{
			PaymentID: id,
			Action:    enums.AuditActionCreate,
			Actor:     actor.DisplayName(),
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentCreated,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   id,
			Actor:         actorRef(actor),
			Data: payloads.PaymentEventV1{
				UniqueID:  id,
				OwnerID:   input.OwnerID,
				Source:    input.Source,
				Method:    input.Method,
				Total:     money.Format(total),
				Currency:  input.Currency,
				PayeeName: input.PayeeName,
				Note:      input.Note,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateList(ctx)

	logCtx := s.logg.WithPaymentID(ctx, id)
	s.logg.Info(logCtx, "payment created")

	return &CreateResult{UniqueID: id, Total: money.Format(total)}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	items, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	norm := params.Normalize()
	start, end := pagination.Window(params, len(items))
	return &ListResult{
		Items: items[start:end],
		Meta:  pagination.Meta{Limit: norm.Limit, Offset: norm.Offset, Total: len(items)},
	}, nil
}

func (s *service) Get(ctx context.Context, id string) (*Payment, error) {
	row, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	payment := paymentFromRow(s.layout, *row)
	return &payment, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id string, patch UpdateInput) error {
	row, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	fields := []struct {
		name  string
		value *string
	}{
		{sheets.FieldOwnerID, patch.OwnerID},
		{sheets.FieldSource, patch.Source},
		{sheets.FieldMethod, patch.Method},
		{sheets.FieldQuantity, patch.Quantity},
		{sheets.FieldUnitPrice, patch.UnitPrice},
		{sheets.FieldTotal, patch.Total},
		{sheets.FieldCurrency, patch.Currency},
		{sheets.FieldCardNumber, patch.CardNumber},
		{sheets.FieldIbanOrSheba, patch.IbanOrSheba},
		{sheets.FieldPayeeName, patch.PayeeName},
		{sheets.FieldWalletAddress, patch.WalletAddress},
		{sheets.FieldExternalWalletAddress, patch.ExternalWalletAddress},
		{sheets.FieldNote, patch.Note},
		{sheets.FieldAdminNote, patch.AdminNote},
		{sheets.FieldDueAt, patch.DueAt},
	}

	cells := make(map[int]string)
	changes := make(types.ChangeSet)

	for _, f := range fields {
		if f.value == nil {
			continue
		}
		off := s.layout.MustOffset(f.name)
		old := row.Cell(off)

		newVal := *f.value
		if amountFields[f.name] {
			d, err := money.Parse(newVal)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err,
					fmt.Sprintf("%s must be numeric", f.name)).
					WithDetails(map[string]string{"field": f.name})
			}
			newVal = money.Format(d)
		}

		if sameValue(f.name, old, newVal) {
			continue
		}
		cells[off] = newVal
		changes[f.name] = types.FieldChange{Old: old, New: newVal}
	}

	// Recompute total when quantity or unitPrice moved and the caller did not
	// supply an explicit override.
	_, quantityChanged := changes[sheets.FieldQuantity]
	_, unitPriceChanged := changes[sheets.FieldUnitPrice]
	if (quantityChanged || unitPriceChanged) && patch.Total == nil {
		quantityRaw := row.Cell(s.layout.MustOffset(sheets.FieldQuantity))
		if c, ok := changes[sheets.FieldQuantity]; ok {
			quantityRaw = c.New
		}
		unitPriceRaw := row.Cell(s.layout.MustOffset(sheets.FieldUnitPrice))
		if c, ok := changes[sheets.FieldUnitPrice]; ok {
			unitPriceRaw = c.New
		}

		quantity, qErr := money.Parse(quantityRaw)
		unitPrice, pErr := money.Parse(unitPriceRaw)
		if qErr == nil && pErr == nil {
			totalOff := s.layout.MustOffset(sheets.FieldTotal)
			oldTotal := row.Cell(totalOff)
			newTotal := money.Format(quantity.Mul(unitPrice))
			if !sameValue(sheets.FieldTotal, oldTotal, newTotal) {
				cells[totalOff] = newTotal
				changes[sheets.FieldTotal] = types.FieldChange{Old: oldTotal, New: newTotal}
			}
		}
	}

	if len(cells) == 0 {
		// Nothing differed: no write, no audit entry. Cache is still
		// invalidated unconditionally.
		s.invalidateList(ctx)
		return nil
	}

	if err := s.store.UpdateCells(ctx, sheets.TablePayments, row.Index, cells); err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.audit.Append(ctx, tx, audit.AppendInput{
			PaymentID: id,
			Action:    enums.AuditActionEdit,
			Actor:     actor.DisplayName(),
			Changes:   changes,
		}); err != nil {
			return err
		}
		payment := paymentFromRow(s.layout, *row)
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentUpdated,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   id,
			Actor:         actorRef(actor),
			Data: payloads.PaymentEventV1{
				UniqueID: id,
				OwnerID:  payment.OwnerID,
				Currency: payment.Currency,
				Changes:  changes,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}

	s.invalidateList(ctx)

	logCtx := s.logg.WithPaymentID(ctx, id)
	s.logg.Info(logCtx, fmt.Sprintf("payment updated (%d fields)", len(changes)))
	return nil
}

func (s *service) SetPaid(ctx context.Context, actor Actor, id string, paid bool) error {
	row, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	paidOff := s.layout.MustOffset(sheets.FieldPaid)
	old := row.Cell(paidOff)

	newVal := "FALSE"
	if paid {
		newVal = "TRUE"
	}

	// Always write the canonical encoding, even when the truthiness is
	// unchanged: this is how stray spellings get normalized out of the
	// document over time.
	if err := s.store.UpdateCells(ctx, sheets.TablePayments, row.Index, map[int]string{paidOff: newVal}); err != nil {
		return err
	}

	if IsPaid(old) != paid {
		changes := types.ChangeSet{
			sheets.FieldPaid: {
				Old: strconv.FormatBool(IsPaid(old)),
				New: strconv.FormatBool(paid),
			},
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.audit.Append(ctx, tx, audit.AppendInput{
				PaymentID: id,
				Action:    enums.AuditActionEdit,
				Actor:     actor.DisplayName(),
				Changes:   changes,
			}); err != nil {
				return err
			}
			payment := paymentFromRow(s.layout, *row)
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventPaymentUpdated,
				AggregateType: enums.OutboxAggregatePayment,
				AggregateID:   id,
				Actor:         actorRef(actor),
				Data: payloads.PaymentEventV1{
					UniqueID: id,
					OwnerID:  payment.OwnerID,
					Total:    payment.Total,
					Currency: payment.Currency,
					Changes:  changes,
				},
				Version: 1,
			})
		})
		if err != nil {
			return err
		}
	}

	s.invalidateList(ctx)
	return nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id string) error {
	row, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	// Snapshot before the physical delete; this is the only copy left for the
	// audit trail and the notification payload.
	payment := paymentFromRow(s.layout, *row)

	if err := s.store.DeleteRow(ctx, sheets.TablePayments, row.Index); err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.audit.Append(ctx, tx, audit.AppendInput{
			PaymentID: id,
			Action:    enums.AuditActionDelete,
			Actor:     actor.DisplayName(),
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentDeleted,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   id,
			Actor:         actorRef(actor),
			Data: payloads.PaymentEventV1{
				UniqueID:  id,
				OwnerID:   payment.OwnerID,
				Source:    payment.Source,
				Method:    payment.Method,
				Total:     payment.Total,
				Currency:  payment.Currency,
				PayeeName: payment.PayeeName,
				Note:      payment.Note,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}

	s.invalidateList(ctx)

	logCtx := s.logg.WithPaymentID(ctx, id)
	s.logg.Info(logCtx, "payment deleted")
	return nil
}

// resolve maps a uniqueId to its current physical row. The lookup is fresh on
// every call: row indexes shift after deletions and must never be reused
// across operations.
func (s *service) resolve(ctx context.Context, id string) (*sheets.Row, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	rows, err := s.store.ListRows(ctx, sheets.TablePayments)
	if err != nil {
		return nil, err
	}

	idOff := s.layout.MustOffset(sheets.FieldID)
	for i := range rows {
		if strings.TrimSpace(rows[i].Cell(idOff)) == id {
			return &rows[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment %s not found", id))
}

// snapshot returns the full mapped list, served from the payment-list cache
// when fresh. Cache trouble degrades to a direct read, never to a failure.
func (s *service) snapshot(ctx context.Context) ([]Payment, error) {
	cached, hit, err := s.cache.Get(ctx, cache.PaymentList, listSnapshotKey)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("payment-list cache read failed: %v", err))
	} else if hit {
		var items []Payment
		if err := json.Unmarshal([]byte(cached), &items); err == nil {
			return items, nil
		}
		s.logg.Warn(ctx, "payment-list cache entry not decodable, refreshing")
	}

	rows, err := s.store.ListRows(ctx, sheets.TablePayments)
	if err != nil {
		return nil, err
	}

	idOff := s.layout.MustOffset(sheets.FieldID)
	items := make([]Payment, 0, len(rows))
	for _, row := range rows {
		// Rows without an identifier predate the id column; they cannot be
		// addressed and are not listed.
		if strings.TrimSpace(row.Cell(idOff)) == "" {
			continue
		}
		items = append(items, paymentFromRow(s.layout, row))
	}

	if encoded, err := json.Marshal(items); err == nil {
		if err := s.cache.Set(ctx, cache.PaymentList, listSnapshotKey, string(encoded)); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("payment-list cache write failed: %v", err))
		}
	}
	return items, nil
}

func (s *service) invalidateList(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx, cache.PaymentList); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("payment-list cache invalidation failed: %v", err))
	}
}

// sameValue compares old and new through the same normalization the write
// path uses, so equivalent spellings never produce spurious diffs.
func sameValue(field, old, newVal string) bool {
	if amountFields[field] {
		oldD, oldErr := money.Parse(old)
		newD, newErr := money.Parse(newVal)
		if oldErr == nil && newErr == nil {
			return oldD.Equal(newD)
		}
	}
	return strings.TrimSpace(old) == strings.TrimSpace(newVal)
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.DiscordID == "" && actor.Nickname == "" {
		return nil
	}
	return &outbox.ActorRef{
		DiscordID: actor.DiscordID,
		Nickname:  actor.Nickname,
		Role:      actor.Role,
	}
}
