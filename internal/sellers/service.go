// Package sellers manages the per-owner payout profile on the SellerInfo tab.
// One row per owner, updated in place; the tab keeps no history.
package sellers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/payboard/payboard-backend/pkg/cache"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/sheets"
)

const timestampFormat = "2006-01-02 15:04:05"

var timestampZone = time.FixedZone("UTC+3:30", 12600)

// Profile is one owner's payout details.
type Profile struct {
	OwnerID       string `json:"ownerId"`
	PayeeName     string `json:"payeeName"`
	CardNumber    string `json:"cardNumber"`
	IbanOrSheba   string `json:"ibanOrSheba"`
	WalletAddress string `json:"walletAddress"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// SaveInput carries the caller-editable fields.
type SaveInput struct {
	PayeeName     string `json:"payeeName"`
	CardNumber    string `json:"cardNumber"`
	IbanOrSheba   string `json:"ibanOrSheba"`
	WalletAddress string `json:"walletAddress"`
}

type profileCache interface {
	Get(ctx context.Context, ns cache.Namespace, key string) (string, bool, error)
	Set(ctx context.Context, ns cache.Namespace, key, value string) error
	Invalidate(ctx context.Context, ns cache.Namespace, key string) error
}

// Service is the seller profile surface.
type Service interface {
	Get(ctx context.Context, ownerID string) (*Profile, error)
	Save(ctx context.Context, ownerID string, input SaveInput) (*Profile, error)
}

type service struct {
	store  sheets.RowStore
	cache  profileCache
	logg   *logger.Logger
	now    func() time.Time
	layout *sheets.Layout
}

// NewService wires the seller profile service.
func NewService(store sheets.RowStore, c profileCache, logg *logger.Logger, now func() time.Time) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("row store required")
	}
	if c == nil {
		return nil, fmt.Errorf("cache required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	layout, err := sheets.LayoutFor(sheets.TableSellerInfo)
	if err != nil {
		return nil, err
	}
	return &service{store: store, cache: c, logg: logg, now: now, layout: layout}, nil
}

func (s *service) Get(ctx context.Context, ownerID string) (*Profile, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	if raw, hit, err := s.cache.Get(ctx, cache.SellerInfo, ownerID); err == nil && hit {
		var profile Profile
		if err := json.Unmarshal([]byte(raw), &profile); err == nil {
			return &profile, nil
		}
	} else if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("seller-info cache read failed: %v", err))
	}

	profile, _, err := s.find(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(profile); err == nil {
		if err := s.cache.Set(ctx, cache.SellerInfo, ownerID, string(encoded)); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("seller-info cache write failed: %v", err))
		}
	}
	return profile, nil
}

func (s *service) Save(ctx context.Context, ownerID string, input SaveInput) (*Profile, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	now := s.now().In(timestampZone).Format(timestampFormat)
	profile := &Profile{
		OwnerID:       ownerID,
		PayeeName:     strings.TrimSpace(input.PayeeName),
		CardNumber:    strings.TrimSpace(input.CardNumber),
		IbanOrSheba:   strings.TrimSpace(input.IbanOrSheba),
		WalletAddress: strings.TrimSpace(input.WalletAddress),
		UpdatedAt:     now,
	}

	existing, row, err := s.find(ctx, ownerID)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	if existing == nil {
		cells := make([]string, s.layout.Width())
		cells[s.layout.MustOffset(sheets.SellerFieldOwnerID)] = ownerID
		cells[s.layout.MustOffset(sheets.SellerFieldPayeeName)] = profile.PayeeName
		cells[s.layout.MustOffset(sheets.SellerFieldCardNumber)] = profile.CardNumber
		cells[s.layout.MustOffset(sheets.SellerFieldIbanOrSheba)] = profile.IbanOrSheba
		cells[s.layout.MustOffset(sheets.SellerFieldWalletAddress)] = profile.WalletAddress
		cells[s.layout.MustOffset(sheets.SellerFieldUpdatedAt)] = now
		if err := s.store.AppendRow(ctx, sheets.TableSellerInfo, cells); err != nil {
			return nil, err
		}
	} else {
		updates := map[int]string{
			s.layout.MustOffset(sheets.SellerFieldPayeeName):     profile.PayeeName,
			s.layout.MustOffset(sheets.SellerFieldCardNumber):    profile.CardNumber,
			s.layout.MustOffset(sheets.SellerFieldIbanOrSheba):   profile.IbanOrSheba,
			s.layout.MustOffset(sheets.SellerFieldWalletAddress): profile.WalletAddress,
			s.layout.MustOffset(sheets.SellerFieldUpdatedAt):     now,
		}
		if err := s.store.UpdateCells(ctx, sheets.TableSellerInfo, row.Index, updates); err != nil {
			return nil, err
		}
	}

	if err := s.cache.Invalidate(ctx, cache.SellerInfo, ownerID); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("seller-info cache invalidation failed: %v", err))
	}
	return profile, nil
}

func (s *service) find(ctx context.Context, ownerID string) (*Profile, *sheets.Row, error) {
	rows, err := s.store.ListRows(ctx, sheets.TableSellerInfo)
	if err != nil {
		return nil, nil, err
	}
	ownerOff := s.layout.MustOffset(sheets.SellerFieldOwnerID)
	for i := range rows {
		if strings.TrimSpace(rows[i].Cell(ownerOff)) != ownerID {
			continue
		}
		cell := func(field string) string {
			return rows[i].Cell(s.layout.MustOffset(field))
		}
		return &Profile{
			OwnerID:       ownerID,
			PayeeName:     cell(sheets.SellerFieldPayeeName),
			CardNumber:    cell(sheets.SellerFieldCardNumber),
			IbanOrSheba:   cell(sheets.SellerFieldIbanOrSheba),
			WalletAddress: cell(sheets.SellerFieldWalletAddress),
			UpdatedAt:     cell(sheets.SellerFieldUpdatedAt),
		}, &rows[i], nil
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("seller profile %s not found", ownerID))
}
