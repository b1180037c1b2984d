// Package analytics derives dashboard summary numbers from the ledger's read
// path. It holds no state of its own and reuses the ledger's paid predicate
// through the already-mapped records.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payboard/payboard-backend/internal/payments"
	"github.com/payboard/payboard-backend/pkg/money"
	"github.com/payboard/payboard-backend/pkg/pagination"
)

const dueTimeFormat = "2006-01-02 15:04:05"

var dueZone = time.FixedZone("UTC+3:30", 12600)

// Summary is the admin dashboard aggregate.
type Summary struct {
	TotalPayments    int               `json:"totalPayments"`
	PaidCount        int               `json:"paidCount"`
	UnpaidCount      int               `json:"unpaidCount"`
	OverdueCount     int               `json:"overdueCount"`
	TotalsByCurrency map[string]string `json:"totalsByCurrency"`
}

type paymentLister interface {
	List(ctx context.Context, params pagination.Params) (*payments.ListResult, error)
}

// Service computes ledger aggregates.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	ledger paymentLister
	now    func() time.Time
}

// NewService wires the analytics reader over the ledger list path.
func NewService(ledger paymentLister, now func() time.Time) (Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("payment lister required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{ledger: ledger, now: now}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{TotalsByCurrency: map[string]string{}}
	sums := map[string]decimal.Decimal{}
	now := s.now().In(dueZone)

	offset := 0
	for {
		page, err := s.ledger.List(ctx, pagination.Params{Limit: pagination.MaxLimit, Offset: offset})
		if err != nil {
			return nil, err
		}

		for _, p := range page.Items {
			summary.TotalPayments++
			if p.PaidFlag {
				summary.PaidCount++
			} else {
				summary.UnpaidCount++
				if due, err := time.ParseInLocation(dueTimeFormat, strings.TrimSpace(p.DueAt), dueZone); err == nil && due.Before(now) {
					summary.OverdueCount++
				}
			}

			if total, err := money.Parse(p.Total); err == nil {
				currency := strings.TrimSpace(p.Currency)
				if currency == "" {
					currency = "unspecified"
				}
				sums[currency] = sums[currency].Add(total)
			}
		}

		offset += len(page.Items)
		if offset >= page.Meta.Total || len(page.Items) == 0 {
			break
		}
	}

	for currency, sum := range sums {
		summary.TotalsByCurrency[currency] = money.Format(sum)
	}
	return summary, nil
}
