package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/payboard/payboard-backend/internal/payments"
	"github.com/payboard/payboard-backend/pkg/pagination"
)

type stubLister struct {
	items []payments.Payment
}

func (s stubLister) List(_ context.Context, params pagination.Params) (*payments.ListResult, error) {
	start, end := pagination.Window(params, len(s.items))
	norm := params.Normalize()
	return &payments.ListResult{
		Items: s.items[start:end],
		Meta:  pagination.Meta{Limit: norm.Limit, Offset: norm.Offset, Total: len(s.items)},
	}, nil
}

func TestSummaryCounts(t *testing.T) {
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	items := []payments.Payment{
		{UniqueID: "a", PaidFlag: true, Total: "50,000", Currency: "USDT"},
		{UniqueID: "b", PaidFlag: false, Total: "1,000", Currency: "USDT", DueAt: "2025-08-01 00:00:00"},
		{UniqueID: "c", PaidFlag: false, Total: "200", Currency: "IRR", DueAt: "2030-01-01 00:00:00"},
		{UniqueID: "d", PaidFlag: false, Total: "junk", Currency: "IRR"},
	}

	svc, err := NewService(stubLister{items: items}, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.TotalPayments != 4 {
		t.Fatalf("total = %d", summary.TotalPayments)
	}
	if summary.PaidCount != 1 || summary.UnpaidCount != 3 {
		t.Fatalf("paid/unpaid = %d/%d", summary.PaidCount, summary.UnpaidCount)
	}
	if summary.OverdueCount != 1 {
		t.Fatalf("overdue = %d", summary.OverdueCount)
	}
	if summary.TotalsByCurrency["USDT"] != "51,000" {
		t.Fatalf("USDT sum = %q", summary.TotalsByCurrency["USDT"])
	}
	if summary.TotalsByCurrency["IRR"] != "200" {
		t.Fatalf("IRR sum = %q", summary.TotalsByCurrency["IRR"])
	}
}

func TestSummaryPagesThroughWholeLedger(t *testing.T) {
	items := make([]payments.Payment, pagination.MaxLimit+25)
	for i := range items {
		items[i] = payments.Payment{UniqueID: "x", PaidFlag: true, Total: "1", Currency: "USDT"}
	}

	svc, err := NewService(stubLister{items: items}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalPayments != len(items) {
		t.Fatalf("expected %d totals, got %d", len(items), summary.TotalPayments)
	}
	if summary.TotalsByCurrency["USDT"] != "225" {
		t.Fatalf("USDT sum = %q", summary.TotalsByCurrency["USDT"])
	}
}
