package paymentinfo

import (
	"context"
	"testing"

	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/sheets"
	"github.com/payboard/payboard-backend/pkg/sheets/sheetstest"
)

func seedSettings(t *testing.T, store *sheetstest.FakeStore, pairs map[string]string) {
	t.Helper()
	for key, value := range pairs {
		if err := store.AppendRow(context.Background(), sheets.TableSettings, []string{key, value}); err != nil {
			t.Fatalf("seed settings: %v", err)
		}
	}
}

func TestDueHoursReadsSetting(t *testing.T) {
	store := sheetstest.NewFakeStore()
	seedSettings(t, store, map[string]string{"dueHours": "72"})

	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	hours, err := svc.DueHours(context.Background())
	if err != nil {
		t.Fatalf("DueHours: %v", err)
	}
	if hours != 72 {
		t.Fatalf("expected 72 got %d", hours)
	}
}

func TestDueHoursDefaults(t *testing.T) {
	cases := map[string]map[string]string{
		"missing":     {},
		"junk":        {"dueHours": "soon"},
		"nonpositive": {"dueHours": "-3"},
	}
	for name, pairs := range cases {
		t.Run(name, func(t *testing.T) {
			store := sheetstest.NewFakeStore()
			seedSettings(t, store, pairs)

			svc, err := NewService(store)
			if err != nil {
				t.Fatalf("NewService: %v", err)
			}
			hours, err := svc.DueHours(context.Background())
			if err != nil {
				t.Fatalf("DueHours: %v", err)
			}
			if hours != DefaultDueHours {
				t.Fatalf("expected default %d got %d", DefaultDueHours, hours)
			}
		})
	}
}

func TestDueHoursPropagatesStoreFailure(t *testing.T) {
	store := sheetstest.NewFakeStore()
	store.FailNext = true

	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.DueHours(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestEnumsSplitsLists(t *testing.T) {
	store := sheetstest.NewFakeStore()
	seedSettings(t, store, map[string]string{
		"sources":    "site, referral ,manual",
		"currencies": "USDT,IRR",
	})

	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	enums, err := svc.Enums(context.Background())
	if err != nil {
		t.Fatalf("Enums: %v", err)
	}
	if len(enums.Sources) != 3 || enums.Sources[1] != "referral" {
		t.Fatalf("sources not trimmed: %+v", enums.Sources)
	}
	if len(enums.Currencies) != 2 {
		t.Fatalf("currencies: %+v", enums.Currencies)
	}
	// Methods is unconstrained when the tab has no entry.
	if enums.Methods != nil {
		t.Fatalf("expected nil methods, got %+v", enums.Methods)
	}
}
