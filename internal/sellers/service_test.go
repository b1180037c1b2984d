package sellers

import (
	"context"
	"io"
	"testing"

	"github.com/payboard/payboard-backend/pkg/cache"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/sheets/sheetstest"
)

type fakeProfileCache struct {
	data map[string]string
}

func (f *fakeProfileCache) Get(_ context.Context, ns cache.Namespace, key string) (string, bool, error) {
	v, ok := f.data[string(ns)+":"+key]
	return v, ok, nil
}

func (f *fakeProfileCache) Set(_ context.Context, ns cache.Namespace, key, value string) error {
	f.data[string(ns)+":"+key] = value
	return nil
}

func (f *fakeProfileCache) Invalidate(_ context.Context, ns cache.Namespace, key string) error {
	delete(f.data, string(ns)+":"+key)
	return nil
}

func newSellerFixture(t *testing.T) (Service, *sheetstest.FakeStore) {
	t.Helper()
	store := sheetstest.NewFakeStore()
	svc, err := NewService(store, &fakeProfileCache{data: map[string]string{}},
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestSaveCreatesThenUpdatesInPlace(t *testing.T) {
	svc, store := newSellerFixture(t)

	first, err := svc.Save(context.Background(), "42", SaveInput{PayeeName: "Alice", CardNumber: "1111"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.PayeeName != "Alice" {
		t.Fatalf("unexpected profile %+v", first)
	}

	second, err := svc.Save(context.Background(), "42", SaveInput{PayeeName: "Alice", CardNumber: "2222"})
	if err != nil {
		t.Fatalf("Save update: %v", err)
	}
	if second.CardNumber != "2222" {
		t.Fatalf("update not applied: %+v", second)
	}
	if store.Appends != 1 {
		t.Fatalf("second save must update in place, appends=%d", store.Appends)
	}

	got, err := svc.Get(context.Background(), "42")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CardNumber != "2222" {
		t.Fatalf("stale profile after save: %+v", got)
	}
}

func TestGetMissingProfile(t *testing.T) {
	svc, _ := newSellerFixture(t)
	_, err := svc.Get(context.Background(), "404")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetServedFromCache(t *testing.T) {
	svc, store := newSellerFixture(t)

	if _, err := svc.Save(context.Background(), "42", SaveInput{PayeeName: "Alice"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.Get(context.Background(), "42"); err != nil {
		t.Fatalf("warm: %v", err)
	}

	store.FailNext = true
	got, err := svc.Get(context.Background(), "42")
	if err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	store.FailNext = false
	if got.PayeeName != "Alice" {
		t.Fatalf("unexpected cached profile %+v", got)
	}
}
