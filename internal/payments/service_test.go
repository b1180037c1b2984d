package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/payboard/payboard-backend/internal/audit"
	"github.com/payboard/payboard-backend/pkg/cache"
	"github.com/payboard/payboard-backend/pkg/db/models"
	"github.com/payboard/payboard-backend/pkg/enums"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/outbox"
	"github.com/payboard/payboard-backend/pkg/pagination"
	"github.com/payboard/payboard-backend/pkg/sheets"
	"github.com/payboard/payboard-backend/pkg/sheets/sheetstest"
)

type fakeAudit struct {
	entries []audit.AppendInput
}

func (f *fakeAudit) Append(_ context.Context, _ *gorm.DB, input audit.AppendInput) (*models.AuditEntry, error) {
	f.entries = append(f.entries, input)
	return &models.AuditEntry{}, nil
}

func (f *fakeAudit) byPayment(id string) []audit.AppendInput {
	var out []audit.AppendInput
	for _, e := range f.entries {
		if e.PaymentID == id {
			out = append(out, e)
		}
	}
	return out
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeCache struct {
	data          map[string]string
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, ns cache.Namespace, key string) (string, bool, error) {
	v, ok := f.data[string(ns)+":"+key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, ns cache.Namespace, key, value string) error {
	f.data[string(ns)+":"+key] = value
	return nil
}

func (f *fakeCache) InvalidateAll(_ context.Context, _ cache.Namespace) error {
	f.data = map[string]string{}
	f.invalidations++
	return nil
}

type fakeInfo struct {
	hours int
}

func (f fakeInfo) DueHours(_ context.Context) (int, error) {
	if f.hours == 0 {
		return 48, nil
	}
	return f.hours, nil
}

type fixture struct {
	svc     Service
	store   *sheetstest.FakeStore
	audit   *fakeAudit
	emitter *fakeEmitter
	cache   *fakeCache
}

func newFixture(t *testing.T, now func() time.Time) *fixture {
	t.Helper()
	store := sheetstest.NewFakeStore()
	auditFake := &fakeAudit{}
	emitter := &fakeEmitter{}
	cacheFake := newFakeCache()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	svc, err := NewService(Deps{
		Store:  store,
		Audit:  auditFake,
		Events: emitter,
		Tx:     fakeTx{},
		Cache:  cacheFake,
		Info:   fakeInfo{},
		Logger: logg,
		Now:    now,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, store: store, audit: auditFake, emitter: emitter, cache: cacheFake}
}

func mustCreate(t *testing.T, fx *fixture, input CreateInput) *CreateResult {
	t.Helper()
	res, err := fx.svc.Create(context.Background(), Actor{DiscordID: "1001", Nickname: "ops"}, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res
}

func TestCreateComputesTotal(t *testing.T) {
	fx := newFixture(t, nil)
	res := mustCreate(t, fx, CreateInput{OwnerID: "42", Quantity: "10", UnitPrice: "5000", Currency: "USDT"})

	if res.Total != "50,000" {
		t.Fatalf("expected total 50,000 got %q", res.Total)
	}
	if !ValidID(res.UniqueID) {
		t.Fatalf("bad unique id %q", res.UniqueID)
	}

	got, err := fx.svc.Get(context.Background(), res.UniqueID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Total != "50,000" || got.Quantity != "10" || got.UnitPrice != "5,000" {
		t.Fatalf("unexpected amounts: %+v", got)
	}
	if got.PaidFlag {
		t.Fatal("new payment must start unpaid")
	}

	entries := fx.audit.byPayment(res.UniqueID)
	if len(entries) != 1 || entries[0].Action != enums.AuditActionCreate {
		t.Fatalf("expected one create audit entry, got %+v", entries)
	}
	if entries[0].Actor != "ops" {
		t.Fatalf("expected nickname actor, got %q", entries[0].Actor)
	}

	if len(fx.emitter.events) != 1 || fx.emitter.events[0].EventType != enums.OutboxEventPaymentCreated {
		t.Fatalf("expected one payment.created event, got %+v", fx.emitter.events)
	}
	if fx.cache.invalidations == 0 {
		t.Fatal("create must invalidate the payment-list cache")
	}
}

func TestCreateValidation(t *testing.T) {
	fx := newFixture(t, nil)
	cases := []CreateInput{
		{Quantity: "10", UnitPrice: "5000"},          // missing ownerId
		{OwnerID: "42", Quantity: "", UnitPrice: "5"},
		{OwnerID: "42", Quantity: "ten", UnitPrice: "5"},
		{OwnerID: "42", Quantity: "10", UnitPrice: "abc"},
	}
	for i, input := range cases {
		_, err := fx.svc.Create(context.Background(), Actor{DiscordID: "1001"}, input)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if fx.store.Appends != 0 {
		t.Fatal("invalid input must not reach the store")
	}
}

func TestCreateDefaultDueDate(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	fx := newFixture(t, func() time.Time { return now })
	res := mustCreate(t, fx, CreateInput{OwnerID: "42", Quantity: "1", UnitPrice: "100"})

	got, err := fx.svc.Get(context.Background(), res.UniqueID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// 12:00 UTC is 15:30 at the document's fixed offset.
	if got.CreatedAt != "2025-08-01 15:30:00" {
		t.Fatalf("unexpected createdAt %q", got.CreatedAt)
	}
	if got.DueAt != "2025-08-03 15:30:00" {
		t.Fatalf("unexpected dueAt %q", got.DueAt)
	}
}

func TestCreateIgnoresClientTotalAndExplicitDueAt(t *testing.T) {
	fx := newFixture(t, nil)
	res := mustCreate(t, fx, CreateInput{
		OwnerID: "42", Quantity: "3", UnitPrice: "7", DueAt: "2025-12-01 10:00:00",
	})
	got, err := fx.svc.Get(context.Background(), res.UniqueID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Total != "21" {
		t.Fatalf("expected computed total 21, got %q", got.Total)
	}
	if got.DueAt != "2025-12-01 10:00:00" {
		t.Fatalf("explicit dueAt not preserved: %q", got.DueAt)
	}
}

func TestUpdateRecomputesTotal(t *testing.T) {
	fx := newFixture(t, nil)
	res := mustCreate(t, fx, CreateInput{OwnerID: "42", Quantity: "10", UnitPrice: "5000"})

	newQuantity := "20"
	err := fx.svc.Update(context.Background(), Actor{DiscordID: "1001", Nickname: "ops"}, res.UniqueID, UpdateInput{Quantity: &newQuantity})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := fx.svc.Get(context.Background(), res.UniqueID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Total != "100,000" {
		t.Fatalf("expected recomputed total 100,000 got %q", got.Total)
	}

	entries := fx.audit.byPayment(res.UniqueID)
	if len(entries) != 2 {
		t.Fatalf("expected create+edit entries, got %d", len(entries))
	}
	edit := entries[1]
	if edit.Action != enums.AuditActionEdit {
		t.Fatalf("expected edit action, got %q", edit.Action)
	}
	if len(edit.Changes) != 2 {
		t.Fatalf("expected exactly quantity and total diffs, got %+v", edit.Changes)
	}
	q := edit.Changes[sheets.FieldQuantity]
	if q.Old != "10" || q.New != "20" {
		t.Fatalf("unexpected quantity diff %+v", q)
	}
	total := edit.Changes[sheets.FieldTotal]
	if total.Old != "50,000" || total.New != "100,000" {
		t.Fatalf("unexpected total diff %+v", total)
	}
}

func TestUpdateNoopEmitsNoAudit(t *testing.T) {
	fx := newFixture(t, nil)
	res := mustCreate(t, fx, CreateInput{OwnerID: "42", Quantity: "10", UnitPrice: "5000", Note: "x"})

	sameQuantity := "10"
	sameNote := "x"
	invalidationsBefore := fx.cache.invalidations
	err := fx.svc.Update(context.Background(), Actor{DiscordID: "1001"}, res.UniqueID, UpdateInput{Quantity: &sameQuantity, Note: &sameNote})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	entries := fx.audit.byPayment(res.UniqueID)
	if len(entries) != 1 {
		t.Fatalf("no-op update must not add audit entries, got %d", len(entries))
	}
	if fx.store.Updates != 0 {
		t.Fatal("no-op update must not write cells")
	}
	if fx.cache.invalidations != invalidationsBefore+1 {
		t.Fatal("update invalidates the payment-list cache unconditionally")
	}
}

func TestUpdateTotalOverride(t *testing.T) {
	fx := newFixture(t, nil)
	res := mustCreate(t, fx, CreateInput{OwnerID: "42", Quantity: "10", UnitPrice: "5000"})

	override := "999"
	err := fx.svc.Update(context.Background(), Actor{DiscordID: "1001"}, res.UniqueID, UpdateInput{Total: &override})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := fx.svc.Get(context.Background(), res.UniqueID)
	if got.Total != "999" {
		t.Fatalf("override not persisted: %q", got.Total)
	}

	edit := fx.audit.byPayment(res.UniqueID)[1]
	if len(edit.Changes) != 1 {
		t.Fatalf("expected only the total diff, got %+v", edit.Changes)
	}
	if c := edit.Changes[sheets.FieldTotal]; c.Old != "50,000" || c.New != "999" {
		t.Fatalf("unexpected override diff %+v", c)
	}
}

func TestSetPaidFlag(t *testing.T) {
	fx := newFixture(t, nil)
	res := mustCreate(t, fx, CreateInput{OwnerID: "42", Quantity: "1", UnitPrice: "1"})

	if err := fx.svc.SetPaid(context.Background(), Actor{DiscordID: "1001"}, res.UniqueID, true); err != nil {
		t.Fatalf("SetPaid: %v", err)
	}

	layout, _ := sheets.LayoutFor(sheets.TablePayments)
	raw := fx.store.Raw(sheets.TablePayments)
	if flag := raw[0][layout.MustOffset(sheets.FieldPaid)]; flag != "TRUE" {
		t.Fatalf("expected canonical TRUE, got %q", flag)
	}

	got, _ := fx.svc.Get(context.Background(), res.UniqueID)
	if !got.PaidFlag {
		t.Fatal("IsPaid must report true after SetPaid(true)")
	}

	entries := fx.audit.byPayment(res.UniqueID)
	if len(entries) != 2 {
		t.Fatalf("expected create+edit entries, got %d", len(entries))
	}
	c := entries[1].Changes[sheets.FieldPaid]
	if c.Old != "false" || c.New != "true" {
		t.Fatalf("unexpected paid diff %+v", c)
	}

	// Same truthiness again: normalized write happens, no new audit entry.
	if err := fx.svc.SetPaid(context.Background(), Actor{DiscordID: "1001"}, res.UniqueID, true); err != nil {
		t.Fatalf("SetPaid repeat: %v", err)
	}
	if len(fx.audit.byPayment(res.UniqueID)) != 2 {
		t.Fatal("repeated SetPaid with unchanged truthiness must not audit")
	}
}

func TestDeleteKeepsAuditHistory(t *testing.T) {
	fx := newFixture(t, nil)
	res := mustCreate(t, fx, CreateInput{OwnerID: "42", Quantity: "2", UnitPrice: "3"})

	if err := fx.svc.Delete(context.Background(), Actor{DiscordID: "1001"}, res.UniqueID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := fx.svc.Get(context.Background(), res.UniqueID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	entries := fx.audit.byPayment(res.UniqueID)
	if len(entries) != 2 {
		t.Fatalf("history must survive deletion, got %d entries", len(entries))
	}
	if entries[1].Action != enums.AuditActionDelete {
		t.Fatalf("expected delete entry, got %q", entries[1].Action)
	}
	if fx.emitter.events[len(fx.emitter.events)-1].EventType != enums.OutboxEventPaymentDeleted {
		t.Fatal("expected payment.deleted event")
	}
}

func TestDeleteShiftsFollowingRows(t *testing.T) {
	fx := newFixture(t, nil)
	first := mustCreate(t, fx, CreateInput{OwnerID: "1", Quantity: "1", UnitPrice: "1"})
	second := mustCreate(t, fx, CreateInput{OwnerID: "2", Quantity: "2", UnitPrice: "2"})

	if err := fx.svc.Delete(context.Background(), Actor{DiscordID: "1001"}, first.UniqueID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The second record moved up a row; a fresh resolution still finds it.
	got, err := fx.svc.Get(context.Background(), second.UniqueID)
	if err != nil {
		t.Fatalf("Get after shift: %v", err)
	}
	if got.OwnerID != "2" {
		t.Fatalf("resolved wrong record: %+v", got)
	}
}

func TestIsPaidPredicate(t *testing.T) {
	truthy := []string{"true", "TRUE", "True", " true ", "1", "YES", "yes", "y", "Y"}
	for _, v := range truthy {
		if !IsPaid(v) {
			t.Fatalf("IsPaid(%q) = false, want true", v)
		}
	}
	falsy := []string{"false", "FALSE", "", "  ", "0", "no", "paid", "2"}
	for _, v := range falsy {
		if IsPaid(v) {
			t.Fatalf("IsPaid(%q) = true, want false", v)
		}
	}
}

func TestUniqueIDFormatAndUniqueness(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := NewUniqueID()
		if !ValidID(id) {
			t.Fatalf("id %q does not match ^[0-9a-f]{12}$", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestListPaginationAndCache(t *testing.T) {
	fx := newFixture(t, nil)
	for _, owner := range []string{"1", "2", "3"} {
		mustCreate(t, fx, CreateInput{OwnerID: owner, Quantity: "1", UnitPrice: "1"})
	}

	page, err := fx.svc.List(context.Background(), pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Meta.Total != 3 {
		t.Fatalf("unexpected first page: %+v", page.Meta)
	}

	rest, err := fx.svc.List(context.Background(), pagination.Params{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List offset: %v", err)
	}
	if len(rest.Items) != 1 {
		t.Fatalf("expected one remaining item, got %d", len(rest.Items))
	}

	// The snapshot is cached now; a failing store must not be consulted.
	fx.store.FailNext = true
	cachedPage, err := fx.svc.List(context.Background(), pagination.Params{})
	if err != nil {
		t.Fatalf("List from cache: %v", err)
	}
	fx.store.FailNext = false
	if cachedPage.Meta.Total != 3 {
		t.Fatalf("cached snapshot lost rows: %+v", cachedPage.Meta)
	}

	// Any mutation drops the snapshot.
	mustCreate(t, fx, CreateInput{OwnerID: "4", Quantity: "1", UnitPrice: "1"})
	fresh, err := fx.svc.List(context.Background(), pagination.Params{})
	if err != nil {
		t.Fatalf("List after create: %v", err)
	}
	if fresh.Meta.Total != 4 {
		t.Fatalf("stale snapshot served after mutation: %+v", fresh.Meta)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	fx := newFixture(t, nil)
	mustCreate(t, fx, CreateInput{OwnerID: "1", Quantity: "1", UnitPrice: "1"})

	fx.store.FailNext = true
	_, err := fx.svc.Get(context.Background(), "aaaaaaaaaaaa")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
