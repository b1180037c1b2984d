package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/payboard/payboard-backend/pkg/db/models"
	"github.com/payboard/payboard-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AuditEntry{}))
	return db
}

func TestCreateAssignsID(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	entry := &models.AuditEntry{
		PaymentID: "a1b2c3d4e5f6",
		Action:    enums.AuditActionCreate,
		Actor:     "Alpha",
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEqual(t, entry.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestListByPaymentIDOrdersOldestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	changes, err := json.Marshal(map[string]any{"quantity": map[string]string{"old": "10", "new": "20"}})
	require.NoError(t, err)

	entries := []*models.AuditEntry{
		{PaymentID: "a1b2c3d4e5f6", Action: enums.AuditActionCreate, Actor: "Alpha", CreatedAt: base},
		{PaymentID: "a1b2c3d4e5f6", Action: enums.AuditActionEdit, Actor: "Beta", Changes: changes, CreatedAt: base.Add(time.Minute)},
		{PaymentID: "a1b2c3d4e5f6", Action: enums.AuditActionDelete, Actor: "Alpha", CreatedAt: base.Add(2 * time.Minute)},
		{PaymentID: "ffffffffffff", Action: enums.AuditActionCreate, Actor: "Alpha", CreatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}

	got, err := repo.ListByPaymentID(ctx, "a1b2c3d4e5f6")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, enums.AuditActionCreate, got[0].Action)
	assert.Equal(t, enums.AuditActionEdit, got[1].Action)
	assert.Equal(t, enums.AuditActionDelete, got[2].Action)
	assert.JSONEq(t, string(changes), string(got[1].Changes))
}

func TestHistorySurvivesUnrelatedPayments(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.AuditEntry{
		PaymentID: "a1b2c3d4e5f6",
		Action:    enums.AuditActionDelete,
		Actor:     "Alpha",
	}))

	got, err := repo.ListByPaymentID(ctx, "a1b2c3d4e5f6")
	require.NoError(t, err)
	require.Len(t, got, 1)

	empty, err := repo.ListByPaymentID(ctx, "000000000000")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
