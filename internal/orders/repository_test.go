package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  failed_order_count INTEGER NOT NULL DEFAULT 0,
  deactivated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  reference_code TEXT NOT NULL,
  company_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  created_by_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  processed INTEGER NOT NULL DEFAULT 0,
  failure_reason TEXT,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	// In-memory sqlite gives each pooled connection its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

type orderFixture struct {
	companyID uuid.UUID
	productID uuid.UUID
	profileID uuid.UUID
}

func seedOrderFixture(t *testing.T, db *gorm.DB) orderFixture {
	t.Helper()

	fx := orderFixture{
		companyID: uuid.New(),
		productID: uuid.New(),
		profileID: uuid.New(),
	}
	userID := uuid.New()
	require.NoError(t, db.Create(&models.User{
		ID:    userID,
		Email: "operator@acme.test",
	}).Error)
	require.NoError(t, db.Create(&models.Profile{
		ID:        fx.profileID,
		UserID:    userID,
		CompanyID: fx.companyID,
		Role:      enums.RoleOperator,
		IsActive:  true,
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		ID:            fx.productID,
		CompanyID:     fx.companyID,
		SKU:           "SKU-100",
		Name:          "Pallet SKU-100",
		StockQuantity: 10,
		IsActive:      true,
	}).Error)
	return fx
}

func newOrder(t *testing.T, db *gorm.DB, fx orderFixture, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		ReferenceCode: uuid.New(),
		CompanyID:     fx.companyID,
		ProductID:     fx.productID,
		CreatedByID:   fx.profileID,
		Quantity:      2,
		Status:        status,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestClaimPendingTxClaimsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)
	order := newOrder(t, db, fx, enums.OrderStatusPending)

	claimed, err := repo.ClaimPendingTx(db, order.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimPendingTx(db, order.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must see a non-pending order")
}

func TestFinalizeRequiresProcessing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)
	order := newOrder(t, db, fx, enums.OrderStatusPending)

	err := repo.FinalizeApprovedTx(db, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	claimed, err := repo.ClaimPendingTx(db, order.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.FinalizeApprovedTx(db, order.ID))

	reloaded, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusApproved, reloaded.Status)
	assert.True(t, reloaded.Processed)
	assert.NotNil(t, reloaded.ProcessedAt)
}

func TestFinalizeFailedRecordsReason(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)
	order := newOrder(t, db, fx, enums.OrderStatusProcessing)

	require.NoError(t, repo.FinalizeFailedTx(db, order.ID, "insufficient stock"))

	reloaded, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.FailureReason)
	assert.Equal(t, "insufficient stock", *reloaded.FailureReason)
}

func TestResetForRetryTxOnlyFromFailed(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)

	failed := newOrder(t, db, fx, enums.OrderStatusFailed)
	approved := newOrder(t, db, fx, enums.OrderStatusApproved)

	reset, err := repo.ResetForRetryTx(db, failed.ID, fx.companyID)
	require.NoError(t, err)
	assert.True(t, reset)

	reloaded, err := repo.FindByID(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status)
	assert.Nil(t, reloaded.FailureReason)

	reset, err = repo.ResetForRetryTx(db, approved.ID, fx.companyID)
	require.NoError(t, err)
	assert.False(t, reset, "approved orders must never reset")
}

func TestResetForRetryTxScopesToCompany(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)
	failed := newOrder(t, db, fx, enums.OrderStatusFailed)

	reset, err := repo.ResetForRetryTx(db, failed.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, reset, "foreign company must not retry the order")
}

func TestFindByIDForCompanyHidesForeignOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)
	order := newOrder(t, db, fx, enums.OrderStatusPending)

	found, err := repo.FindByIDForCompany(context.Background(), order.ID, fx.companyID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.Product)
	assert.Equal(t, "SKU-100", found.Product.SKU)

	foreign, err := repo.FindByIDForCompany(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, foreign)
}

func TestListFiltersByStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)

	newOrder(t, db, fx, enums.OrderStatusPending)
	newOrder(t, db, fx, enums.OrderStatusFailed)
	newOrder(t, db, fx, enums.OrderStatusFailed)

	failed := enums.OrderStatusFailed
	rows, err := repo.List(context.Background(), ListOrdersInput{
		CompanyID: fx.companyID,
		Status:    &failed,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.OrderStatusFailed, row.Status)
	}
}

func TestListScopesOperatorsToOwnOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)

	colleague := uuid.New()
	require.NoError(t, db.Create(&models.Profile{
		ID:        colleague,
		UserID:    uuid.New(),
		CompanyID: fx.companyID,
		Role:      enums.RoleOperator,
		IsActive:  true,
	}).Error)

	mine := newOrder(t, db, fx, enums.OrderStatusPending)
	other := newOrder(t, db, fx, enums.OrderStatusPending)
	require.NoError(t, db.Model(other).Update("created_by_id", colleague).Error)

	rows, err := repo.List(context.Background(), ListOrdersInput{
		CompanyID:   fx.companyID,
		RequestedBy: fx.profileID,
		Role:        enums.RoleOperator,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1, "operators only see orders they placed")
	assert.Equal(t, mine.ID, rows[0].ID)

	rows, err = repo.List(context.Background(), ListOrdersInput{
		CompanyID:   fx.companyID,
		RequestedBy: fx.profileID,
		Role:        enums.RoleAdmin,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "admins see the whole company")

	rows, err = repo.List(context.Background(), ListOrdersInput{
		CompanyID:   fx.companyID,
		RequestedBy: fx.profileID,
		Role:        enums.RoleViewer,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "viewers see the whole company")
}

func TestStreamExportRecordsJoinsAndOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	fx := seedOrderFixture(t, db)

	first := newOrder(t, db, fx, enums.OrderStatusApproved)
	require.NoError(t, db.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)
	second := newOrder(t, db, fx, enums.OrderStatusFailed)
	_ = second

	// A foreign company's order must never leak into the stream.
	foreign := seedOrderFixture(t, db)
	newOrder(t, db, foreign, enums.OrderStatusApproved)

	var recs []ExportRecord
	err := repo.StreamExportRecords(context.Background(), fx.companyID, func(rec *ExportRecord) error {
		recs = append(recs, *rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, first.ReferenceCode.String(), recs[0].ReferenceCode)
	assert.Equal(t, "SKU-100", recs[0].ProductSKU)
	assert.Equal(t, "operator@acme.test", recs[0].CreatedBy)
	assert.Equal(t, string(enums.OrderStatusApproved), recs[0].Status)
	assert.Equal(t, string(enums.OrderStatusFailed), recs[1].Status)
}

func TestStreamExportRecordsEmptyCompany(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	calls := 0
	err := repo.StreamExportRecords(context.Background(), uuid.New(), func(rec *ExportRecord) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}
