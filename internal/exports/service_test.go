package exports

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/internal/orders"
	"github.com/freightdesk/logistics-backend/pkg/config"
	"github.com/freightdesk/logistics-backend/pkg/db"
	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/outbox"
)

func setupExportsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
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
);
CREATE TABLE IF NOT EXISTS exports (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  requested_by_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  file_path TEXT,
  row_count INTEGER NOT NULL DEFAULT 0,
  note TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)

	// In-memory sqlite gives each pooled connection its own database.
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return conn
}

type exportsEmitter struct {
	events []outbox.DomainEvent
}

func (s *exportsEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type exportsHarness struct {
	svc     Service
	db      *gorm.DB
	repo    *Repository
	emitter *exportsEmitter
	dir     string
}

func newExportsHarness(t *testing.T) *exportsHarness {
	t.Helper()

	conn := setupExportsTestDB(t)
	repo := NewRepository(conn)
	emitter := &exportsEmitter{}
	dir := t.TempDir()

	svc, err := NewService(ServiceParams{
		Repo:     repo,
		DBClient: db.NewWithConn(conn),
		Orders:   orders.NewRepository(conn),
		Emitter:  emitter,
		Config:   config.ExportsConfig{Dir: dir},
	})
	require.NoError(t, err)

	return &exportsHarness{svc: svc, db: conn, repo: repo, emitter: emitter, dir: dir}
}

type exportsFixture struct {
	companyID uuid.UUID
	profileID uuid.UUID
	productID uuid.UUID
}

func seedExportsFixture(t *testing.T, conn *gorm.DB) exportsFixture {
	t.Helper()

	fx := exportsFixture{
		companyID: uuid.New(),
		profileID: uuid.New(),
		productID: uuid.New(),
	}
	userID := uuid.New()
	require.NoError(t, conn.Create(&models.User{
		ID:    userID,
		Email: "viewer@acme.test",
	}).Error)
	require.NoError(t, conn.Create(&models.Profile{
		ID:        fx.profileID,
		UserID:    userID,
		CompanyID: fx.companyID,
		Role:      enums.RoleViewer,
		IsActive:  true,
	}).Error)
	require.NoError(t, conn.Create(&models.Product{
		ID:        fx.productID,
		CompanyID: fx.companyID,
		SKU:       "SKU-200",
		Name:      "Pallet SKU-200",
		IsActive:  true,
	}).Error)
	return fx
}

func seedExportOrder(t *testing.T, conn *gorm.DB, fx exportsFixture, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		ReferenceCode: uuid.New(),
		CompanyID:     fx.companyID,
		ProductID:     fx.productID,
		CreatedByID:   fx.profileID,
		Quantity:      4,
		Status:        status,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func seedExportJob(t *testing.T, conn *gorm.DB, fx exportsFixture, status enums.ExportStatus) *models.Export {
	t.Helper()

	export := &models.Export{
		ID:            uuid.New(),
		CompanyID:     fx.companyID,
		RequestedByID: fx.profileID,
		Status:        status,
	}
	require.NoError(t, conn.Create(export).Error)
	return export
}

func actorFor(fx exportsFixture) Actor {
	return Actor{
		UserID:    uuid.New(),
		ProfileID: fx.profileID,
		CompanyID: fx.companyID,
		Role:      enums.RoleViewer,
	}
}

func TestRequestExportQueuesGeneration(t *testing.T) {
	h := newExportsHarness(t)
	fx := seedExportsFixture(t, h.db)

	dto, err := h.svc.RequestExport(context.Background(), actorFor(fx), RequestExportInput{Note: "monthly"})
	require.NoError(t, err)
	assert.Equal(t, enums.ExportStatusPending, dto.Status)
	require.NotNil(t, dto.Note)
	assert.Equal(t, "monthly", *dto.Note)

	require.Len(t, h.emitter.events, 1)
	assert.Equal(t, enums.EventExportRequested, h.emitter.events[0].EventType)
}

func TestGenerateExportWritesRows(t *testing.T) {
	h := newExportsHarness(t)
	fx := seedExportsFixture(t, h.db)
	seedExportOrder(t, h.db, fx, enums.OrderStatusApproved)
	seedExportOrder(t, h.db, fx, enums.OrderStatusFailed)
	job := seedExportJob(t, h.db, fx, enums.ExportStatusPending)

	require.NoError(t, h.svc.GenerateExport(context.Background(), job.ID))

	reloaded, err := h.repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ExportStatusReady, reloaded.Status)
	assert.Equal(t, 2, reloaded.RowCount)
	require.NotNil(t, reloaded.FilePath)
	assert.NotNil(t, reloaded.CompletedAt)

	content, err := os.ReadFile(*reloaded.FilePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Reference Code,Product SKU,Quantity,Status,Created By", lines[0])
	assert.Contains(t, lines[1], "SKU-200")
	assert.Contains(t, lines[1], "viewer@acme.test")
}

func TestGenerateExportHeaderOnlyWhenNoOrders(t *testing.T) {
	h := newExportsHarness(t)
	fx := seedExportsFixture(t, h.db)
	job := seedExportJob(t, h.db, fx, enums.ExportStatusPending)

	require.NoError(t, h.svc.GenerateExport(context.Background(), job.ID))

	reloaded, err := h.repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ExportStatusReady, reloaded.Status)
	assert.Zero(t, reloaded.RowCount)
	require.NotNil(t, reloaded.FilePath)

	content, err := os.ReadFile(*reloaded.FilePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1, "an empty company still gets the header row")
	assert.Equal(t, "Reference Code,Product SKU,Quantity,Status,Created By", lines[0])
}

func TestGenerateExportSkipsSettledJobs(t *testing.T) {
	h := newExportsHarness(t)
	fx := seedExportsFixture(t, h.db)
	job := seedExportJob(t, h.db, fx, enums.ExportStatusReady)

	require.NoError(t, h.svc.GenerateExport(context.Background(), job.ID))

	reloaded, err := h.repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ExportStatusReady, reloaded.Status)
	assert.Nil(t, reloaded.FilePath)
}

func TestOpenDownloadStreamsReadyFile(t *testing.T) {
	h := newExportsHarness(t)
	fx := seedExportsFixture(t, h.db)
	seedExportOrder(t, h.db, fx, enums.OrderStatusApproved)
	job := seedExportJob(t, h.db, fx, enums.ExportStatusPending)
	require.NoError(t, h.svc.GenerateExport(context.Background(), job.ID))

	dto, reader, err := h.svc.OpenDownload(context.Background(), fx.companyID, job.ID)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, enums.ExportStatusReady, dto.Status)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Reference Code")
}

func TestOpenDownloadHidesForeignExports(t *testing.T) {
	h := newExportsHarness(t)
	fx := seedExportsFixture(t, h.db)
	job := seedExportJob(t, h.db, fx, enums.ExportStatusPending)
	require.NoError(t, h.svc.GenerateExport(context.Background(), job.ID))

	_, _, err := h.svc.OpenDownload(context.Background(), uuid.New(), job.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestOpenDownloadRejectsPendingJobs(t *testing.T) {
	h := newExportsHarness(t)
	fx := seedExportsFixture(t, h.db)
	job := seedExportJob(t, h.db, fx, enums.ExportStatusPending)

	_, _, err := h.svc.OpenDownload(context.Background(), fx.companyID, job.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
