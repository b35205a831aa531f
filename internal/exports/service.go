package exports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/internal/orders"
	"github.com/freightdesk/logistics-backend/pkg/config"
	"github.com/freightdesk/logistics-backend/pkg/db"
	dbmodels "github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/outbox"
)

const listLimit = 50

// Actor identifies the authenticated profile requesting an export.
type Actor struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	CompanyID uuid.UUID
	Role      enums.Role
}

func (a Actor) ref() *outbox.ActorRef {
	profileID := a.ProfileID
	companyID := a.CompanyID
	return &outbox.ActorRef{
		UserID:    a.UserID,
		ProfileID: &profileID,
		CompanyID: &companyID,
		Role:      a.Role.String(),
	}
}

// csvRow is the export file schema. Every export carries the header row even
// when the company has no orders yet.
type csvRow struct {
	ReferenceCode string `csv:"Reference Code"`
	ProductSKU    string `csv:"Product SKU"`
	Quantity      int    `csv:"Quantity"`
	Status        string `csv:"Status"`
	CreatedBy     string `csv:"Created By"`
}

// Service exposes export job operations: request, listing, the worker-side
// file generation, and the download handoff.
type Service interface {
	RequestExport(ctx context.Context, actor Actor, input RequestExportInput) (*ExportDTO, error)
	ListExports(ctx context.Context, companyID uuid.UUID) ([]ExportDTO, error)
	GetExport(ctx context.Context, companyID, exportID uuid.UUID) (*ExportDTO, error)
	GenerateExport(ctx context.Context, exportID uuid.UUID) error
	OpenDownload(ctx context.Context, companyID, exportID uuid.UUID) (*ExportDTO, io.ReadCloser, error)
}

type orderStreamer interface {
	StreamExportRecords(ctx context.Context, companyID uuid.UUID, fn func(rec *orders.ExportRecord) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	orders   orderStreamer
	emitter  eventEmitter
	cfg      config.ExportsConfig
	logg     *logger.Logger
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Repo     *Repository
	DBClient *db.Client
	Orders   orderStreamer
	Emitter  eventEmitter
	Config   config.ExportsConfig
	Logger   *logger.Logger
}

// NewService constructs an export service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("export repository required")
	}
	if params.DBClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order streamer required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if params.Config.Dir == "" {
		return nil, fmt.Errorf("exports directory required")
	}
	return &service{
		repo:     params.Repo,
		dbClient: params.DBClient,
		orders:   params.Orders,
		emitter:  params.Emitter,
		cfg:      params.Config,
		logg:     params.Logger,
	}, nil
}

// RequestExport records a pending export job and queues the file generation.
func (s *service) RequestExport(ctx context.Context, actor Actor, input RequestExportInput) (*ExportDTO, error) {
	export := &dbmodels.Export{
		ID:            uuid.New(),
		CompanyID:     actor.CompanyID,
		RequestedByID: actor.ProfileID,
		Status:        enums.ExportStatusPending,
	}
	if input.Note != "" {
		note := input.Note
		export.Note = &note
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.CreateTx(tx, export); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert export")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExportRequested,
			AggregateType: enums.AggregateExport,
			AggregateID:   export.ID,
			Actor:         actor.ref(),
			Version:       1,
			Data: map[string]any{
				"exportId":  export.ID.String(),
				"companyId": export.CompanyID.String(),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request export")
	}

	return NewExportDTO(export), nil
}

// ListExports returns the company's recent export jobs, newest first.
func (s *service) ListExports(ctx context.Context, companyID uuid.UUID) ([]ExportDTO, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID, listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list exports")
	}
	dtos := make([]ExportDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewExportDTO(&rows[i]))
	}
	return dtos, nil
}

func (s *service) GetExport(ctx context.Context, companyID, exportID uuid.UUID) (*ExportDTO, error) {
	export, err := s.repo.FindByIDForCompany(ctx, exportID, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load export")
	}
	if export == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "export not found")
	}
	return NewExportDTO(export), nil
}

// GenerateExport writes the CSV file for one pending export job. Jobs that
// already settled are a no-op so redelivered messages stay safe to ack.
func (s *service) GenerateExport(ctx context.Context, exportID uuid.UUID) error {
	export, err := s.repo.FindByID(ctx, exportID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load export")
	}
	if export == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "export not found")
	}
	if export.Status != enums.ExportStatusPending {
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "export_id", exportID.String())
			s.logg.Info(logCtx, "export not pending, skipping")
		}
		return nil
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fs: create exports dir")
	}

	filePath := filepath.Join(s.cfg.Dir, fileName(export.ID))
	file, err := os.Create(filePath)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fs: create export file")
	}

	rowCount, writeErr := s.writeCSV(ctx, file, export.CompanyID)
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(filePath)
		if _, markErr := s.repo.MarkFailed(ctx, exportID); markErr != nil && s.logg != nil {
			s.logg.Error(ctx, "marking export failed", markErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, writeErr, "write export file")
	}

	marked, err := s.repo.MarkReady(ctx, exportID, filePath, rowCount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark export ready")
	}
	if !marked {
		// Another worker settled the job first; drop our copy of the file.
		_ = os.Remove(filePath)
		return nil
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"export_id": exportID.String(),
			"row_count": rowCount,
		})
		s.logg.Info(logCtx, "export file written")
	}
	return nil
}

// writeCSV streams the company's orders into file one row at a time and
// returns the number of data rows written. A company with no orders still
// gets the header row.
func (s *service) writeCSV(ctx context.Context, file *os.File, companyID uuid.UUID) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows := make(chan interface{})
	count := 0
	streamErr := make(chan error, 1)
	go func() {
		defer close(rows)
		streamErr <- s.orders.StreamExportRecords(ctx, companyID, func(rec *orders.ExportRecord) error {
			row := csvRow{
				ReferenceCode: rec.ReferenceCode,
				ProductSKU:    rec.ProductSKU,
				Quantity:      rec.Quantity,
				Status:        rec.Status,
				CreatedBy:     rec.CreatedBy,
			}
			select {
			case rows <- row:
				count++
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(file))
	err := gocsv.MarshalChan(rows, writer)
	if errors.Is(err, gocsv.ErrChannelIsClosed) {
		// No rows streamed; emit the header-only file.
		err = gocsv.MarshalCSV(&[]csvRow{}, writer)
	}
	if err != nil {
		cancel()
		<-streamErr
		return 0, err
	}
	if err := <-streamErr; err != nil {
		return 0, err
	}
	return count, nil
}

// OpenDownload hands back the export metadata plus an open reader for the
// file. Exports owned by other companies and jobs that are not ready yet are
// both reported as missing.
func (s *service) OpenDownload(ctx context.Context, companyID, exportID uuid.UUID) (*ExportDTO, io.ReadCloser, error) {
	export, err := s.repo.FindByIDForCompany(ctx, exportID, companyID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load export")
	}
	if export == nil || export.Status != enums.ExportStatusReady || export.FilePath == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "export not found")
	}

	file, err := os.Open(*export.FilePath)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fs: open export file")
	}
	return NewExportDTO(export), file, nil
}

// FileName returns the client-facing download name for an export.
func FileName(exportID uuid.UUID) string {
	return fileName(exportID)
}

func fileName(exportID uuid.UUID) string {
	return fmt.Sprintf("orders-%s.csv", exportID)
}
