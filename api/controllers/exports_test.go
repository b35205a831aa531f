package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/api/middleware"
	exportsvc "github.com/freightdesk/logistics-backend/internal/exports"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
)

type stubDownloadExportService struct {
	dto    *exportsvc.ExportDTO
	reader io.ReadCloser
}

func (s *stubDownloadExportService) RequestExport(context.Context, exportsvc.Actor, exportsvc.RequestExportInput) (*exportsvc.ExportDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *stubDownloadExportService) ListExports(context.Context, uuid.UUID) ([]exportsvc.ExportDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *stubDownloadExportService) GetExport(context.Context, uuid.UUID, uuid.UUID) (*exportsvc.ExportDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *stubDownloadExportService) GenerateExport(context.Context, uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *stubDownloadExportService) OpenDownload(context.Context, uuid.UUID, uuid.UUID) (*exportsvc.ExportDTO, io.ReadCloser, error) {
	return s.dto, s.reader, nil
}

// brokenReader yields one chunk and then fails, like a stream cut mid-copy.
type brokenReader struct {
	sent bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.sent {
		return 0, errors.New("stream reset")
	}
	b.sent = true
	return copy(p, []byte("Reference Code,Product SKU\n")), nil
}

func (b *brokenReader) Close() error { return nil }

func TestDownloadExportToleratesBrokenStreamWithNilLogger(t *testing.T) {
	exportID := uuid.New()
	stub := &stubDownloadExportService{
		dto: &exportsvc.ExportDTO{
			ID:     exportID,
			Status: enums.ExportStatusReady,
		},
		reader: &brokenReader{},
	}

	ctx := middleware.WithIdentity(context.Background(), middleware.Identity{
		UserID:    uuid.New(),
		ProfileID: uuid.New(),
		CompanyID: uuid.New(),
		Role:      enums.RoleViewer,
	})
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("exportID", exportID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodGet, "/api/exports/"+exportID.String()+"/download", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	DownloadExport(stub, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("headers go out before the copy, expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("unexpected content type: %s", got)
	}
	if body := rec.Body.String(); body != "Reference Code,Product SKU\n" {
		t.Fatalf("expected the partial chunk to be written, got %q", body)
	}
}
