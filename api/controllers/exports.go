package controllers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/api/middleware"
	"github.com/freightdesk/logistics-backend/api/responses"
	"github.com/freightdesk/logistics-backend/api/validators"
	exportsvc "github.com/freightdesk/logistics-backend/internal/exports"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
)

type requestExportRequest struct {
	Note string `json:"note" validate:"omitempty,max=255"`
}

// RequestExport queues a CSV export of the company's orders.
func RequestExport(svc exportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "export service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload requestExportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := exportsvc.Actor{
			UserID:    identity.UserID,
			ProfileID: identity.ProfileID,
			CompanyID: identity.CompanyID,
			Role:      identity.Role,
		}
		export, err := svc.RequestExport(r.Context(), actor, exportsvc.RequestExportInput{Note: payload.Note})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, export)
	}
}

// ListExports returns the caller's company export jobs, newest first.
func ListExports(svc exportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "export service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exports, err := svc.ListExports(r.Context(), identity.CompanyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, exports)
	}
}

// GetExport returns one export job from the caller's company.
func GetExport(svc exportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "export service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exportID, err := uuid.Parse(chi.URLParam(r, "exportID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid export id"))
			return
		}

		export, err := svc.GetExport(r.Context(), identity.CompanyID, exportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, export)
	}
}

// DownloadExport streams a finished export as a CSV attachment.
func DownloadExport(svc exportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "export service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exportID, err := uuid.Parse(chi.URLParam(r, "exportID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid export id"))
			return
		}

		export, reader, err := svc.OpenDownload(r.Context(), identity.CompanyID, exportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportsvc.FileName(export.ID)))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, reader); err != nil && logg != nil {
			// Headers are already out, all we can do is log the broken stream.
			logg.Error(r.Context(), "export download interrupted", err)
		}
	}
}
