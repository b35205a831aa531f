package exports

import (
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// ExportDTO is the API shape for an export job. The on-disk file path stays
// server-side; clients fetch the file through the download endpoint.
type ExportDTO struct {
	ID          uuid.UUID          `json:"id"`
	Status      enums.ExportStatus `json:"status"`
	RowCount    int                `json:"row_count"`
	Note        *string            `json:"note,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewExportDTO maps the persistence model to the API shape.
func NewExportDTO(export *models.Export) *ExportDTO {
	if export == nil {
		return nil
	}
	return &ExportDTO{
		ID:          export.ID,
		Status:      export.Status,
		RowCount:    export.RowCount,
		Note:        export.Note,
		CompletedAt: export.CompletedAt,
		CreatedAt:   export.CreatedAt,
	}
}

// RequestExportInput holds the validated payload to request an export.
type RequestExportInput struct {
	Note string
}
