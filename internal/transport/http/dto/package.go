package dto

import (
	"aperture_studio/internal/domain/models"

	"github.com/google/uuid"
)

type CreatePackageRequest struct {
	GalleryID uuid.UUID   `json:"gallery_id" validate:"required"`
	ClientID  uuid.UUID   `json:"client_id" validate:"required"`
	Name      string      `json:"name" validate:"required"`
	Comments  string      `json:"comments"`
	MediaIDs  []uuid.UUID `json:"media_ids" validate:"required,min=1"`
}

// DownloadLinksResponse ссылки по снимку пакета; медиа, удаленные
// после фиксации снимка, попадают в failures
type DownloadLinksResponse struct {
	PackageID uuid.UUID             `json:"package_id"`
	Links     []models.DownloadLink `json:"links"`
	Failures  []models.LinkFailure  `json:"failures,omitempty"`
}

type ArchiveJobResponse struct {
	JobID string `json:"job_id"`
}
