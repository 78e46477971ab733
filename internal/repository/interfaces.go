package repository

import (
	"context"
	"time"

	"aperture_studio/internal/domain/models"

	"github.com/google/uuid"
)

type GalleryRepository interface {
	CreateGallery(ctx context.Context, gallery models.Gallery) (uuid.UUID, error)
	UpdateGallery(ctx context.Context, gallery models.Gallery) error
	DeleteGallery(ctx context.Context, id uuid.UUID) error
	GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error)
	GetGalleryBySlug(ctx context.Context, slug string) (models.Gallery, error)
	ListGalleries(ctx context.Context, typeFilter string, page, perPage int) ([]models.Gallery, int, error)
	ReconcileImageCounts(ctx context.Context) (int, error)
}

type MediaRepository interface {
	// CreateMedia вставляет медиа, атомарно инкрементирует image_count
	// галереи и проставляет обложку, если это первый файл
	CreateMedia(ctx context.Context, media *models.Media) (*models.Media, error)
	// DeleteMedia удаляет строку и декрементирует image_count (не ниже нуля)
	DeleteMedia(ctx context.Context, id uuid.UUID) error
	DeleteAllByGallery(ctx context.Context, galleryID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.Media, error)
	// SetClientSelection атомарно меняет флаг и selection_count гранта,
	// возвращает новое значение счетчика
	SetClientSelection(ctx context.Context, grantID, mediaID uuid.UUID, desired bool) (int, error)
	SetPhotographerSelection(ctx context.Context, mediaID uuid.UUID, desired bool) error
	IncrementViewCount(ctx context.Context, mediaID uuid.UUID) error
	IncrementDownloadCount(ctx context.Context, mediaID uuid.UUID) error
}

type GrantRepository interface {
	// UpsertGrant создает или замещает единственный грант пары
	// (клиент, галерея); selection_count пересчитывается из живых данных
	UpsertGrant(ctx context.Context, grant models.AccessGrant) (models.AccessGrant, error)
	RevokeGrant(ctx context.Context, galleryID, clientID uuid.UUID) error
	GetGrant(ctx context.Context, galleryID, clientID uuid.UUID) (models.AccessGrant, error)
	ReconcileSelectionCounts(ctx context.Context) (int, error)
}

type PackageRepository interface {
	CreatePackage(ctx context.Context, pkg models.SelectionPackage) (uuid.UUID, error)
	GetPackageByID(ctx context.Context, id uuid.UUID) (models.SelectionPackage, error)
	// UpdatePackageStatus меняет статус только из ожидаемого состояния;
	// возвращает false, если переход не применился
	UpdatePackageStatus(ctx context.Context, id uuid.UUID, expected, next models.PackageStatus, at time.Time) (bool, error)
	ListPackagesByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.SelectionPackage, error)
	CountMediaInGallery(ctx context.Context, galleryID uuid.UUID, mediaIDs []uuid.UUID) (int, error)
}

type ProgressRepository interface {
	SaveProgress(ctx context.Context, progress models.ArchiveProgress, ttl time.Duration) error
	GetProgress(ctx context.Context, jobID string) (models.ArchiveProgress, error)
}
