package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/lib/logger/sl"
	"aperture_studio/internal/repository"
	"aperture_studio/internal/storage"
	"aperture_studio/internal/transport/http/dto"

	"github.com/google/uuid"
)

type PackageService struct {
	log       *slog.Logger
	packages  repository.PackageRepository
	galleries repository.GalleryRepository
	grants    repository.GrantRepository

	now func() time.Time
}

func NewPackageService(
	log *slog.Logger,
	packages repository.PackageRepository,
	galleries repository.GalleryRepository,
	grants repository.GrantRepository,
) *PackageService {
	return &PackageService{
		log:       log,
		packages:  packages,
		galleries: galleries,
		grants:    grants,
		now:       time.Now,
	}
}

// CreatePackage фиксирует именованный снимок медиа в статусе draft.
// Все медиа обязаны принадлежать галерее на момент создания; после
// фиксации снимок не меняется.
func (s *PackageService) CreatePackage(ctx context.Context, req dto.CreatePackageRequest) (models.SelectionPackage, error) {
	const op = "service.PackageService.CreatePackage"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", req.GalleryID.String()),
		slog.String("name", req.Name),
	)

	log.Info("creating package", slog.Int("media_count", len(req.MediaIDs)))

	if _, err := s.galleries.GetGalleryByID(ctx, req.GalleryID); err != nil {
		log.Error("gallery lookup failed", sl.Err(err))
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}

	unique := dedupeIDs(req.MediaIDs)
	if len(unique) == 0 {
		return models.SelectionPackage{}, fmt.Errorf("%s: media list is empty", op)
	}

	owned, err := s.packages.CountMediaInGallery(ctx, req.GalleryID, unique)
	if err != nil {
		log.Error("media ownership check failed", sl.Err(err))
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}
	if owned != len(unique) {
		log.Warn("package references foreign or missing media",
			slog.Int("requested", len(unique)),
			slog.Int("owned", owned),
		)
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}

	pkg := models.SelectionPackage{
		ID:        uuid.New(),
		GalleryID: req.GalleryID,
		ClientID:  req.ClientID,
		Name:      req.Name,
		Comments:  req.Comments,
		Status:    models.PackageStatusDraft,
		MediaIDs:  unique,
	}

	id, err := s.packages.CreatePackage(ctx, pkg)
	if err != nil {
		log.Error("failed to create package", sl.Err(err))
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.packages.GetPackageByID(ctx, id)
	if err != nil {
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("package created", slog.String("package_id", id.String()))
	return created, nil
}

func (s *PackageService) GetPackage(ctx context.Context, id uuid.UUID) (models.SelectionPackage, error) {
	const op = "service.PackageService.GetPackage"

	pkg, err := s.packages.GetPackageByID(ctx, id)
	if err != nil {
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}

	return pkg, nil
}

func (s *PackageService) ListPackagesByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.SelectionPackage, error) {
	const op = "service.PackageService.ListPackagesByGallery"

	packages, err := s.packages.ListPackagesByGallery(ctx, galleryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return packages, nil
}

// ApprovePackage переводит пакет draft -> approved
func (s *PackageService) ApprovePackage(ctx context.Context, id uuid.UUID) (models.SelectionPackage, error) {
	return s.transition(ctx, id, models.PackageStatusApproved)
}

// MarkDelivered переводит пакет approved -> delivered и готовит данные
// для внешнего сервиса нотификаций. Сервис их только отдает, доставку
// не гарантирует.
func (s *PackageService) MarkDelivered(ctx context.Context, id uuid.UUID) (models.SelectionPackage, models.NotificationPayload, error) {
	const op = "service.PackageService.MarkDelivered"
	log := s.log.With(
		slog.String("op", op),
		slog.String("package_id", id.String()),
	)

	pkg, err := s.transition(ctx, id, models.PackageStatusDelivered)
	if err != nil {
		return models.SelectionPackage{}, models.NotificationPayload{}, err
	}

	payload := models.NotificationPayload{Package: pkg}

	grant, err := s.grants.GetGrant(ctx, pkg.GalleryID, pkg.ClientID)
	if err != nil {
		if !errors.Is(err, storage.ErrGrantNotFound) {
			log.Warn("grant lookup for notification failed", sl.Err(err))
		}
	} else {
		payload.ClientEmail = grant.ClientEmail
		if gallery, err := s.galleries.GetGalleryByID(ctx, pkg.GalleryID); err == nil {
			payload.Deadline = gallery.EffectiveSelectionDeadline(&grant)
		}
	}

	log.Info("package delivered")
	return pkg, payload, nil
}

// transition применяет переход статуса с CAS-защитой: конкурирующее
// изменение статуса между чтением и записью даст ErrInvalidStateTransition,
// а не двойной переход
func (s *PackageService) transition(ctx context.Context, id uuid.UUID, next models.PackageStatus) (models.SelectionPackage, error) {
	const op = "service.PackageService.transition"
	log := s.log.With(
		slog.String("op", op),
		slog.String("package_id", id.String()),
		slog.String("next", string(next)),
	)

	pkg, err := s.packages.GetPackageByID(ctx, id)
	if err != nil {
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}

	if !pkg.Status.CanTransitionTo(next) {
		log.Warn("transition not allowed", slog.String("current", string(pkg.Status)))
		return models.SelectionPackage{}, fmt.Errorf("%s: %s -> %s: %w", op, pkg.Status, next, storage.ErrInvalidStateTransition)
	}

	applied, err := s.packages.UpdatePackageStatus(ctx, id, pkg.Status, next, s.now().UTC())
	if err != nil {
		log.Error("failed to update status", sl.Err(err))
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		log.Warn("concurrent status change detected")
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, storage.ErrInvalidStateTransition)
	}

	updated, err := s.packages.GetPackageByID(ctx, id)
	if err != nil {
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("package status updated")
	return updated, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
