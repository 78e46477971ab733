package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/lib/jwt"
	"aperture_studio/internal/lib/logger/sl"
	"aperture_studio/internal/repository"
	"aperture_studio/internal/storage"
	"aperture_studio/internal/transport/http/dto"

	"github.com/google/uuid"
)

type AccessService struct {
	log       *slog.Logger
	grants    repository.GrantRepository
	galleries repository.GalleryRepository

	tokenSecret string
	tokenTTL    time.Duration
	shareBase   string
}

func NewAccessService(
	log *slog.Logger,
	grants repository.GrantRepository,
	galleries repository.GalleryRepository,
	tokenSecret string,
	tokenTTL time.Duration,
	shareBase string,
) *AccessService {
	return &AccessService{
		log:         log,
		grants:      grants,
		galleries:   galleries,
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
		shareBase:   shareBase,
	}
}

// GrantAccess выдает или замещает грант пары (клиент, галерея) и
// выпускает подписанную ссылку. Повторная выдача для той же пары
// обновляет существующий грант, второго не появляется.
func (s *AccessService) GrantAccess(ctx context.Context, req dto.GrantAccessRequest) (dto.GrantAccessResponse, error) {
	const op = "service.AccessService.GrantAccess"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", req.GalleryID.String()),
		slog.String("client_id", req.ClientID.String()),
	)

	log.Info("granting access", slog.String("access_type", req.AccessType))

	if !models.IsValidAccessType(models.AccessType(req.AccessType)) {
		log.Error("invalid access type", slog.String("access_type", req.AccessType))
		return dto.GrantAccessResponse{}, fmt.Errorf("%s: invalid access type: %s", op, req.AccessType)
	}

	gallery, err := s.galleries.GetGalleryByID(ctx, req.GalleryID)
	if err != nil {
		log.Error("gallery lookup failed", sl.Err(err))
		return dto.GrantAccessResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	grant := models.AccessGrant{
		ID:                uuid.New(),
		GalleryID:         req.GalleryID,
		ClientID:          req.ClientID,
		ClientEmail:       req.ClientEmail,
		AccessType:        models.AccessType(req.AccessType),
		MaxSelections:     req.MaxSelections,
		SelectionDeadline: req.SelectionDeadline,
	}

	saved, err := s.grants.UpsertGrant(ctx, grant)
	if err != nil {
		log.Error("failed to upsert grant", sl.Err(err))
		return dto.GrantAccessResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := jwt.NewShareToken(saved, s.tokenSecret, s.tokenTTL)
	if err != nil {
		log.Error("failed to issue share token", sl.Err(err))
		return dto.GrantAccessResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("access granted", slog.String("grant_id", saved.ID.String()))

	return dto.GrantAccessResponse{
		Grant:      saved,
		ShareToken: token,
		ShareURL:   fmt.Sprintf("%s/client/galleries/%s?token=%s", s.shareBase, gallery.Slug, token),
	}, nil
}

func (s *AccessService) RevokeAccess(ctx context.Context, galleryID, clientID uuid.UUID) error {
	const op = "service.AccessService.RevokeAccess"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", galleryID.String()),
		slog.String("client_id", clientID.String()),
	)

	if err := s.grants.RevokeGrant(ctx, galleryID, clientID); err != nil {
		log.Error("failed to revoke grant", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("access revoked")
	return nil
}

func (s *AccessService) GetGrant(ctx context.Context, galleryID, clientID uuid.UUID) (models.AccessGrant, error) {
	const op = "service.AccessService.GetGrant"

	grant, err := s.grants.GetGrant(ctx, galleryID, clientID)
	if err != nil {
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	return grant, nil
}

// VerifyAccess проверяет, что у клиента есть грант на галерею и его
// уровень покрывает требуемый. Отсутствие гранта отдается как отказ
// в доступе, чтобы не раскрывать существование грантов.
func (s *AccessService) VerifyAccess(ctx context.Context, galleryID, clientID uuid.UUID, required models.AccessType) (models.AccessGrant, error) {
	const op = "service.AccessService.VerifyAccess"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", galleryID.String()),
		slog.String("client_id", clientID.String()),
	)

	grant, err := s.grants.GetGrant(ctx, galleryID, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrGrantNotFound) {
			log.Warn("no grant for client")
			return models.AccessGrant{}, fmt.Errorf("%s: %w", op, storage.ErrAccessDenied)
		}
		log.Error("grant lookup failed", sl.Err(err))
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	if !grant.AccessType.Dominates(required) {
		log.Warn("access level insufficient",
			slog.String("granted", string(grant.AccessType)),
			slog.String("required", string(required)),
		)
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, storage.ErrAccessDenied)
	}

	return grant, nil
}

// ReconcileSelectionCounts выравнивает кешированные счетчики грантов
// с фактическим числом выбранных медиа
func (s *AccessService) ReconcileSelectionCounts(ctx context.Context) (int, error) {
	const op = "service.AccessService.ReconcileSelectionCounts"
	log := s.log.With(slog.String("op", op))

	fixed, err := s.grants.ReconcileSelectionCounts(ctx)
	if err != nil {
		log.Error("reconcile failed", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if fixed > 0 {
		log.Warn("selection counts drifted", slog.Int("grants_fixed", fixed))
	}

	return fixed, nil
}
