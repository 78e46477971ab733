package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/lib/logger/sl"
	"aperture_studio/internal/metrics"
	"aperture_studio/internal/repository"
	"aperture_studio/internal/storage"

	"github.com/google/uuid"
)

type SelectionService struct {
	log       *slog.Logger
	galleries repository.GalleryRepository
	media     repository.MediaRepository
	grants    repository.GrantRepository

	// Мьютексы на пару (галерея, клиент): конкурентные переключения
	// одного клиента сериализуются, чтобы проверка квоты и запись
	// счетчика не разъезжались
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewSelectionService(
	log *slog.Logger,
	galleries repository.GalleryRepository,
	media repository.MediaRepository,
	grants repository.GrantRepository,
) *SelectionService {
	return &SelectionService{
		log:       log,
		galleries: galleries,
		media:     media,
		grants:    grants,
		locks:     make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// SetClientSelection устанавливает флаг клиентского выбора. Порядок
// проверок: доступ, принадлежность медиа, квота, дедлайн. Дедлайн
// замораживает и выбор, и снятие; квота проверяется только для новых
// выборов. Повторная установка того же значения не считается ошибкой.
func (s *SelectionService) SetClientSelection(ctx context.Context, galleryID, clientID, mediaID uuid.UUID, desired bool) (models.SelectionResult, error) {
	const op = "service.SelectionService.SetClientSelection"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", galleryID.String()),
		slog.String("client_id", clientID.String()),
		slog.String("media_id", mediaID.String()),
		slog.Bool("desired", desired),
	)

	lock := s.lockFor(galleryID, clientID)
	lock.Lock()
	defer lock.Unlock()

	grant, err := s.grants.GetGrant(ctx, galleryID, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrGrantNotFound) {
			log.Warn("no grant for client")
			metrics.SelectionTogglesTotal.WithLabelValues("client", "denied").Inc()
			return models.SelectionResult{}, fmt.Errorf("%s: %w", op, storage.ErrAccessDenied)
		}
		log.Error("grant lookup failed", sl.Err(err))
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !grant.AccessType.Dominates(models.AccessTypeSelect) {
		log.Warn("access level does not permit selection",
			slog.String("granted", string(grant.AccessType)))
		metrics.SelectionTogglesTotal.WithLabelValues("client", "denied").Inc()
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, storage.ErrAccessDenied)
	}

	media, err := s.media.FindByID(ctx, mediaID)
	if err != nil {
		log.Warn("media lookup failed", sl.Err(err))
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if media.GalleryID != galleryID {
		log.Warn("media belongs to another gallery")
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}

	gallery, err := s.galleries.GetGalleryByID(ctx, galleryID)
	if err != nil {
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, err)
	}

	// Квота проверяется раньше дедлайна и только для новых выборов
	if desired && !media.ClientSelected && grant.QuotaReached() {
		log.Warn("selection quota exhausted", slog.Int("selection_count", grant.SelectionCount))
		metrics.SelectionTogglesTotal.WithLabelValues("client", "quota").Inc()
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, storage.ErrQuotaExceeded)
	}

	// Момент ровно на дедлайне еще валиден, после наступает заморозка
	if deadline := gallery.EffectiveSelectionDeadline(&grant); deadline != nil && s.now().After(*deadline) {
		log.Warn("selection deadline passed", slog.Time("deadline", *deadline))
		metrics.SelectionTogglesTotal.WithLabelValues("client", "deadline").Inc()
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, storage.ErrDeadlinePassed)
	}

	if media.ClientSelected == desired {
		metrics.SelectionTogglesTotal.WithLabelValues("client", "noop").Inc()
		return models.SelectionResult{
			MediaID:        mediaID,
			Previous:       desired,
			Current:        desired,
			Changed:        false,
			SelectionCount: grant.SelectionCount,
		}, nil
	}

	newCount, err := s.media.SetClientSelection(ctx, grant.ID, mediaID, desired)
	if err != nil {
		log.Error("failed to set selection", sl.Err(err))
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SelectionTogglesTotal.WithLabelValues("client", "changed").Inc()
	log.Info("selection changed", slog.Int("selection_count", newCount))

	return models.SelectionResult{
		MediaID:        mediaID,
		Previous:       !desired,
		Current:        desired,
		Changed:        true,
		SelectionCount: newCount,
	}, nil
}

// SetPhotographerSelection устанавливает отметку фотографа. Квота,
// дедлайн и гранты на фотографа не распространяются.
func (s *SelectionService) SetPhotographerSelection(ctx context.Context, galleryID, mediaID uuid.UUID, desired bool) (models.SelectionResult, error) {
	const op = "service.SelectionService.SetPhotographerSelection"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", galleryID.String()),
		slog.String("media_id", mediaID.String()),
		slog.Bool("desired", desired),
	)

	media, err := s.media.FindByID(ctx, mediaID)
	if err != nil {
		log.Warn("media lookup failed", sl.Err(err))
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if media.GalleryID != galleryID {
		log.Warn("media belongs to another gallery")
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}

	if media.PhotographerSelected == desired {
		metrics.SelectionTogglesTotal.WithLabelValues("photographer", "noop").Inc()
		return models.SelectionResult{
			MediaID:  mediaID,
			Previous: desired,
			Current:  desired,
			Changed:  false,
		}, nil
	}

	if err := s.media.SetPhotographerSelection(ctx, mediaID, desired); err != nil {
		log.Error("failed to set selection", sl.Err(err))
		return models.SelectionResult{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SelectionTogglesTotal.WithLabelValues("photographer", "changed").Inc()
	log.Info("photographer selection changed")

	return models.SelectionResult{
		MediaID:  mediaID,
		Previous: !desired,
		Current:  desired,
		Changed:  true,
	}, nil
}

func (s *SelectionService) lockFor(galleryID, clientID uuid.UUID) *sync.Mutex {
	key := galleryID.String() + ":" + clientID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
