package services

import (
	"context"
	"fmt"
	"log/slog"

	"aperture_studio/internal/lib/logger/sl"
	"aperture_studio/internal/repository"

	"github.com/google/uuid"
)

// UsageService ведет счетчики просмотров и скачиваний.
type UsageService struct {
	log   *slog.Logger
	media repository.MediaRepository
}

func NewUsageService(log *slog.Logger, media repository.MediaRepository) *UsageService {
	return &UsageService{
		log:   log,
		media: media,
	}
}

// RecordView инкрементирует счетчик просмотров и отметку последнего
// просмотра
func (s *UsageService) RecordView(ctx context.Context, mediaID uuid.UUID) error {
	const op = "service.UsageService.RecordView"

	if err := s.media.IncrementViewCount(ctx, mediaID); err != nil {
		s.log.Warn("failed to record view",
			slog.String("op", op),
			slog.String("media_id", mediaID.String()),
			sl.Err(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RecordDownload инкрементирует счетчик скачиваний
func (s *UsageService) RecordDownload(ctx context.Context, mediaID uuid.UUID) error {
	const op = "service.UsageService.RecordDownload"

	if err := s.media.IncrementDownloadCount(ctx, mediaID); err != nil {
		s.log.Warn("failed to record download",
			slog.String("op", op),
			slog.String("media_id", mediaID.String()),
			sl.Err(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
