package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/lib/logger/sl"
	"aperture_studio/internal/metrics"
	"aperture_studio/internal/repository"
	"aperture_studio/internal/storage"
	filestorage "aperture_studio/internal/storage/filestorage"
	"aperture_studio/internal/transport/http/dto"

	"github.com/google/uuid"
)

// UsageRecorder фиксирует факты скачивания; отказ учета не должен
// ломать сборку архива
type UsageRecorder interface {
	RecordDownload(ctx context.Context, mediaID uuid.UUID) error
}

type ArchiveService struct {
	log         *slog.Logger
	packages    repository.PackageRepository
	media       repository.MediaRepository
	galleries   repository.GalleryRepository
	progress    repository.ProgressRepository
	fileStorage filestorage.FileStorage
	usage       UsageRecorder

	fetchConcurrency int
	progressTTL      time.Duration
}

func NewArchiveService(
	log *slog.Logger,
	packages repository.PackageRepository,
	media repository.MediaRepository,
	galleries repository.GalleryRepository,
	progress repository.ProgressRepository,
	fileStorage filestorage.FileStorage,
	usage UsageRecorder,
	fetchConcurrency int,
	progressTTL time.Duration,
) *ArchiveService {
	if fetchConcurrency < 1 {
		fetchConcurrency = 1
	}
	return &ArchiveService{
		log:              log,
		packages:         packages,
		media:            media,
		galleries:        galleries,
		progress:         progress,
		fileStorage:      fileStorage,
		usage:            usage,
		fetchConcurrency: fetchConcurrency,
		progressTTL:      progressTTL,
	}
}

// ResolveDownloadLinks строит ссылки по снимку пакета в порядке
// снимка. Медиа, удаленные после фиксации снимка, перечисляются в
// failures и не валят операцию. Совпадающие исходные имена получают
// числовой суффикс, чтобы клиент не терял файлы при сохранении.
func (s *ArchiveService) ResolveDownloadLinks(ctx context.Context, packageID uuid.UUID) (dto.DownloadLinksResponse, error) {
	const op = "service.ArchiveService.ResolveDownloadLinks"
	log := s.log.With(
		slog.String("op", op),
		slog.String("package_id", packageID.String()),
	)

	pkg, err := s.packages.GetPackageByID(ctx, packageID)
	if err != nil {
		return dto.DownloadLinksResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	resp := dto.DownloadLinksResponse{PackageID: packageID}
	nameSeen := make(map[string]int, len(pkg.MediaIDs))

	for _, mediaID := range pkg.MediaIDs {
		media, err := s.media.FindByID(ctx, mediaID)
		if err != nil {
			if errors.Is(err, storage.ErrMediaNotFound) {
				resp.Failures = append(resp.Failures, models.LinkFailure{
					MediaID: mediaID,
					Reason:  "media deleted after snapshot",
				})
				continue
			}
			log.Error("media lookup failed", sl.Err(err))
			return dto.DownloadLinksResponse{}, fmt.Errorf("%s: %w", op, err)
		}

		filename := disambiguate(media.OriginalFilename, nameSeen)

		resp.Links = append(resp.Links, models.DownloadLink{
			MediaID:     media.ID,
			URL:         media.URL,
			Filename:    filename,
			Size:        media.Size,
			MimeType:    mimeTypeFor(media.Filename),
			StoragePath: filepath.Join("galleries", media.GalleryID.String(), media.Filename),
		})
	}

	if len(resp.Failures) > 0 {
		log.Warn("package snapshot references deleted media",
			slog.Int("failures", len(resp.Failures)))
	}

	return resp, nil
}

// BuildArchive собирает ZIP по снимку пакета. Файлы читаются из
// хранилища ограниченным числом воркеров, порядок в архиве повторяет
// порядок снимка. Нечитаемые файлы пропускаются, скачивание
// учитывается только для реально вошедших файлов.
func (s *ArchiveService) BuildArchive(ctx context.Context, packageID uuid.UUID, jobID string) (models.ArchiveResult, error) {
	const op = "service.ArchiveService.BuildArchive"
	log := s.log.With(
		slog.String("op", op),
		slog.String("package_id", packageID.String()),
		slog.String("job_id", jobID),
	)

	log.Info("building archive")

	pkg, err := s.packages.GetPackageByID(ctx, packageID)
	if err != nil {
		return models.ArchiveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	gallery, err := s.galleries.GetGalleryByID(ctx, pkg.GalleryID)
	if err != nil {
		return models.ArchiveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	links, err := s.ResolveDownloadLinks(ctx, packageID)
	if err != nil {
		return models.ArchiveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	total := len(pkg.MediaIDs)
	result := models.ArchiveResult{
		Filename: archiveFilename(gallery.Slug, pkg.Name),
		Total:    total,
	}

	for _, failure := range links.Failures {
		result.Skipped = append(result.Skipped, models.SkippedFile{
			MediaID: failure.MediaID,
			Reason:  failure.Reason,
		})
		metrics.ArchiveFilesTotal.WithLabelValues("skipped").Inc()
	}

	type fetched struct {
		link models.DownloadLink
		data []byte
		err  error
	}

	items := make([]fetched, len(links.Links))
	sem := make(chan struct{}, s.fetchConcurrency)

	var (
		wg        sync.WaitGroup
		progressM sync.Mutex
		completed int
	)

	s.saveProgress(ctx, jobID, 0, total, 0, false)

	for i := range links.Links {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				items[i] = fetched{link: links.Links[i], err: err}
				return
			}

			data, err := s.readObject(ctx, links.Links[i].StoragePath)
			items[i] = fetched{link: links.Links[i], data: data, err: err}

			// Запись прогресса под замком, чтобы счетчик в хранилище не откатывался
			progressM.Lock()
			completed++
			s.saveProgress(ctx, jobID, completed, total, 0, false)
			progressM.Unlock()
		}(i)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return models.ArchiveResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	var rawSize int64

	for _, item := range items {
		if item.err != nil {
			log.Warn("skipping unreadable file",
				slog.String("media_id", item.link.MediaID.String()),
				sl.Err(item.err),
			)
			result.Skipped = append(result.Skipped, models.SkippedFile{
				MediaID:  item.link.MediaID,
				Filename: item.link.Filename,
				Reason:   "object unreadable",
			})
			metrics.ArchiveFilesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		w, err := zw.Create(item.link.Filename)
		if err != nil {
			zw.Close()
			return models.ArchiveResult{}, fmt.Errorf("%s: %w", op, err)
		}
		if _, err := w.Write(item.data); err != nil {
			zw.Close()
			return models.ArchiveResult{}, fmt.Errorf("%s: %w", op, err)
		}

		rawSize += int64(len(item.data))
		result.Completed++
		metrics.ArchiveFilesTotal.WithLabelValues("included").Inc()

		if err := s.usage.RecordDownload(ctx, item.link.MediaID); err != nil {
			log.Warn("failed to record download", sl.Err(err))
		}
	}

	if err := zw.Close(); err != nil {
		return models.ArchiveResult{}, fmt.Errorf("%s: %w", op, err)
	}
	result.Data = buf.Bytes()

	compression := 0
	if rawSize > 0 {
		compression = int(100 - int64(len(result.Data))*100/rawSize)
		if compression < 0 {
			compression = 0
		}
	}

	s.saveProgress(ctx, jobID, total, total, compression, true)

	log.Info("archive built",
		slog.Int("completed", result.Completed),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("compression_percent", compression),
	)

	return result, nil
}

func (s *ArchiveService) GetProgress(ctx context.Context, jobID string) (models.ArchiveProgress, error) {
	const op = "service.ArchiveService.GetProgress"

	progress, err := s.progress.GetProgress(ctx, jobID)
	if err != nil {
		return models.ArchiveProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return progress, nil
}

func (s *ArchiveService) readObject(ctx context.Context, relPath string) ([]byte, error) {
	rc, err := s.fileStorage.Open(ctx, relPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// saveProgress пишет ход сборки лучшим усилием: потеря записи хуже
// для UX, чем для корректности, поэтому ошибка только логируется
func (s *ArchiveService) saveProgress(ctx context.Context, jobID string, completed, total, compression int, done bool) {
	if jobID == "" {
		return
	}

	err := s.progress.SaveProgress(ctx, models.ArchiveProgress{
		JobID:              jobID,
		Completed:          completed,
		Total:              total,
		CompressionPercent: compression,
		Done:               done,
		UpdatedAt:          time.Now().UTC(),
	}, s.progressTTL)
	if err != nil {
		s.log.Warn("failed to save archive progress",
			slog.String("job_id", jobID), sl.Err(err))
	}
}

func disambiguate(name string, seen map[string]int) string {
	key := strings.ToLower(name)
	seen[key]++
	if seen[key] == 1 {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", base, seen[key], ext)
}

func mimeTypeFor(filename string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// archiveFilename строит имя архива из slug галереи и имени пакета
func archiveFilename(slug, pkgName string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, slug+"-"+pkgName)

	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		sanitized = "package"
	}

	return sanitized + ".zip"
}
