package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"aperture_studio/internal/domain/models"
	appimaging "aperture_studio/internal/lib/imaging"
	"aperture_studio/internal/lib/logger/sl"
	"aperture_studio/internal/repository"
	"aperture_studio/internal/storage"
	filestorage "aperture_studio/internal/storage/filestorage"
	"aperture_studio/internal/transport/http/dto"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

type GalleryService struct {
	log         *slog.Logger
	galleries   repository.GalleryRepository
	media       repository.MediaRepository
	fileStorage filestorage.FileStorage
	prober      appimaging.Prober
	slugCache   *gocache.Cache

	maxFileSize    int64
	thumbnailWidth int
}

func NewGalleryService(
	log *slog.Logger,
	galleries repository.GalleryRepository,
	media repository.MediaRepository,
	fileStorage filestorage.FileStorage,
	prober appimaging.Prober,
	maxFileSize int64,
	thumbnailWidth int,
) *GalleryService {
	return &GalleryService{
		log:            log,
		galleries:      galleries,
		media:          media,
		fileStorage:    fileStorage,
		prober:         prober,
		slugCache:      gocache.New(5*time.Minute, 10*time.Minute),
		maxFileSize:    maxFileSize,
		thumbnailWidth: thumbnailWidth,
	}
}

// CreateGallery создает новую галерею. Пустой slug генерируется из
// заголовка; занятый slug возвращает storage.ErrSlugTaken.
func (s *GalleryService) CreateGallery(ctx context.Context, req dto.CreateGalleryRequest) (uuid.UUID, error) {
	const op = "service.GalleryService.CreateGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("title", req.Title),
	)

	log.Info("creating gallery")

	if !models.IsValidGalleryType(models.GalleryType(req.GalleryType)) {
		log.Error("invalid gallery type", slog.String("gallery_type", req.GalleryType))
		return uuid.Nil, fmt.Errorf("%s: invalid gallery type: %s", op, req.GalleryType)
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Title)
	}

	if err := s.ensureSlugFree(ctx, slug, uuid.Nil); err != nil {
		log.Warn("slug is not available", slog.String("slug", slug))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	gallery := models.Gallery{
		Title:                  req.Title,
		Slug:                   slug,
		Description:            req.Description,
		GalleryType:            models.GalleryType(req.GalleryType),
		IsPublic:               req.IsPublic,
		AllowDownloads:         req.AllowDownloads,
		AllowSharing:           req.AllowSharing,
		WatermarkEnabled:       req.WatermarkEnabled,
		ExpiryDate:             req.ExpiryDate,
		SelectionDeadline:      req.SelectionDeadline,
		RequiredSelectionCount: req.RequiredSelectionCount,
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to hash password", sl.Err(err))
			return uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}
		gallery.PasswordHash = hash
		gallery.IsPasswordProtected = true
	}

	id, err := s.galleries.CreateGallery(ctx, gallery)
	if err != nil {
		log.Error("failed to create gallery", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("gallery created successfully", slog.String("id", id.String()))
	return id, nil
}

// UpdateGallery обновляет данные галереи. Пароль nil не трогает хеш,
// пустая строка снимает защиту, иначе перехешируем.
func (s *GalleryService) UpdateGallery(ctx context.Context, req dto.UpdateGalleryRequest) error {
	const op = "service.GalleryService.UpdateGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", req.ID.String()),
	)

	log.Info("updating gallery")

	current, err := s.galleries.GetGalleryByID(ctx, req.ID)
	if err != nil {
		log.Error("failed to load gallery", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if !models.IsValidGalleryType(models.GalleryType(req.GalleryType)) {
		return fmt.Errorf("%s: invalid gallery type: %s", op, req.GalleryType)
	}

	oldSlug := current.Slug

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Title)
	}
	if slug != current.Slug {
		if err := s.ensureSlugFree(ctx, slug, req.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	current.Title = req.Title
	current.Slug = slug
	current.Description = req.Description
	current.GalleryType = models.GalleryType(req.GalleryType)
	current.IsPublic = req.IsPublic
	current.AllowDownloads = req.AllowDownloads
	current.AllowSharing = req.AllowSharing
	current.WatermarkEnabled = req.WatermarkEnabled
	current.ExpiryDate = req.ExpiryDate
	current.SelectionDeadline = req.SelectionDeadline
	current.RequiredSelectionCount = req.RequiredSelectionCount

	if req.Password != nil {
		if *req.Password == "" {
			current.PasswordHash = nil
			current.IsPasswordProtected = false
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			current.PasswordHash = hash
			current.IsPasswordProtected = true
		}
	}

	if err := s.galleries.UpdateGallery(ctx, current); err != nil {
		log.Error("failed to update gallery", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	// При переименовании сбрасывается и старый slug, иначе он отдает устаревшую запись
	s.slugCache.Delete(oldSlug)
	s.slugCache.Delete(current.Slug)

	log.Info("gallery updated successfully")
	return nil
}

func (s *GalleryService) GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error) {
	const op = "service.GalleryService.GetGalleryByID"

	gallery, err := s.galleries.GetGalleryByID(ctx, id)
	if err != nil {
		return models.Gallery{}, fmt.Errorf("%s: %w", op, err)
	}

	return gallery, nil
}

// GetGalleryBySlug возвращает галерею по slug, используя короткий кеш:
// клиентские страницы дергают этот путь на каждый заход
func (s *GalleryService) GetGalleryBySlug(ctx context.Context, slug string) (models.Gallery, error) {
	const op = "service.GalleryService.GetGalleryBySlug"

	if cached, found := s.slugCache.Get(slug); found {
		if gallery, ok := cached.(models.Gallery); ok {
			return gallery, nil
		}
	}

	gallery, err := s.galleries.GetGalleryBySlug(ctx, slug)
	if err != nil {
		return models.Gallery{}, fmt.Errorf("%s: %w", op, err)
	}

	s.slugCache.Set(slug, gallery, gocache.DefaultExpiration)

	return gallery, nil
}

func (s *GalleryService) ListGalleries(ctx context.Context, typeFilter string, page, perPage int) (dto.GalleryListResponse, error) {
	const op = "service.GalleryService.ListGalleries"

	galleries, total, err := s.galleries.ListGalleries(ctx, typeFilter, page, perPage)
	if err != nil {
		return dto.GalleryListResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return dto.GalleryListResponse{
		Galleries: galleries,
		Total:     total,
		Page:      page,
		PerPage:   perPage,
	}, nil
}

// ListGalleryMedia возвращает медиафайлы галереи в порядке загрузки
func (s *GalleryService) ListGalleryMedia(ctx context.Context, galleryID uuid.UUID) ([]models.Media, error) {
	const op = "service.GalleryService.ListGalleryMedia"

	if _, err := s.galleries.GetGalleryByID(ctx, galleryID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	media, err := s.media.ListByGallery(ctx, galleryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return media, nil
}

// VerifyGalleryPassword сверяет пароль с bcrypt-хешем галереи
func (s *GalleryService) VerifyGalleryPassword(ctx context.Context, galleryID uuid.UUID, password string) error {
	const op = "service.GalleryService.VerifyGalleryPassword"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", galleryID.String()),
	)

	gallery, err := s.galleries.GetGalleryByID(ctx, galleryID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !gallery.IsPasswordProtected {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(gallery.PasswordHash, []byte(password)); err != nil {
		log.Warn("password verification failed")
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidPassword)
	}

	return nil
}

// UploadMedia сохраняет бинарь и миниатюру в хранилище и регистрирует
// медиа в галерее. Счетчик галереи и обложка обновляются атомарно на
// уровне репозитория.
func (s *GalleryService) UploadMedia(ctx context.Context, input dto.MediaUploadInput) (*models.Media, error) {
	const op = "service.GalleryService.UploadMedia"

	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", input.GalleryID.String()),
		slog.String("media_type", input.MediaType),
	)

	log.Info("upload media")

	if _, err := s.galleries.GetGalleryByID(ctx, input.GalleryID); err != nil {
		log.Error("gallery lookup failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.maxFileSize > 0 && input.File.Size > s.maxFileSize {
		log.Warn("file too large", slog.Int64("size", input.File.Size))
		return nil, fmt.Errorf("%s: file size %d exceeds limit %d", op, input.File.Size, s.maxFileSize)
	}

	src, err := input.File.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	media := &models.Media{
		ID:               uuid.New(),
		GalleryID:        input.GalleryID,
		OriginalFilename: input.File.Filename,
		MediaType:        models.MediaType(input.MediaType),
		Size:             input.File.Size,
		Width:            input.Width,
		Height:           input.Height,
		Duration:         input.Duration,
		CreatedAt:        time.Now().UTC(),
	}
	media.Filename = media.ID.String() + strings.ToLower(filepath.Ext(input.File.Filename))

	mainPath := filepath.Join("galleries", input.GalleryID.String(), media.Filename)
	thumbPath := filepath.Join("galleries", input.GalleryID.String(), "thumbs", media.ID.String()+".jpg")

	if media.MediaType == models.MediaTypeImage {
		dims, err := s.prober.ProbeDimensions(data)
		if err != nil {
			log.Error("failed to probe image", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		media.Width = &dims.Width
		media.Height = &dims.Height
	}

	url, err := s.fileStorage.Put(ctx, mainPath, data)
	if err != nil {
		log.Error("failed to store file", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	media.URL = url

	if media.MediaType == models.MediaTypeImage {
		thumb, err := s.prober.DeriveThumbnail(data, s.thumbnailWidth)
		if err != nil {
			log.Warn("failed to derive thumbnail, using original", sl.Err(err))
			media.ThumbnailURL = url
		} else {
			thumbURL, err := s.fileStorage.Put(ctx, thumbPath, thumb)
			if err != nil {
				log.Warn("failed to store thumbnail, using original", sl.Err(err))
				media.ThumbnailURL = url
			} else {
				media.ThumbnailURL = thumbURL
			}
		}
	} else {
		media.ThumbnailURL = url
	}

	if err := media.Validate(); err != nil {
		_ = s.fileStorage.Delete(ctx, mainPath)
		_ = s.fileStorage.Delete(ctx, thumbPath)
		log.Error("media validation failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.media.CreateMedia(ctx, media)
	if err != nil {
		// Компенсация: файл не должен остаться без строки в БД
		_ = s.fileStorage.Delete(ctx, mainPath)
		_ = s.fileStorage.Delete(ctx, thumbPath)
		log.Error("failed to save media to database", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("media uploaded", slog.String("media_id", created.ID.String()))
	return created, nil
}

// DeleteMedia удаляет медиа из галереи. Строка в БД удаляется первой,
// отсутствие бинарного объекта не считается ошибкой.
func (s *GalleryService) DeleteMedia(ctx context.Context, mediaID uuid.UUID) error {
	const op = "service.GalleryService.DeleteMedia"
	log := s.log.With(
		slog.String("op", op),
		slog.String("media_id", mediaID.String()),
	)

	media, err := s.media.FindByID(ctx, mediaID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.media.DeleteMedia(ctx, mediaID); err != nil {
		log.Error("failed to delete media row", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, relPath := range mediaObjectPaths(media) {
		if err := s.fileStorage.Delete(ctx, relPath); err != nil {
			log.Warn("failed to delete object", slog.String("path", relPath), sl.Err(err))
		}
	}

	log.Info("media deleted")
	return nil
}

// DeleteGallery каскадно удаляет галерею: сперва строки медиа, затем
// бинарные объекты, последней саму галерею. Гранты и пакеты снимает
// каскад внешних ключей. Отказ хранилища не останавливает каскад,
// неудачные пути собираются в ответ.
func (s *GalleryService) DeleteGallery(ctx context.Context, id uuid.UUID) (dto.CascadeDeleteResponse, error) {
	const op = "service.GalleryService.DeleteGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", id.String()),
	)

	log.Info("deleting gallery")

	gallery, err := s.galleries.GetGalleryByID(ctx, id)
	if err != nil {
		return dto.CascadeDeleteResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	mediaList, err := s.media.ListByGallery(ctx, id)
	if err != nil {
		return dto.CascadeDeleteResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.media.DeleteAllByGallery(ctx, id); err != nil {
		log.Error("failed to delete media rows", sl.Err(err))
		return dto.CascadeDeleteResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	var failed []string
	for i := range mediaList {
		for _, relPath := range mediaObjectPaths(&mediaList[i]) {
			if err := s.fileStorage.Delete(ctx, relPath); err != nil {
				log.Warn("failed to delete object", slog.String("path", relPath), sl.Err(err))
				failed = append(failed, relPath)
			}
		}
	}

	if err := s.galleries.DeleteGallery(ctx, id); err != nil {
		log.Error("failed to delete gallery row", sl.Err(err))
		return dto.CascadeDeleteResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	s.slugCache.Delete(gallery.Slug)

	log.Info("gallery deleted",
		slog.Int("media_deleted", len(mediaList)),
		slog.Int("objects_failed", len(failed)),
	)

	return dto.CascadeDeleteResponse{
		GalleryID:     id,
		MediaDeleted:  len(mediaList),
		FailedObjects: failed,
	}, nil
}

// ReconcileImageCounts выравнивает кешированные счетчики галерей с
// фактическим числом медиа
func (s *GalleryService) ReconcileImageCounts(ctx context.Context) (int, error) {
	const op = "service.GalleryService.ReconcileImageCounts"
	log := s.log.With(slog.String("op", op))

	fixed, err := s.galleries.ReconcileImageCounts(ctx)
	if err != nil {
		log.Error("reconcile failed", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if fixed > 0 {
		log.Warn("image counts drifted", slog.Int("galleries_fixed", fixed))
	}

	return fixed, nil
}

func (s *GalleryService) ensureSlugFree(ctx context.Context, slug string, selfID uuid.UUID) error {
	existing, err := s.galleries.GetGalleryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, storage.ErrGalleryNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return storage.ErrSlugTaken
}

// Slugify приводит заголовок к URL-виду: латиница в нижнем регистре,
// дефисы вместо прочих символов
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func mediaObjectPaths(m *models.Media) []string {
	paths := []string{
		filepath.Join("galleries", m.GalleryID.String(), m.Filename),
	}
	if m.ThumbnailURL != "" && m.ThumbnailURL != m.URL {
		paths = append(paths, filepath.Join("galleries", m.GalleryID.String(), "thumbs", m.ID.String()+".jpg"))
	}
	return paths
}
