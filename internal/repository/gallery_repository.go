package repository

import (
	"context"
	"errors"
	"fmt"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var galleryColumns = []string{
	"id",
	"title",
	"slug",
	"description",
	"gallery_type",
	"is_public",
	"is_password_protected",
	"password_hash",
	"allow_downloads",
	"allow_sharing",
	"watermark_enabled",
	"expiry_date",
	"selection_deadline",
	"required_selection_count",
	"image_count",
	"cover_image",
	"thumbnail_image",
	"created_at",
	"updated_at",
}

type GalleryRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewGalleryRepo(db *pgxpool.Pool) *GalleryRepo {
	return &GalleryRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateGallery создает новую галерею и возвращает её ID
func (r *GalleryRepo) CreateGallery(ctx context.Context, gallery models.Gallery) (uuid.UUID, error) {
	const op = "repository.GalleryRepo.CreateGallery"

	query, args, err := r.sb.Insert("galleries").
		Columns(
			"title",
			"slug",
			"description",
			"gallery_type",
			"is_public",
			"is_password_protected",
			"password_hash",
			"allow_downloads",
			"allow_sharing",
			"watermark_enabled",
			"expiry_date",
			"selection_deadline",
			"required_selection_count",
		).
		Values(
			gallery.Title,
			gallery.Slug,
			gallery.Description,
			gallery.GalleryType,
			gallery.IsPublic,
			gallery.IsPasswordProtected,
			gallery.PasswordHash,
			gallery.AllowDownloads,
			gallery.AllowSharing,
			gallery.WatermarkEnabled,
			gallery.ExpiryDate,
			gallery.SelectionDeadline,
			gallery.RequiredSelectionCount,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	err = r.db.QueryRow(ctx, query, args...).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// UpdateGallery обновляет данные галереи
func (r *GalleryRepo) UpdateGallery(ctx context.Context, gallery models.Gallery) error {
	const op = "repository.GalleryRepo.UpdateGallery"

	query, args, err := r.sb.Update("galleries").
		Set("title", gallery.Title).
		Set("slug", gallery.Slug).
		Set("description", gallery.Description).
		Set("gallery_type", gallery.GalleryType).
		Set("is_public", gallery.IsPublic).
		Set("is_password_protected", gallery.IsPasswordProtected).
		Set("password_hash", gallery.PasswordHash).
		Set("allow_downloads", gallery.AllowDownloads).
		Set("allow_sharing", gallery.AllowSharing).
		Set("watermark_enabled", gallery.WatermarkEnabled).
		Set("expiry_date", gallery.ExpiryDate).
		Set("selection_deadline", gallery.SelectionDeadline).
		Set("required_selection_count", gallery.RequiredSelectionCount).
		Set("cover_image", gallery.CoverImage).
		Set("thumbnail_image", gallery.ThumbnailImage).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": gallery.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	return nil
}

// DeleteGallery удаляет галерею по ID
func (r *GalleryRepo) DeleteGallery(ctx context.Context, id uuid.UUID) error {
	const op = "repository.GalleryRepo.DeleteGallery"

	query, args, err := r.sb.Delete("galleries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	return nil
}

// GetGalleryByID возвращает галерею по ID
func (r *GalleryRepo) GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error) {
	const op = "repository.GalleryRepo.GetGalleryByID"

	return r.getGallery(ctx, op, squirrel.Eq{"id": id})
}

// GetGalleryBySlug возвращает галерею по slug
func (r *GalleryRepo) GetGalleryBySlug(ctx context.Context, slug string) (models.Gallery, error) {
	const op = "repository.GalleryRepo.GetGalleryBySlug"

	return r.getGallery(ctx, op, squirrel.Eq{"slug": slug})
}

func (r *GalleryRepo) getGallery(ctx context.Context, op string, where squirrel.Eq) (models.Gallery, error) {
	query, args, err := r.sb.Select(galleryColumns...).
		From("galleries").
		Where(where).
		ToSql()
	if err != nil {
		return models.Gallery{}, fmt.Errorf("%s: %w", op, err)
	}

	var gallery models.Gallery
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&gallery.ID,
		&gallery.Title,
		&gallery.Slug,
		&gallery.Description,
		&gallery.GalleryType,
		&gallery.IsPublic,
		&gallery.IsPasswordProtected,
		&gallery.PasswordHash,
		&gallery.AllowDownloads,
		&gallery.AllowSharing,
		&gallery.WatermarkEnabled,
		&gallery.ExpiryDate,
		&gallery.SelectionDeadline,
		&gallery.RequiredSelectionCount,
		&gallery.ImageCount,
		&gallery.CoverImage,
		&gallery.ThumbnailImage,
		&gallery.CreatedAt,
		&gallery.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Gallery{}, fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
		}
		return models.Gallery{}, fmt.Errorf("%s: %w", op, err)
	}

	return gallery, nil
}

// ListGalleries возвращает галереи с пагинацией и фильтром по типу
func (r *GalleryRepo) ListGalleries(
	ctx context.Context,
	typeFilter string, // "all", "website", "portfolio", "client"
	page int,
	perPage int,
) ([]models.Gallery, int, error) {
	const op = "repository.GalleryRepo.ListGalleries"

	// Проверка и корректировка параметров пагинации
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	queryBuilder := r.sb.Select(galleryColumns...).From("galleries")

	switch typeFilter {
	case "website", "portfolio", "client":
		queryBuilder = queryBuilder.Where(squirrel.Eq{"gallery_type": typeFilter})
	case "all", "":
		// Без фильтрации
	default:
		return nil, 0, fmt.Errorf("%s: invalid type filter '%s'", op, typeFilter)
	}

	totalCount, err := r.getTotalCount(ctx, typeFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	queryBuilder = queryBuilder.
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage))

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var galleries []models.Gallery
	for rows.Next() {
		var gallery models.Gallery
		err := rows.Scan(
			&gallery.ID,
			&gallery.Title,
			&gallery.Slug,
			&gallery.Description,
			&gallery.GalleryType,
			&gallery.IsPublic,
			&gallery.IsPasswordProtected,
			&gallery.PasswordHash,
			&gallery.AllowDownloads,
			&gallery.AllowSharing,
			&gallery.WatermarkEnabled,
			&gallery.ExpiryDate,
			&gallery.SelectionDeadline,
			&gallery.RequiredSelectionCount,
			&gallery.ImageCount,
			&gallery.CoverImage,
			&gallery.ThumbnailImage,
			&gallery.CreatedAt,
			&gallery.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		galleries = append(galleries, gallery)
	}

	return galleries, totalCount, nil
}

// Вспомогательная функция для получения общего количества записей
func (r *GalleryRepo) getTotalCount(ctx context.Context, typeFilter string) (int, error) {
	queryBuilder := r.sb.Select("COUNT(*)").From("galleries")

	switch typeFilter {
	case "website", "portfolio", "client":
		queryBuilder = queryBuilder.Where(squirrel.Eq{"gallery_type": typeFilter})
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error build query: %w", err)
	}

	var count int
	err = r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("error execute query: %w (SQL: %s)", err, query)
	}

	return count, nil
}

// ReconcileImageCounts пересчитывает image_count по живым строкам media
// и возвращает число исправленных галерей. Используется как repair-проход
// после сбоев посреди каскадного удаления.
func (r *GalleryRepo) ReconcileImageCounts(ctx context.Context) (int, error) {
	const op = "repository.GalleryRepo.ReconcileImageCounts"

	query := `
		UPDATE galleries g
		SET image_count = live.cnt, updated_at = NOW()
		FROM (
			SELECT g2.id, COUNT(m.id) AS cnt
			FROM galleries g2
			LEFT JOIN media m ON m.gallery_id = g2.id
			GROUP BY g2.id
		) AS live
		WHERE live.id = g.id AND g.image_count <> live.cnt
	`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return int(tag.RowsAffected()), nil
}
