package repository

import (
	"context"
	"errors"
	"fmt"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var mediaColumns = []string{
	"id",
	"gallery_id",
	"filename",
	"original_filename",
	"url",
	"thumbnail_url",
	"media_type",
	"size",
	"width",
	"height",
	"duration",
	"client_selected",
	"photographer_selected",
	"view_count",
	"download_count",
	"last_viewed",
	"created_at",
}

type MediaRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewMediaRepository(db *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateMedia вставляет медиа и в той же транзакции инкрементирует
// image_count галереи; обложка проставляется только первому файлу
func (r *MediaRepo) CreateMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	const op = "repository.media_repository.CreateMedia"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback(ctx)

	query, args, err := r.sb.Insert("media").
		Columns(
			"id",
			"gallery_id",
			"filename",
			"original_filename",
			"url",
			"thumbnail_url",
			"media_type",
			"size",
			"width",
			"height",
			"duration",
			"created_at",
		).
		Values(
			media.ID,
			media.GalleryID,
			media.Filename,
			media.OriginalFilename,
			media.URL,
			media.ThumbnailURL,
			media.MediaType,
			media.Size,
			media.Width,
			media.Height,
			media.Duration,
			media.CreatedAt,
		).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	_, err = tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed to create media: %w", op, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE galleries SET image_count = image_count + 1, updated_at = NOW() WHERE id = $1`,
		media.GalleryID)
	if err != nil {
		return nil, fmt.Errorf("%s failed to increment image count: %w", op, err)
	}

	// Первый загруженный файл становится обложкой, если она не задана явно
	_, err = tx.Exec(ctx,
		`UPDATE galleries SET cover_image = $1, thumbnail_image = $2
		 WHERE id = $3 AND image_count = 1 AND cover_image = ''`,
		media.URL, media.ThumbnailURL, media.GalleryID)
	if err != nil {
		return nil, fmt.Errorf("%s failed to set cover image: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s failed to commit transaction: %w", op, err)
	}

	return media, nil
}

// DeleteMedia удаляет строку и декрементирует image_count (не ниже нуля)
func (r *MediaRepo) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	const op = "repository.media_repository.DeleteMedia"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback(ctx)

	var galleryID uuid.UUID
	err = tx.QueryRow(ctx, `DELETE FROM media WHERE id = $1 RETURNING gallery_id`, id).Scan(&galleryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
		}
		return fmt.Errorf("%s failed to delete media: %w", op, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE galleries SET image_count = GREATEST(image_count - 1, 0), updated_at = NOW() WHERE id = $1`,
		galleryID)
	if err != nil {
		return fmt.Errorf("%s failed to decrement image count: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s failed to commit transaction: %w", op, err)
	}

	return nil
}

// DeleteAllByGallery удаляет все медиа галереи одним запросом (каскад)
func (r *MediaRepo) DeleteAllByGallery(ctx context.Context, galleryID uuid.UUID) error {
	const op = "repository.media_repository.DeleteAllByGallery"

	query, args, err := r.sb.Delete("media").
		Where(sq.Eq{"gallery_id": galleryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s failed to build query: %w", op, err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s failed to delete gallery media: %w", op, err)
	}

	return nil
}

func (r *MediaRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	const op = "repository.media_repository.FindByID"

	query, args, err := r.sb.Select(mediaColumns...).
		From("media").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	row := r.db.QueryRow(ctx, query, args...)

	var media models.Media
	err = scanMedia(row, &media)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
		}
		return nil, fmt.Errorf("%s failed to get media: %w", op, err)
	}

	return &media, nil
}

// ListByGallery возвращает все медиа галереи в порядке загрузки
func (r *MediaRepo) ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.Media, error) {
	const op = "repository.media_repository.ListByGallery"

	query, args, err := r.sb.Select(mediaColumns...).
		From("media").
		Where(sq.Eq{"gallery_id": galleryID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed to execute query: %w", op, err)
	}
	defer rows.Close()

	var mediaList []models.Media
	for rows.Next() {
		var m models.Media
		if err := scanMedia(rows, &m); err != nil {
			return nil, fmt.Errorf("%s row scanning failed: %w", op, err)
		}
		mediaList = append(mediaList, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows iteration error: %w", op, err)
	}
	return mediaList, nil
}

// SetClientSelection применяет флаг клиентского выбора и правит
// selection_count гранта одной транзакцией. Вызывающий обязан
// сериализовать конкурентные вызовы по одному гранту.
func (r *MediaRepo) SetClientSelection(ctx context.Context, grantID, mediaID uuid.UUID, desired bool) (int, error) {
	const op = "repository.media_repository.SetClientSelection"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE media SET client_selected = $1 WHERE id = $2 AND client_selected <> $1`,
		desired, mediaID)
	if err != nil {
		return 0, fmt.Errorf("%s failed to update media flag: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}

	delta := 1
	if !desired {
		delta = -1
	}

	var count int
	err = tx.QueryRow(ctx,
		`UPDATE access_grants
		 SET selection_count = GREATEST(selection_count + $1, 0), updated_at = NOW()
		 WHERE id = $2
		 RETURNING selection_count`,
		delta, grantID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrGrantNotFound)
		}
		return 0, fmt.Errorf("%s failed to update selection count: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s failed to commit transaction: %w", op, err)
	}

	return count, nil
}

func (r *MediaRepo) SetPhotographerSelection(ctx context.Context, mediaID uuid.UUID, desired bool) error {
	const op = "repository.media_repository.SetPhotographerSelection"

	tag, err := r.db.Exec(ctx,
		`UPDATE media SET photographer_selected = $1 WHERE id = $2`,
		desired, mediaID)
	if err != nil {
		return fmt.Errorf("%s failed to update media flag: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}

	return nil
}

func (r *MediaRepo) IncrementViewCount(ctx context.Context, mediaID uuid.UUID) error {
	const op = "repository.media_repository.IncrementViewCount"

	_, err := r.db.Exec(ctx,
		`UPDATE media SET view_count = view_count + 1, last_viewed = NOW() WHERE id = $1`,
		mediaID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *MediaRepo) IncrementDownloadCount(ctx context.Context, mediaID uuid.UUID) error {
	const op = "repository.media_repository.IncrementDownloadCount"

	_, err := r.db.Exec(ctx,
		`UPDATE media SET download_count = download_count + 1 WHERE id = $1`,
		mediaID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func scanMedia(row pgx.Row, m *models.Media) error {
	return row.Scan(
		&m.ID,
		&m.GalleryID,
		&m.Filename,
		&m.OriginalFilename,
		&m.URL,
		&m.ThumbnailURL,
		&m.MediaType,
		&m.Size,
		&m.Width,
		&m.Height,
		&m.Duration,
		&m.ClientSelected,
		&m.PhotographerSelected,
		&m.ViewCount,
		&m.DownloadCount,
		&m.LastViewed,
		&m.CreatedAt,
	)
}
