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

var grantColumns = []string{
	"id",
	"gallery_id",
	"client_id",
	"client_email",
	"access_type",
	"max_selections",
	"selection_count",
	"selection_deadline",
	"created_at",
	"updated_at",
}

type GrantRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewGrantRepository(db *pgxpool.Pool) *GrantRepo {
	return &GrantRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// UpsertGrant создает или замещает грант пары (клиент, галерея).
// Уникальный индекс на (gallery_id, client_id) гарантирует не более
// одного активного гранта; selection_count пересчитывается из живых
// флагов, чтобы замена гранта не ломала инвариант счетчика.
func (r *GrantRepo) UpsertGrant(ctx context.Context, grant models.AccessGrant) (models.AccessGrant, error) {
	const op = "repository.grant_repository.UpsertGrant"

	query := `
		INSERT INTO access_grants
			(id, gallery_id, client_id, client_email, access_type, max_selections, selection_count, selection_deadline)
		VALUES
			($1, $2, $3, $4, $5, $6,
			 (SELECT COUNT(*) FROM media WHERE gallery_id = $2 AND client_selected),
			 $7)
		ON CONFLICT (gallery_id, client_id) DO UPDATE SET
			client_email = EXCLUDED.client_email,
			access_type = EXCLUDED.access_type,
			max_selections = EXCLUDED.max_selections,
			selection_count = EXCLUDED.selection_count,
			selection_deadline = EXCLUDED.selection_deadline,
			updated_at = NOW()
		RETURNING id, gallery_id, client_id, client_email, access_type, max_selections, selection_count, selection_deadline, created_at, updated_at
	`

	var saved models.AccessGrant
	err := r.db.QueryRow(ctx, query,
		grant.ID,
		grant.GalleryID,
		grant.ClientID,
		grant.ClientEmail,
		grant.AccessType,
		grant.MaxSelections,
		grant.SelectionDeadline,
	).Scan(
		&saved.ID,
		&saved.GalleryID,
		&saved.ClientID,
		&saved.ClientEmail,
		&saved.AccessType,
		&saved.MaxSelections,
		&saved.SelectionCount,
		&saved.SelectionDeadline,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err != nil {
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

func (r *GrantRepo) RevokeGrant(ctx context.Context, galleryID, clientID uuid.UUID) error {
	const op = "repository.grant_repository.RevokeGrant"

	query, args, err := r.sb.Delete("access_grants").
		Where(sq.Eq{"gallery_id": galleryID, "client_id": clientID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s failed to build query: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGrantNotFound)
	}

	return nil
}

func (r *GrantRepo) GetGrant(ctx context.Context, galleryID, clientID uuid.UUID) (models.AccessGrant, error) {
	const op = "repository.grant_repository.GetGrant"

	query, args, err := r.sb.Select(grantColumns...).
		From("access_grants").
		Where(sq.Eq{"gallery_id": galleryID, "client_id": clientID}).
		ToSql()
	if err != nil {
		return models.AccessGrant{}, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	var grant models.AccessGrant
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&grant.ID,
		&grant.GalleryID,
		&grant.ClientID,
		&grant.ClientEmail,
		&grant.AccessType,
		&grant.MaxSelections,
		&grant.SelectionCount,
		&grant.SelectionDeadline,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AccessGrant{}, fmt.Errorf("%s: %w", op, storage.ErrGrantNotFound)
		}
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	return grant, nil
}

// ReconcileSelectionCounts выравнивает selection_count грантов с живым
// числом выбранных медиа; возвращает число исправленных грантов
func (r *GrantRepo) ReconcileSelectionCounts(ctx context.Context) (int, error) {
	const op = "repository.grant_repository.ReconcileSelectionCounts"

	query := `
		UPDATE access_grants g
		SET selection_count = live.cnt, updated_at = NOW()
		FROM (
			SELECT ag.id, COUNT(m.id) FILTER (WHERE m.client_selected) AS cnt
			FROM access_grants ag
			LEFT JOIN media m ON m.gallery_id = ag.gallery_id
			GROUP BY ag.id
		) AS live
		WHERE live.id = g.id AND g.selection_count <> live.cnt
	`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return int(tag.RowsAffected()), nil
}
