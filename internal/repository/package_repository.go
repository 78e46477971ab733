package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

var packageColumns = []string{
	"id",
	"gallery_id",
	"client_id",
	"name",
	"comments",
	"status",
	"media_ids",
	"created_at",
	"updated_at",
	"approved_at",
	"delivered_at",
}

type PackageRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewPackageRepository(db *pgxpool.Pool) *PackageRepo {
	return &PackageRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreatePackage сохраняет пакет со снимком media_ids; порядок
// идентификаторов в массиве сохраняется как есть
func (r *PackageRepo) CreatePackage(ctx context.Context, pkg models.SelectionPackage) (uuid.UUID, error) {
	const op = "repository.package_repository.CreatePackage"

	query, args, err := r.sb.Insert("selection_packages").
		Columns("id", "gallery_id", "client_id", "name", "comments", "status", "media_ids").
		Values(pkg.ID, pkg.GalleryID, pkg.ClientID, pkg.Name, pkg.Comments, pkg.Status, pq.Array(uuidsToStrings(pkg.MediaIDs))).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PackageRepo) GetPackageByID(ctx context.Context, id uuid.UUID) (models.SelectionPackage, error) {
	const op = "repository.package_repository.GetPackageByID"

	query, args, err := r.sb.Select(packageColumns...).
		From("selection_packages").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.SelectionPackage{}, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	pkg, err := scanPackage(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, storage.ErrPackageNotFound)
		}
		return models.SelectionPackage{}, fmt.Errorf("%s: %w", op, err)
	}

	return pkg, nil
}

// UpdatePackageStatus применяет переход статуса только из ожидаемого
// состояния; конкурирующий переход вернет false без ошибки
func (r *PackageRepo) UpdatePackageStatus(ctx context.Context, id uuid.UUID, expected, next models.PackageStatus, at time.Time) (bool, error) {
	const op = "repository.package_repository.UpdatePackageStatus"

	builder := r.sb.Update("selection_packages").
		Set("status", next).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "status": expected})

	switch next {
	case models.PackageStatusApproved:
		builder = builder.Set("approved_at", at)
	case models.PackageStatusDelivered:
		builder = builder.Set("delivered_at", at)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PackageRepo) ListPackagesByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.SelectionPackage, error) {
	const op = "repository.package_repository.ListPackagesByGallery"

	query, args, err := r.sb.Select(packageColumns...).
		From("selection_packages").
		Where(sq.Eq{"gallery_id": galleryID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var packages []models.SelectionPackage
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return packages, nil
}

// CountMediaInGallery считает, сколько из переданных медиа реально
// принадлежат галерее; используется для валидации состава пакета
func (r *PackageRepo) CountMediaInGallery(ctx context.Context, galleryID uuid.UUID, mediaIDs []uuid.UUID) (int, error) {
	const op = "repository.package_repository.CountMediaInGallery"

	query, args, err := r.sb.Select("COUNT(*)").
		From("media").
		Where(sq.Eq{"gallery_id": galleryID, "id": mediaIDs}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s failed to build query: %w", op, err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func scanPackage(row pgx.Row) (models.SelectionPackage, error) {
	var pkg models.SelectionPackage
	var rawIDs []string

	err := row.Scan(
		&pkg.ID,
		&pkg.GalleryID,
		&pkg.ClientID,
		&pkg.Name,
		&pkg.Comments,
		&pkg.Status,
		pq.Array(&rawIDs),
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
		&pkg.ApprovedAt,
		&pkg.DeliveredAt,
	)
	if err != nil {
		return models.SelectionPackage{}, err
	}

	pkg.MediaIDs = make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return models.SelectionPackage{}, fmt.Errorf("malformed media id %q: %w", raw, err)
		}
		pkg.MediaIDs = append(pkg.MediaIDs, id)
	}

	return pkg, nil
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
