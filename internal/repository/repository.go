package repository

import (
	"github.com/jackc/pgx/v4/pgxpool"
)

// Repository собирает все репозитории над общим пулом соединений
// из storage/postgresql.
type Repository struct {
	Gallery GalleryRepository
	Media   MediaRepository
	Grant   GrantRepository
	Package PackageRepository
}

func NewRepositoryWithPool(db *pgxpool.Pool) *Repository {
	return &Repository{
		Gallery: NewGalleryRepo(db),
		Media:   NewMediaRepository(db),
		Grant:   NewGrantRepository(db),
		Package: NewPackageRepository(db),
	}
}
