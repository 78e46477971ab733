package app

import (
	"context"
	"log/slog"

	httpapp "aperture_studio/internal/app/http"
	"aperture_studio/internal/config"
	"aperture_studio/internal/lib/imaging"
	"aperture_studio/internal/repository"
	accessservice "aperture_studio/internal/services/access_service"
	archiveservice "aperture_studio/internal/services/archive_service"
	galleryservice "aperture_studio/internal/services/gallery_service"
	packageservice "aperture_studio/internal/services/package_service"
	selectionservice "aperture_studio/internal/services/selection_service"
	usageservice "aperture_studio/internal/services/usage_service"
	filestorage "aperture_studio/internal/storage/filestorage"
	"aperture_studio/internal/storage/postgresql"
	redisstorage "aperture_studio/internal/storage/redis"
	httprouters "aperture_studio/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server

	db    *postgresql.Storage
	redis *redisstorage.Client
}

func New(log *slog.Logger, cfg *config.Config) *App {
	db, err := postgresql.New(context.Background(), cfg.DSN)
	if err != nil {
		panic(err)
	}

	repo := repository.NewRepositoryWithPool(db.Pool())

	redisClient := redisstorage.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)

	fileStorage, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL)
	if err != nil {
		panic(err)
	}

	progressRepo := repository.NewRedisProgressRepo(redisClient)

	galleryService := galleryservice.NewGalleryService(
		log,
		repo.Gallery,
		repo.Media,
		fileStorage,
		imaging.NewProber(),
		cfg.FileStorage.MaxSize,
		cfg.FileStorage.ThumbnailWidth,
	)

	accessService := accessservice.NewAccessService(
		log,
		repo.Grant,
		repo.Gallery,
		cfg.ShareToken.Secret,
		cfg.ShareToken.TTL,
		cfg.FileStorage.BaseURL,
	)

	selectionService := selectionservice.NewSelectionService(log, repo.Gallery, repo.Media, repo.Grant)
	packageService := packageservice.NewPackageService(log, repo.Package, repo.Gallery, repo.Grant)
	usageService := usageservice.NewUsageService(log, repo.Media)

	archiveService := archiveservice.NewArchiveService(
		log,
		repo.Package,
		repo.Media,
		repo.Gallery,
		progressRepo,
		fileStorage,
		usageService,
		cfg.Archive.FetchConcurrency,
		cfg.Archive.ProgressTTL,
	)

	routers := httprouters.NewRouter(
		log,
		galleryService,
		accessService,
		selectionService,
		packageService,
		archiveService,
		usageService,
	)

	server := httpapp.New(log, cfg.ShareToken.Secret, cfg.HTTP.Host, cfg.HTTP.Port, routers, db, redisClient)

	return &App{
		HTTPServer: server,
		db:         db,
		redis:      redisClient,
	}
}

func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		panic(err)
	}

	a.db.Stop()
	a.redis.Close()
}
