package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/storage"
	filestorage "aperture_studio/internal/storage/filestorage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) CreatePackage(ctx context.Context, pkg models.SelectionPackage) (uuid.UUID, error) {
	args := m.Called(ctx, pkg)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPackageRepository) GetPackageByID(ctx context.Context, id uuid.UUID) (models.SelectionPackage, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.SelectionPackage), args.Error(1)
}

func (m *MockPackageRepository) UpdatePackageStatus(ctx context.Context, id uuid.UUID, expected, next models.PackageStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, id, expected, next, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockPackageRepository) ListPackagesByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.SelectionPackage, error) {
	args := m.Called(ctx, galleryID)
	return args.Get(0).([]models.SelectionPackage), args.Error(1)
}

func (m *MockPackageRepository) CountMediaInGallery(ctx context.Context, galleryID uuid.UUID, mediaIDs []uuid.UUID) (int, error) {
	args := m.Called(ctx, galleryID, mediaIDs)
	return args.Int(0), args.Error(1)
}

type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) CreateMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	args := m.Called(ctx, media)
	return args.Get(0).(*models.Media), args.Error(1)
}

func (m *MockMediaRepository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMediaRepository) DeleteAllByGallery(ctx context.Context, galleryID uuid.UUID) error {
	args := m.Called(ctx, galleryID)
	return args.Error(0)
}

func (m *MockMediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Media), args.Error(1)
}

func (m *MockMediaRepository) ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.Media, error) {
	args := m.Called(ctx, galleryID)
	return args.Get(0).([]models.Media), args.Error(1)
}

func (m *MockMediaRepository) SetClientSelection(ctx context.Context, grantID, mediaID uuid.UUID, desired bool) (int, error) {
	args := m.Called(ctx, grantID, mediaID, desired)
	return args.Int(0), args.Error(1)
}

func (m *MockMediaRepository) SetPhotographerSelection(ctx context.Context, mediaID uuid.UUID, desired bool) error {
	args := m.Called(ctx, mediaID, desired)
	return args.Error(0)
}

func (m *MockMediaRepository) IncrementViewCount(ctx context.Context, mediaID uuid.UUID) error {
	args := m.Called(ctx, mediaID)
	return args.Error(0)
}

func (m *MockMediaRepository) IncrementDownloadCount(ctx context.Context, mediaID uuid.UUID) error {
	args := m.Called(ctx, mediaID)
	return args.Error(0)
}

type MockGalleryRepository struct {
	mock.Mock
}

func (m *MockGalleryRepository) CreateGallery(ctx context.Context, gallery models.Gallery) (uuid.UUID, error) {
	args := m.Called(ctx, gallery)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockGalleryRepository) UpdateGallery(ctx context.Context, gallery models.Gallery) error {
	args := m.Called(ctx, gallery)
	return args.Error(0)
}

func (m *MockGalleryRepository) DeleteGallery(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGalleryRepository) GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Gallery), args.Error(1)
}

func (m *MockGalleryRepository) GetGalleryBySlug(ctx context.Context, slug string) (models.Gallery, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(models.Gallery), args.Error(1)
}

func (m *MockGalleryRepository) ListGalleries(ctx context.Context, typeFilter string, page, perPage int) ([]models.Gallery, int, error) {
	args := m.Called(ctx, typeFilter, page, perPage)
	return args.Get(0).([]models.Gallery), args.Int(1), args.Error(2)
}

func (m *MockGalleryRepository) ReconcileImageCounts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) SaveProgress(ctx context.Context, progress models.ArchiveProgress, ttl time.Duration) error {
	args := m.Called(ctx, progress, ttl)
	return args.Error(0)
}

func (m *MockProgressRepository) GetProgress(ctx context.Context, jobID string) (models.ArchiveProgress, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(models.ArchiveProgress), args.Error(1)
}

type MockUsageRecorder struct {
	mock.Mock
}

func (m *MockUsageRecorder) RecordDownload(ctx context.Context, mediaID uuid.UUID) error {
	args := m.Called(ctx, mediaID)
	return args.Error(0)
}

type archiveFixture struct {
	svc       *ArchiveService
	packages  *MockPackageRepository
	media     *MockMediaRepository
	galleries *MockGalleryRepository
	progress  *MockProgressRepository
	usage     *MockUsageRecorder

	fs        *filestorage.LocalFileStorage
	galleryID uuid.UUID
	packageID uuid.UUID
}

func newArchiveFixture(t *testing.T) *archiveFixture {
	t.Helper()

	packages := new(MockPackageRepository)
	media := new(MockMediaRepository)
	galleries := new(MockGalleryRepository)
	progress := new(MockProgressRepository)
	usage := new(MockUsageRecorder)

	fs, err := filestorage.NewLocalFileStorage(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	return &archiveFixture{
		svc:       NewArchiveService(log, packages, media, galleries, progress, fs, usage, 4, 15*time.Minute),
		packages:  packages,
		media:     media,
		galleries: galleries,
		progress:  progress,
		usage:     usage,
		fs:        fs,
		galleryID: uuid.New(),
		packageID: uuid.New(),
	}
}

// putObject кладет файл туда, где его будет искать сборщик архива
func (f *archiveFixture) putObject(t *testing.T, filename string, data []byte) {
	t.Helper()

	_, err := f.fs.Put(context.Background(), filepath.Join("galleries", f.galleryID.String(), filename), data)
	require.NoError(t, err)
}

func (f *archiveFixture) mediaItem(id uuid.UUID, filename, original string, size int64) *models.Media {
	return &models.Media{
		ID:               id,
		GalleryID:        f.galleryID,
		Filename:         filename,
		OriginalFilename: original,
		URL:              f.fs.Resolve("galleries/" + f.galleryID.String() + "/" + filename),
		MediaType:        models.MediaTypeImage,
		Size:             size,
	}
}

func TestArchiveService_ResolveDownloadLinks(t *testing.T) {
	ctx := context.Background()

	t.Run("deleted media lands in failures, order preserved", func(t *testing.T) {
		f := newArchiveFixture(t)

		alive, gone := uuid.New(), uuid.New()
		f.packages.On("GetPackageByID", ctx, f.packageID).Return(models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			MediaIDs:  []uuid.UUID{alive, gone},
		}, nil).Once()
		f.media.On("FindByID", ctx, alive).
			Return(f.mediaItem(alive, "a1.jpg", "wedding-001.jpg", 100), nil).Once()
		f.media.On("FindByID", ctx, gone).Return(nil, storage.ErrMediaNotFound).Once()

		resp, err := f.svc.ResolveDownloadLinks(ctx, f.packageID)

		require.NoError(t, err)
		require.Len(t, resp.Links, 1)
		assert.Equal(t, "wedding-001.jpg", resp.Links[0].Filename)
		assert.Equal(t, "image/jpeg", resp.Links[0].MimeType)
		require.Len(t, resp.Failures, 1)
		assert.Equal(t, gone, resp.Failures[0].MediaID)
		assert.Equal(t, "media deleted after snapshot", resp.Failures[0].Reason)
	})

	t.Run("duplicate original filenames get suffixed", func(t *testing.T) {
		f := newArchiveFixture(t)

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		f.packages.On("GetPackageByID", ctx, f.packageID).Return(models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			MediaIDs:  ids,
		}, nil).Once()
		f.media.On("FindByID", ctx, ids[0]).
			Return(f.mediaItem(ids[0], "m1.jpg", "IMG_0001.jpg", 10), nil).Once()
		f.media.On("FindByID", ctx, ids[1]).
			Return(f.mediaItem(ids[1], "m2.jpg", "img_0001.jpg", 10), nil).Once()
		f.media.On("FindByID", ctx, ids[2]).
			Return(f.mediaItem(ids[2], "m3.jpg", "IMG_0001.jpg", 10), nil).Once()

		resp, err := f.svc.ResolveDownloadLinks(ctx, f.packageID)

		require.NoError(t, err)
		require.Len(t, resp.Links, 3)
		assert.Equal(t, "IMG_0001.jpg", resp.Links[0].Filename)
		assert.Equal(t, "img_0001 (2).jpg", resp.Links[1].Filename)
		assert.Equal(t, "IMG_0001 (3).jpg", resp.Links[2].Filename)
	})
}

func TestArchiveService_BuildArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("unreadable object is skipped, the rest is archived", func(t *testing.T) {
		f := newArchiveFixture(t)

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		f.putObject(t, "m1.jpg", []byte("first image payload"))
		// m2.jpg намеренно не кладем
		f.putObject(t, "m3.jpg", []byte("third image payload"))

		pkg := models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			Name:      "Best of",
			MediaIDs:  ids,
		}

		f.packages.On("GetPackageByID", ctx, f.packageID).Return(pkg, nil).Twice()
		f.galleries.On("GetGalleryByID", ctx, f.galleryID).
			Return(models.Gallery{ID: f.galleryID, Slug: "smith-wedding"}, nil).Once()
		f.media.On("FindByID", ctx, ids[0]).
			Return(f.mediaItem(ids[0], "m1.jpg", "one.jpg", 19), nil).Once()
		f.media.On("FindByID", ctx, ids[1]).
			Return(f.mediaItem(ids[1], "m2.jpg", "two.jpg", 19), nil).Once()
		f.media.On("FindByID", ctx, ids[2]).
			Return(f.mediaItem(ids[2], "m3.jpg", "three.jpg", 19), nil).Once()

		f.progress.On("SaveProgress", ctx, mock.Anything, 15*time.Minute).Return(nil)
		f.usage.On("RecordDownload", ctx, ids[0]).Return(nil).Once()
		f.usage.On("RecordDownload", ctx, ids[2]).Return(nil).Once()

		result, err := f.svc.BuildArchive(ctx, f.packageID, "job-1")

		require.NoError(t, err)
		assert.Equal(t, "smith-wedding-Best-of.zip", result.Filename)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 2, result.Completed)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, ids[1], result.Skipped[0].MediaID)
		assert.True(t, result.PartialFailure())

		// Скачивание учтено только для вошедших файлов
		f.usage.AssertNumberOfCalls(t, "RecordDownload", 2)

		// Порядок внутри архива повторяет порядок снимка
		zr, err := zip.NewReader(bytes.NewReader(result.Data), int64(len(result.Data)))
		require.NoError(t, err)
		require.Len(t, zr.File, 2)
		assert.Equal(t, "one.jpg", zr.File[0].Name)
		assert.Equal(t, "three.jpg", zr.File[1].Name)

		rc, err := zr.File[0].Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, []byte("first image payload"), data)
	})

	t.Run("final progress is marked done", func(t *testing.T) {
		f := newArchiveFixture(t)

		id := uuid.New()
		f.putObject(t, "m1.jpg", []byte("payload"))

		pkg := models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			Name:      "solo",
			MediaIDs:  []uuid.UUID{id},
		}

		f.packages.On("GetPackageByID", ctx, f.packageID).Return(pkg, nil).Twice()
		f.galleries.On("GetGalleryByID", ctx, f.galleryID).
			Return(models.Gallery{ID: f.galleryID, Slug: "solo"}, nil).Once()
		f.media.On("FindByID", ctx, id).
			Return(f.mediaItem(id, "m1.jpg", "one.jpg", 7), nil).Once()
		f.usage.On("RecordDownload", ctx, id).Return(nil).Once()

		var final models.ArchiveProgress
		f.progress.On("SaveProgress", ctx, mock.Anything, 15*time.Minute).
			Run(func(args mock.Arguments) {
				final = args.Get(1).(models.ArchiveProgress)
			}).Return(nil)

		_, err := f.svc.BuildArchive(ctx, f.packageID, "job-2")

		require.NoError(t, err)
		assert.Equal(t, "job-2", final.JobID)
		assert.True(t, final.Done)
		assert.Equal(t, 1, final.Total)
		assert.Equal(t, 1, final.Completed)
	})

	t.Run("progress writes are skipped without a job id", func(t *testing.T) {
		f := newArchiveFixture(t)

		id := uuid.New()
		f.putObject(t, "m1.jpg", []byte("payload"))

		pkg := models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			Name:      "solo",
			MediaIDs:  []uuid.UUID{id},
		}

		f.packages.On("GetPackageByID", ctx, f.packageID).Return(pkg, nil).Twice()
		f.galleries.On("GetGalleryByID", ctx, f.galleryID).
			Return(models.Gallery{ID: f.galleryID, Slug: "solo"}, nil).Once()
		f.media.On("FindByID", ctx, id).
			Return(f.mediaItem(id, "m1.jpg", "one.jpg", 7), nil).Once()
		f.usage.On("RecordDownload", ctx, id).Return(nil).Once()

		_, err := f.svc.BuildArchive(ctx, f.packageID, "")

		require.NoError(t, err)
		f.progress.AssertNotCalled(t, "SaveProgress", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled context aborts the build", func(t *testing.T) {
		f := newArchiveFixture(t)

		id := uuid.New()
		pkg := models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			Name:      "solo",
			MediaIDs:  []uuid.UUID{id},
		}

		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		f.packages.On("GetPackageByID", cctx, f.packageID).Return(pkg, nil).Twice()
		f.galleries.On("GetGalleryByID", cctx, f.galleryID).
			Return(models.Gallery{ID: f.galleryID, Slug: "solo"}, nil).Once()
		f.media.On("FindByID", cctx, id).
			Return(f.mediaItem(id, "m1.jpg", "one.jpg", 7), nil).Once()

		_, err := f.svc.BuildArchive(cctx, f.packageID, "")

		assert.ErrorIs(t, err, context.Canceled)
		f.usage.AssertNotCalled(t, "RecordDownload", mock.Anything, mock.Anything)
	})

	t.Run("persisted progress counter never goes backwards", func(t *testing.T) {
		f := newArchiveFixture(t)

		ids := make([]uuid.UUID, 6)
		for i := range ids {
			ids[i] = uuid.New()
			f.putObject(t, fmt.Sprintf("m%d.jpg", i), []byte("payload"))
		}

		pkg := models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			Name:      "big",
			MediaIDs:  ids,
		}

		f.packages.On("GetPackageByID", ctx, f.packageID).Return(pkg, nil).Twice()
		f.galleries.On("GetGalleryByID", ctx, f.galleryID).
			Return(models.Gallery{ID: f.galleryID, Slug: "big"}, nil).Once()
		for i, id := range ids {
			f.media.On("FindByID", ctx, id).
				Return(f.mediaItem(id, fmt.Sprintf("m%d.jpg", i), fmt.Sprintf("img-%d.jpg", i), 7), nil).Once()
		}
		f.usage.On("RecordDownload", ctx, mock.Anything).Return(nil)

		var (
			seenM sync.Mutex
			seen  []int
		)
		f.progress.On("SaveProgress", ctx, mock.Anything, 15*time.Minute).
			Run(func(args mock.Arguments) {
				p := args.Get(1).(models.ArchiveProgress)
				seenM.Lock()
				seen = append(seen, p.Completed)
				seenM.Unlock()
			}).Return(nil)

		_, err := f.svc.BuildArchive(ctx, f.packageID, "job-3")

		require.NoError(t, err)
		require.NotEmpty(t, seen)
		for i := 1; i < len(seen); i++ {
			assert.GreaterOrEqual(t, seen[i], seen[i-1])
		}
		assert.Equal(t, len(ids), seen[len(seen)-1])
	})

	t.Run("usage recorder failure does not break the build", func(t *testing.T) {
		f := newArchiveFixture(t)

		id := uuid.New()
		f.putObject(t, "m1.jpg", []byte("payload"))

		pkg := models.SelectionPackage{
			ID:        f.packageID,
			GalleryID: f.galleryID,
			Name:      "solo",
			MediaIDs:  []uuid.UUID{id},
		}

		f.packages.On("GetPackageByID", ctx, f.packageID).Return(pkg, nil).Twice()
		f.galleries.On("GetGalleryByID", ctx, f.galleryID).
			Return(models.Gallery{ID: f.galleryID, Slug: "solo"}, nil).Once()
		f.media.On("FindByID", ctx, id).
			Return(f.mediaItem(id, "m1.jpg", "one.jpg", 7), nil).Once()
		f.usage.On("RecordDownload", ctx, id).Return(storage.ErrMediaNotFound).Once()

		result, err := f.svc.BuildArchive(ctx, f.packageID, "")

		require.NoError(t, err)
		assert.Equal(t, 1, result.Completed)
	})
}

func TestArchiveFilename(t *testing.T) {
	assert.Equal(t, "smith-wedding-Best-of.zip", archiveFilename("smith-wedding", "Best of"))
	assert.Equal(t, "package.zip", archiveFilename("", "Лучшее"))
	assert.Equal(t, "gal-v2.zip", archiveFilename("gal", "v2!!!"))
}
