package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/storage"
	"aperture_studio/internal/transport/http/dto"

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

type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) UpsertGrant(ctx context.Context, grant models.AccessGrant) (models.AccessGrant, error) {
	args := m.Called(ctx, grant)
	return args.Get(0).(models.AccessGrant), args.Error(1)
}

func (m *MockGrantRepository) RevokeGrant(ctx context.Context, galleryID, clientID uuid.UUID) error {
	args := m.Called(ctx, galleryID, clientID)
	return args.Error(0)
}

func (m *MockGrantRepository) GetGrant(ctx context.Context, galleryID, clientID uuid.UUID) (models.AccessGrant, error) {
	args := m.Called(ctx, galleryID, clientID)
	return args.Get(0).(models.AccessGrant), args.Error(1)
}

func (m *MockGrantRepository) ReconcileSelectionCounts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type packageFixture struct {
	svc       *PackageService
	packages  *MockPackageRepository
	galleries *MockGalleryRepository
	grants    *MockGrantRepository

	galleryID uuid.UUID
	clientID  uuid.UUID
}

func newPackageFixture(t *testing.T) *packageFixture {
	t.Helper()

	packages := new(MockPackageRepository)
	galleries := new(MockGalleryRepository)
	grants := new(MockGrantRepository)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	return &packageFixture{
		svc:       NewPackageService(log, packages, galleries, grants),
		packages:  packages,
		galleries: galleries,
		grants:    grants,
		galleryID: uuid.New(),
		clientID:  uuid.New(),
	}
}

func TestPackageService_CreatePackage(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshot is created in draft with deduplicated ids", func(t *testing.T) {
		f := newPackageFixture(t)

		a, b := uuid.New(), uuid.New()
		req := dto.CreatePackageRequest{
			GalleryID: f.galleryID,
			ClientID:  f.clientID,
			Name:      "Финальный отбор",
			MediaIDs:  []uuid.UUID{a, b, a},
		}

		pkgID := uuid.New()
		stored := models.SelectionPackage{
			ID:        pkgID,
			GalleryID: f.galleryID,
			ClientID:  f.clientID,
			Name:      req.Name,
			Status:    models.PackageStatusDraft,
			MediaIDs:  []uuid.UUID{a, b},
		}

		f.galleries.On("GetGalleryByID", ctx, f.galleryID).Return(models.Gallery{ID: f.galleryID}, nil).Once()
		f.packages.On("CountMediaInGallery", ctx, f.galleryID, []uuid.UUID{a, b}).Return(2, nil).Once()
		f.packages.On("CreatePackage", ctx, mock.MatchedBy(func(pkg models.SelectionPackage) bool {
			return pkg.Status == models.PackageStatusDraft && len(pkg.MediaIDs) == 2
		})).Return(pkgID, nil).Once()
		f.packages.On("GetPackageByID", ctx, pkgID).Return(stored, nil).Once()

		created, err := f.svc.CreatePackage(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, models.PackageStatusDraft, created.Status)
		assert.Equal(t, []uuid.UUID{a, b}, created.MediaIDs)
		f.packages.AssertExpectations(t)
	})

	t.Run("foreign media is rejected", func(t *testing.T) {
		f := newPackageFixture(t)

		ids := []uuid.UUID{uuid.New(), uuid.New()}
		f.galleries.On("GetGalleryByID", ctx, f.galleryID).Return(models.Gallery{ID: f.galleryID}, nil).Once()
		f.packages.On("CountMediaInGallery", ctx, f.galleryID, ids).Return(1, nil).Once()

		_, err := f.svc.CreatePackage(ctx, dto.CreatePackageRequest{
			GalleryID: f.galleryID,
			ClientID:  f.clientID,
			Name:      "broken",
			MediaIDs:  ids,
		})

		assert.ErrorIs(t, err, storage.ErrMediaNotFound)
		f.packages.AssertNotCalled(t, "CreatePackage", mock.Anything, mock.Anything)
	})

	t.Run("missing gallery", func(t *testing.T) {
		f := newPackageFixture(t)

		f.galleries.On("GetGalleryByID", ctx, f.galleryID).
			Return(models.Gallery{}, storage.ErrGalleryNotFound).Once()

		_, err := f.svc.CreatePackage(ctx, dto.CreatePackageRequest{
			GalleryID: f.galleryID,
			MediaIDs:  []uuid.UUID{uuid.New()},
		})

		assert.ErrorIs(t, err, storage.ErrGalleryNotFound)
	})
}

func TestPackageService_Transitions(t *testing.T) {
	ctx := context.Background()

	pkgAt := func(f *packageFixture, id uuid.UUID, status models.PackageStatus) models.SelectionPackage {
		return models.SelectionPackage{
			ID:        id,
			GalleryID: f.galleryID,
			ClientID:  f.clientID,
			Status:    status,
			MediaIDs:  []uuid.UUID{uuid.New()},
		}
	}

	t.Run("draft approves", func(t *testing.T) {
		f := newPackageFixture(t)
		id := uuid.New()
		at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return at }

		approved := pkgAt(f, id, models.PackageStatusApproved)
		approved.ApprovedAt = &at

		f.packages.On("GetPackageByID", ctx, id).Return(pkgAt(f, id, models.PackageStatusDraft), nil).Once()
		f.packages.On("UpdatePackageStatus", ctx, id, models.PackageStatusDraft, models.PackageStatusApproved, at).
			Return(true, nil).Once()
		f.packages.On("GetPackageByID", ctx, id).Return(approved, nil).Once()

		pkg, err := f.svc.ApprovePackage(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, models.PackageStatusApproved, pkg.Status)
		require.NotNil(t, pkg.ApprovedAt)
	})

	t.Run("draft cannot be delivered directly", func(t *testing.T) {
		f := newPackageFixture(t)
		id := uuid.New()

		f.packages.On("GetPackageByID", ctx, id).Return(pkgAt(f, id, models.PackageStatusDraft), nil).Once()

		_, _, err := f.svc.MarkDelivered(ctx, id)

		assert.ErrorIs(t, err, storage.ErrInvalidStateTransition)
		f.packages.AssertNotCalled(t, "UpdatePackageStatus",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		f := newPackageFixture(t)
		id := uuid.New()

		f.packages.On("GetPackageByID", ctx, id).Return(pkgAt(f, id, models.PackageStatusDelivered), nil).Once()

		_, err := f.svc.ApprovePackage(ctx, id)
		assert.ErrorIs(t, err, storage.ErrInvalidStateTransition)
	})

	t.Run("lost CAS maps to invalid transition", func(t *testing.T) {
		f := newPackageFixture(t)
		id := uuid.New()

		f.packages.On("GetPackageByID", ctx, id).Return(pkgAt(f, id, models.PackageStatusDraft), nil).Once()
		f.packages.On("UpdatePackageStatus", ctx, id, models.PackageStatusDraft, models.PackageStatusApproved, mock.Anything).
			Return(false, nil).Once()

		_, err := f.svc.ApprovePackage(ctx, id)
		assert.ErrorIs(t, err, storage.ErrInvalidStateTransition)
	})

	t.Run("delivery builds the notification payload", func(t *testing.T) {
		f := newPackageFixture(t)
		id := uuid.New()
		deadline := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

		delivered := pkgAt(f, id, models.PackageStatusDelivered)

		f.packages.On("GetPackageByID", ctx, id).Return(pkgAt(f, id, models.PackageStatusApproved), nil).Once()
		f.packages.On("UpdatePackageStatus", ctx, id, models.PackageStatusApproved, models.PackageStatusDelivered, mock.Anything).
			Return(true, nil).Once()
		f.packages.On("GetPackageByID", ctx, id).Return(delivered, nil).Once()
		f.grants.On("GetGrant", ctx, f.galleryID, f.clientID).Return(models.AccessGrant{
			GalleryID:   f.galleryID,
			ClientID:    f.clientID,
			ClientEmail: "client@example.com",
			AccessType:  models.AccessTypeDownload,
		}, nil).Once()
		f.galleries.On("GetGalleryByID", ctx, f.galleryID).
			Return(models.Gallery{ID: f.galleryID, SelectionDeadline: &deadline}, nil).Once()

		pkg, payload, err := f.svc.MarkDelivered(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, models.PackageStatusDelivered, pkg.Status)
		assert.Equal(t, "client@example.com", payload.ClientEmail)
		require.NotNil(t, payload.Deadline)
		assert.True(t, payload.Deadline.Equal(deadline))
	})

	t.Run("delivery survives a revoked grant", func(t *testing.T) {
		f := newPackageFixture(t)
		id := uuid.New()

		delivered := pkgAt(f, id, models.PackageStatusDelivered)

		f.packages.On("GetPackageByID", ctx, id).Return(pkgAt(f, id, models.PackageStatusApproved), nil).Once()
		f.packages.On("UpdatePackageStatus", ctx, id, models.PackageStatusApproved, models.PackageStatusDelivered, mock.Anything).
			Return(true, nil).Once()
		f.packages.On("GetPackageByID", ctx, id).Return(delivered, nil).Once()
		f.grants.On("GetGrant", ctx, f.galleryID, f.clientID).
			Return(models.AccessGrant{}, storage.ErrGrantNotFound).Once()

		_, payload, err := f.svc.MarkDelivered(ctx, id)

		require.NoError(t, err)
		assert.Empty(t, payload.ClientEmail)
		assert.Nil(t, payload.Deadline)
	})
}
