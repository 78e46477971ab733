package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"aperture_studio/internal/domain/models"
	"aperture_studio/internal/lib/logger/sl"
	"aperture_studio/internal/storage"
	"aperture_studio/internal/transport/http/dto"
	"aperture_studio/internal/transport/http/dto/response"

	"github.com/google/uuid"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	_ "aperture_studio/docs"
)

type GalleryService interface {
	CreateGallery(ctx context.Context, req dto.CreateGalleryRequest) (uuid.UUID, error)
	UpdateGallery(ctx context.Context, req dto.UpdateGalleryRequest) error
	DeleteGallery(ctx context.Context, id uuid.UUID) (dto.CascadeDeleteResponse, error)
	GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error)
	GetGalleryBySlug(ctx context.Context, slug string) (models.Gallery, error)
	ListGalleries(ctx context.Context, typeFilter string, page, perPage int) (dto.GalleryListResponse, error)
	ListGalleryMedia(ctx context.Context, galleryID uuid.UUID) ([]models.Media, error)
	VerifyGalleryPassword(ctx context.Context, galleryID uuid.UUID, password string) error
	UploadMedia(ctx context.Context, input dto.MediaUploadInput) (*models.Media, error)
	DeleteMedia(ctx context.Context, mediaID uuid.UUID) error
	ReconcileImageCounts(ctx context.Context) (int, error)
}

type AccessService interface {
	GrantAccess(ctx context.Context, req dto.GrantAccessRequest) (dto.GrantAccessResponse, error)
	RevokeAccess(ctx context.Context, galleryID, clientID uuid.UUID) error
	GetGrant(ctx context.Context, galleryID, clientID uuid.UUID) (models.AccessGrant, error)
	VerifyAccess(ctx context.Context, galleryID, clientID uuid.UUID, required models.AccessType) (models.AccessGrant, error)
	ReconcileSelectionCounts(ctx context.Context) (int, error)
}

type SelectionService interface {
	SetClientSelection(ctx context.Context, galleryID, clientID, mediaID uuid.UUID, desired bool) (models.SelectionResult, error)
	SetPhotographerSelection(ctx context.Context, galleryID, mediaID uuid.UUID, desired bool) (models.SelectionResult, error)
}

type PackageService interface {
	CreatePackage(ctx context.Context, req dto.CreatePackageRequest) (models.SelectionPackage, error)
	GetPackage(ctx context.Context, id uuid.UUID) (models.SelectionPackage, error)
	ListPackagesByGallery(ctx context.Context, galleryID uuid.UUID) ([]models.SelectionPackage, error)
	ApprovePackage(ctx context.Context, id uuid.UUID) (models.SelectionPackage, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (models.SelectionPackage, models.NotificationPayload, error)
}

type ArchiveService interface {
	ResolveDownloadLinks(ctx context.Context, packageID uuid.UUID) (dto.DownloadLinksResponse, error)
	BuildArchive(ctx context.Context, packageID uuid.UUID, jobID string) (models.ArchiveResult, error)
	GetProgress(ctx context.Context, jobID string) (models.ArchiveProgress, error)
}

type UsageService interface {
	RecordView(ctx context.Context, mediaID uuid.UUID) error
	RecordDownload(ctx context.Context, mediaID uuid.UUID) error
}

type Routers struct {
	log              *slog.Logger
	GalleryService   GalleryService
	AccessService    AccessService
	SelectionService SelectionService
	PackageService   PackageService
	ArchiveService   ArchiveService
	UsageService     UsageService
}

func NewRouter(
	log *slog.Logger,
	galleryService GalleryService,
	accessService AccessService,
	selectionService SelectionService,
	packageService PackageService,
	archiveService ArchiveService,
	usageService UsageService,
) *Routers {
	return &Routers{
		log:              log,
		GalleryService:   galleryService,
		AccessService:    accessService,
		SelectionService: selectionService,
		PackageService:   packageService,
		ArchiveService:   archiveService,
		UsageService:     usageService,
	}
}

var ErrInvalidUUID = errors.New("not valid UUID")

// CreateGallery godoc
// @Summary Создание галереи
// @Description Создает галерею. Пустой slug генерируется из заголовка.
// @Tags galleries
// @Accept json
// @Produce json
// @Param request body dto.CreateGalleryRequest true "Данные галереи"
// @Success 201 {object} response.Response{data=object{gallery_id=string}}
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 409 {object} response.ErrorResponse "Slug уже занят"
// @Router /api/v1/galleries [post]
func (r *Routers) CreateGallery(c echo.Context) error {
	const op = "http.routers.CreateGallery"

	log := r.log.With(slog.String("op", op))

	var req dto.CreateGalleryRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid format request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	id, err := r.GalleryService.CreateGallery(c.Request().Context(), req)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(map[string]string{"gallery_id": id.String()}))
}

// UpdateGallery godoc
// @Summary Обновление галереи
// @Tags galleries
// @Accept json
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Param request body dto.UpdateGalleryRequest true "Данные галереи"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Failure 409 {object} response.ErrorResponse "Slug уже занят"
// @Router /api/v1/galleries/{gallery_id} [put]
func (r *Routers) UpdateGallery(c echo.Context) error {
	const op = "http.routers.UpdateGallery"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	var req dto.UpdateGalleryRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}
	req.ID = galleryID

	if err := c.Validate(req); err != nil {
		log.Warn("invalid format request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	if err := r.GalleryService.UpdateGallery(c.Request().Context(), req); err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(nil))
}

// DeleteGallery godoc
// @Summary Каскадное удаление галереи
// @Description Удаляет галерею вместе с медиа. Отказы бинарного
// @Description хранилища не прерывают каскад и перечисляются в ответе.
// @Tags galleries
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Success 200 {object} response.Response{data=dto.CascadeDeleteResponse}
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Router /api/v1/galleries/{gallery_id} [delete]
func (r *Routers) DeleteGallery(c echo.Context) error {
	const op = "http.routers.DeleteGallery"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	result, err := r.GalleryService.DeleteGallery(c.Request().Context(), galleryID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(result))
}

// GetGallery godoc
// @Summary Получение галереи по ID
// @Tags galleries
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Success 200 {object} response.Response{data=models.Gallery}
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Router /api/v1/galleries/{gallery_id} [get]
func (r *Routers) GetGallery(c echo.Context) error {
	const op = "http.routers.GetGallery"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	gallery, err := r.GalleryService.GetGalleryByID(c.Request().Context(), galleryID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(gallery))
}

// ListGalleries godoc
// @Summary Список галерей
// @Tags galleries
// @Produce json
// @Param type query string false "Тип галереи (website, portfolio, client, all)"
// @Param page query int false "Номер страницы"
// @Param per_page query int false "Размер страницы"
// @Success 200 {object} response.Response{data=dto.GalleryListResponse}
// @Router /api/v1/galleries [get]
func (r *Routers) ListGalleries(c echo.Context) error {
	const op = "http.routers.ListGalleries"

	log := r.log.With(slog.String("op", op))

	typeFilter := c.QueryParam("type")

	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}

	perPage, err := strconv.Atoi(c.QueryParam("per_page"))
	if err != nil || perPage < 1 {
		perPage = 20
	}

	list, err := r.GalleryService.ListGalleries(c.Request().Context(), typeFilter, page, perPage)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(list))
}

// ListGalleryMedia godoc
// @Summary Медиафайлы галереи
// @Tags media
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Success 200 {object} response.Response{data=[]models.Media}
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Router /api/v1/galleries/{gallery_id}/media [get]
func (r *Routers) ListGalleryMedia(c echo.Context) error {
	const op = "http.routers.ListGalleryMedia"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	media, err := r.GalleryService.ListGalleryMedia(c.Request().Context(), galleryID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(media))
}

// UploadMedia godoc
// @Summary Загрузка медиафайла в галерею
// @Description Принимает multipart/form-data, сохраняет оригинал и
// @Description миниатюру, регистрирует файл в галерее.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param gallery_id formData string true "ID галереи"
// @Param media_type formData string true "Тип файла (image, video)"
// @Param file formData file true "Файл"
// @Success 201 {object} response.Response{data=models.Media}
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Router /api/v1/media/upload [post]
func (r *Routers) UploadMedia(c echo.Context) error {
	const op = "http.routers.UploadMedia"

	log := r.log.With(slog.String("op", op))

	input, err := r.parseMediaUploadInput(c)
	if err != nil {
		log.Warn("failed to parse upload form",
			sl.Err(err),
			slog.String("gallery_id", c.FormValue("gallery_id")))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	media, err := r.GalleryService.UploadMedia(c.Request().Context(), *input)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(media))
}

// DeleteMedia godoc
// @Summary Удаление медиафайла
// @Tags media
// @Produce json
// @Param media_id path string true "ID медиафайла"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Медиафайл не найден"
// @Router /api/v1/media/{media_id} [delete]
func (r *Routers) DeleteMedia(c echo.Context) error {
	const op = "http.routers.DeleteMedia"

	log := r.log.With(slog.String("op", op))

	mediaID, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	if err := r.GalleryService.DeleteMedia(c.Request().Context(), mediaID); err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(nil))
}

// GrantAccess godoc
// @Summary Выдача гранта доступа клиенту
// @Description Создает или замещает грант пары (клиент, галерея) и
// @Description возвращает подписанную ссылку для клиента.
// @Tags access
// @Accept json
// @Produce json
// @Param request body dto.GrantAccessRequest true "Параметры гранта"
// @Success 200 {object} response.Response{data=dto.GrantAccessResponse}
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Router /api/v1/grants [post]
func (r *Routers) GrantAccess(c echo.Context) error {
	const op = "http.routers.GrantAccess"

	log := r.log.With(slog.String("op", op))

	var req dto.GrantAccessRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid format request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	resp, err := r.AccessService.GrantAccess(c.Request().Context(), req)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(resp))
}

// RevokeAccess godoc
// @Summary Отзыв гранта доступа
// @Tags access
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Param client_id path string true "ID клиента"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Грант не найден"
// @Router /api/v1/galleries/{gallery_id}/grants/{client_id} [delete]
func (r *Routers) RevokeAccess(c echo.Context) error {
	const op = "http.routers.RevokeAccess"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	clientID, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	if err := r.AccessService.RevokeAccess(c.Request().Context(), galleryID, clientID); err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(nil))
}

// GetGrant godoc
// @Summary Просмотр гранта клиента
// @Tags access
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Param client_id path string true "ID клиента"
// @Success 200 {object} response.Response{data=models.AccessGrant}
// @Failure 404 {object} response.ErrorResponse "Грант не найден"
// @Router /api/v1/galleries/{gallery_id}/grants/{client_id} [get]
func (r *Routers) GetGrant(c echo.Context) error {
	const op = "http.routers.GetGrant"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	clientID, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	grant, err := r.AccessService.GetGrant(c.Request().Context(), galleryID, clientID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(grant))
}

// SetPhotographerSelection godoc
// @Summary Отметка медиафайла фотографом
// @Description Квота и дедлайн выбора на фотографа не распространяются.
// @Tags selection
// @Accept json
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Param media_id path string true "ID медиафайла"
// @Param request body dto.SetSelectionRequest true "Желаемое состояние"
// @Success 200 {object} response.Response{data=models.SelectionResult}
// @Failure 404 {object} response.ErrorResponse "Медиафайл не найден"
// @Router /api/v1/galleries/{gallery_id}/media/{media_id}/selection [put]
func (r *Routers) SetPhotographerSelection(c echo.Context) error {
	const op = "http.routers.SetPhotographerSelection"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	mediaID, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	var req dto.SetSelectionRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	result, err := r.SelectionService.SetPhotographerSelection(c.Request().Context(), galleryID, mediaID, *req.Selected)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(result))
}

// CreatePackage godoc
// @Summary Создание пакета отбора
// @Description Фиксирует именованный снимок медиа в статусе draft.
// @Tags packages
// @Accept json
// @Produce json
// @Param request body dto.CreatePackageRequest true "Состав пакета"
// @Success 201 {object} response.Response{data=models.SelectionPackage}
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} response.ErrorResponse "Галерея или медиа не найдены"
// @Router /api/v1/packages [post]
func (r *Routers) CreatePackage(c echo.Context) error {
	const op = "http.routers.CreatePackage"

	log := r.log.With(slog.String("op", op))

	var req dto.CreatePackageRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid format request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	pkg, err := r.PackageService.CreatePackage(c.Request().Context(), req)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(pkg))
}

// GetPackage godoc
// @Summary Получение пакета
// @Tags packages
// @Produce json
// @Param package_id path string true "ID пакета"
// @Success 200 {object} response.Response{data=models.SelectionPackage}
// @Failure 404 {object} response.ErrorResponse "Пакет не найден"
// @Router /api/v1/packages/{package_id} [get]
func (r *Routers) GetPackage(c echo.Context) error {
	const op = "http.routers.GetPackage"

	log := r.log.With(slog.String("op", op))

	packageID, err := uuid.Parse(c.Param("package_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	pkg, err := r.PackageService.GetPackage(c.Request().Context(), packageID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pkg))
}

// ListGalleryPackages godoc
// @Summary Пакеты галереи
// @Tags packages
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Success 200 {object} response.Response{data=[]models.SelectionPackage}
// @Router /api/v1/galleries/{gallery_id}/packages [get]
func (r *Routers) ListGalleryPackages(c echo.Context) error {
	const op = "http.routers.ListGalleryPackages"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	packages, err := r.PackageService.ListPackagesByGallery(c.Request().Context(), galleryID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(packages))
}

// ApprovePackage godoc
// @Summary Утверждение пакета
// @Description Переход draft -> approved. Другие переходы отклоняются.
// @Tags packages
// @Produce json
// @Param package_id path string true "ID пакета"
// @Success 200 {object} response.Response{data=models.SelectionPackage}
// @Failure 404 {object} response.ErrorResponse "Пакет не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход статуса"
// @Router /api/v1/packages/{package_id}/approve [post]
func (r *Routers) ApprovePackage(c echo.Context) error {
	const op = "http.routers.ApprovePackage"

	log := r.log.With(slog.String("op", op))

	packageID, err := uuid.Parse(c.Param("package_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	pkg, err := r.PackageService.ApprovePackage(c.Request().Context(), packageID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pkg))
}

// DeliverPackage godoc
// @Summary Отметка пакета доставленным
// @Description Переход approved -> delivered. Возвращает данные для
// @Description внешнего сервиса нотификаций, доставку не гарантирует.
// @Tags packages
// @Produce json
// @Param package_id path string true "ID пакета"
// @Success 200 {object} response.Response{data=object{package=models.SelectionPackage,notification=models.NotificationPayload}}
// @Failure 404 {object} response.ErrorResponse "Пакет не найден"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход статуса"
// @Router /api/v1/packages/{package_id}/deliver [post]
func (r *Routers) DeliverPackage(c echo.Context) error {
	const op = "http.routers.DeliverPackage"

	log := r.log.With(slog.String("op", op))

	packageID, err := uuid.Parse(c.Param("package_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	pkg, notification, err := r.PackageService.MarkDelivered(c.Request().Context(), packageID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]interface{}{
		"package":      pkg,
		"notification": notification,
	}))
}

// Reconcile godoc
// @Summary Выравнивание кешированных счетчиков
// @Description Сверяет image_count галерей и selection_count грантов
// @Description с фактическими данными.
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=object{galleries_fixed=int,grants_fixed=int}}
// @Router /api/v1/admin/reconcile [post]
func (r *Routers) Reconcile(c echo.Context) error {
	const op = "http.routers.Reconcile"

	log := r.log.With(slog.String("op", op))

	galleriesFixed, err := r.GalleryService.ReconcileImageCounts(c.Request().Context())
	if err != nil {
		return r.serviceError(c, log, err)
	}

	grantsFixed, err := r.AccessService.ReconcileSelectionCounts(c.Request().Context())
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]int{
		"galleries_fixed": galleriesFixed,
		"grants_fixed":    grantsFixed,
	}))
}

// GetClientGallery godoc
// @Summary Клиентский просмотр галереи по slug
// @Tags client
// @Produce json
// @Param slug path string true "Slug галереи"
// @Success 200 {object} response.Response{data=models.Gallery}
// @Failure 403 {object} response.ErrorResponse "Нет доступа"
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Router /api/v1/client/galleries/{slug} [get]
func (r *Routers) GetClientGallery(c echo.Context) error {
	const op = "http.routers.GetClientGallery"

	log := r.log.With(slog.String("op", op))

	gallery, err := r.GalleryService.GetGalleryBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return r.serviceError(c, log, err)
	}

	clientID, err := clientIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrorResponseWithDetails("invalid_token", err.Error()))
	}

	if _, err := r.AccessService.VerifyAccess(c.Request().Context(), gallery.ID, clientID, models.AccessTypeView); err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(gallery))
}

// VerifyGalleryPassword godoc
// @Summary Проверка пароля галереи
// @Tags client
// @Accept json
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Param request body dto.VerifyGalleryPasswordRequest true "Пароль"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверный пароль"
// @Router /api/v1/client/galleries/{gallery_id}/verify-password [post]
func (r *Routers) VerifyGalleryPassword(c echo.Context) error {
	const op = "http.routers.VerifyGalleryPassword"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	var req dto.VerifyGalleryPasswordRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	if err := r.GalleryService.VerifyGalleryPassword(c.Request().Context(), galleryID, req.Password); err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(nil))
}

// ListClientGalleryMedia godoc
// @Summary Медиафайлы галереи для клиента
// @Tags client
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Success 200 {object} response.Response{data=[]models.Media}
// @Failure 403 {object} response.ErrorResponse "Нет доступа"
// @Router /api/v1/client/galleries/{gallery_id}/media [get]
func (r *Routers) ListClientGalleryMedia(c echo.Context) error {
	const op = "http.routers.ListClientGalleryMedia"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	clientID, err := clientIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrorResponseWithDetails("invalid_token", err.Error()))
	}

	if _, err := r.AccessService.VerifyAccess(c.Request().Context(), galleryID, clientID, models.AccessTypeView); err != nil {
		return r.serviceError(c, log, err)
	}

	media, err := r.GalleryService.ListGalleryMedia(c.Request().Context(), galleryID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(media))
}

// SetClientSelection godoc
// @Summary Выбор медиафайла клиентом
// @Description Идемпотентная установка флага выбора. После дедлайна
// @Description выбор и снятие заморожены; квота проверяется только
// @Description для новых выборов.
// @Tags client
// @Accept json
// @Produce json
// @Param gallery_id path string true "ID галереи"
// @Param media_id path string true "ID медиафайла"
// @Param request body dto.SetSelectionRequest true "Желаемое состояние"
// @Success 200 {object} response.Response{data=models.SelectionResult}
// @Failure 403 {object} response.ErrorResponse "Нет доступа"
// @Failure 404 {object} response.ErrorResponse "Медиафайл не найден"
// @Failure 409 {object} response.ErrorResponse "Квота исчерпана или дедлайн прошел"
// @Router /api/v1/client/galleries/{gallery_id}/media/{media_id}/selection [put]
func (r *Routers) SetClientSelection(c echo.Context) error {
	const op = "http.routers.SetClientSelection"

	log := r.log.With(slog.String("op", op))

	galleryID, err := uuid.Parse(c.Param("gallery_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	mediaID, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	clientID, err := clientIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrorResponseWithDetails("invalid_token", err.Error()))
	}

	var req dto.SetSelectionRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	result, err := r.SelectionService.SetClientSelection(c.Request().Context(), galleryID, clientID, mediaID, *req.Selected)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(result))
}

// GetDownloadLinks godoc
// @Summary Ссылки на скачивание по пакету
// @Description Ссылки строятся по снимку пакета; удаленные после
// @Description снимка медиа перечисляются в failures.
// @Tags client
// @Produce json
// @Param package_id path string true "ID пакета"
// @Success 200 {object} response.Response{data=dto.DownloadLinksResponse}
// @Failure 403 {object} response.ErrorResponse "Нет доступа"
// @Failure 404 {object} response.ErrorResponse "Пакет не найден"
// @Router /api/v1/client/packages/{package_id}/links [get]
func (r *Routers) GetDownloadLinks(c echo.Context) error {
	const op = "http.routers.GetDownloadLinks"

	log := r.log.With(slog.String("op", op))

	packageID, err := uuid.Parse(c.Param("package_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	pkg, err := r.PackageService.GetPackage(c.Request().Context(), packageID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	clientID, err := clientIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrorResponseWithDetails("invalid_token", err.Error()))
	}

	if _, err := r.AccessService.VerifyAccess(c.Request().Context(), pkg.GalleryID, clientID, models.AccessTypeDownload); err != nil {
		return r.serviceError(c, log, err)
	}

	links, err := r.ArchiveService.ResolveDownloadLinks(c.Request().Context(), packageID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(links))
}

// DownloadArchive godoc
// @Summary Скачивание архива пакета
// @Description Собирает ZIP по снимку пакета и отдает его одним
// @Description ответом. Нечитаемые файлы пропускаются. Ход сборки
// @Description доступен по job_id через эндпоинт прогресса.
// @Tags client
// @Produce application/zip
// @Param package_id path string true "ID пакета"
// @Param job_id query string false "ID задачи для отслеживания прогресса"
// @Success 200 {file} binary
// @Failure 403 {object} response.ErrorResponse "Нет доступа"
// @Failure 404 {object} response.ErrorResponse "Пакет не найден"
// @Router /api/v1/client/packages/{package_id}/archive [get]
func (r *Routers) DownloadArchive(c echo.Context) error {
	const op = "http.routers.DownloadArchive"

	log := r.log.With(slog.String("op", op))

	packageID, err := uuid.Parse(c.Param("package_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	pkg, err := r.PackageService.GetPackage(c.Request().Context(), packageID)
	if err != nil {
		return r.serviceError(c, log, err)
	}

	clientID, err := clientIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrorResponseWithDetails("invalid_token", err.Error()))
	}

	if _, err := r.AccessService.VerifyAccess(c.Request().Context(), pkg.GalleryID, clientID, models.AccessTypeDownload); err != nil {
		return r.serviceError(c, log, err)
	}

	result, err := r.ArchiveService.BuildArchive(c.Request().Context(), packageID, c.QueryParam("job_id"))
	if err != nil {
		return r.serviceError(c, log, err)
	}

	if result.PartialFailure() {
		c.Response().Header().Set("X-Archive-Skipped", strconv.Itoa(len(result.Skipped)))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, result.Filename))

	return c.Blob(http.StatusOK, "application/zip", result.Data)
}

// GetArchiveProgress godoc
// @Summary Прогресс сборки архива
// @Tags client
// @Produce json
// @Param job_id path string true "ID задачи"
// @Success 200 {object} response.Response{data=models.ArchiveProgress}
// @Failure 404 {object} response.ErrorResponse "Задача не найдена"
// @Router /api/v1/client/archive/progress/{job_id} [get]
func (r *Routers) GetArchiveProgress(c echo.Context) error {
	const op = "http.routers.GetArchiveProgress"

	log := r.log.With(slog.String("op", op))

	progress, err := r.ArchiveService.GetProgress(c.Request().Context(), c.Param("job_id"))
	if err != nil {
		return r.serviceError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(progress))
}

// RecordMediaView godoc
// @Summary Учет просмотра медиафайла
// @Description Лучшее усилие: отказ учета не считается ошибкой клиента.
// @Tags client
// @Produce json
// @Param media_id path string true "ID медиафайла"
// @Success 202 {object} response.Response
// @Router /api/v1/client/media/{media_id}/view [post]
func (r *Routers) RecordMediaView(c echo.Context) error {
	const op = "http.routers.RecordMediaView"

	log := r.log.With(slog.String("op", op))

	mediaID, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", ErrInvalidUUID.Error()))
	}

	if err := r.UsageService.RecordView(c.Request().Context(), mediaID); err != nil {
		log.Warn("view not recorded", sl.Err(err))
	}

	return c.JSON(http.StatusAccepted, response.SuccessResponse(nil))
}

func (r *Routers) parseMediaUploadInput(c echo.Context) (*dto.MediaUploadInput, error) {
	galleryID, err := uuid.Parse(c.FormValue("gallery_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid gallery_id: %w", err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file is required: %w", err)
	}

	input := &dto.MediaUploadInput{
		GalleryID: galleryID,
		File:      file,
		MediaType: c.FormValue("media_type"),
	}

	if widthStr := c.FormValue("width"); widthStr != "" {
		if width, err := strconv.Atoi(widthStr); err == nil {
			input.Width = &width
		}
	}
	if heightStr := c.FormValue("height"); heightStr != "" {
		if height, err := strconv.Atoi(heightStr); err == nil {
			input.Height = &height
		}
	}
	if durationStr := c.FormValue("duration"); durationStr != "" {
		if duration, err := strconv.Atoi(durationStr); err == nil {
			input.Duration = &duration
		}
	}

	return input, nil
}

// serviceError переводит доменные ошибки в HTTP-статусы
func (r *Routers) serviceError(c echo.Context, log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, storage.ErrGalleryNotFound):
		return c.JSON(http.StatusNotFound, response.ErrGalleryNotFound)
	case errors.Is(err, storage.ErrMediaNotFound):
		return c.JSON(http.StatusNotFound, response.ErrMediaNotFound)
	case errors.Is(err, storage.ErrPackageNotFound):
		return c.JSON(http.StatusNotFound, response.ErrorResponseWithDetails("package_not_found", "Package does not exist"))
	case errors.Is(err, storage.ErrGrantNotFound):
		return c.JSON(http.StatusNotFound, response.ErrorResponseWithDetails("grant_not_found", "Access grant does not exist"))
	case errors.Is(err, storage.ErrProgressNotFound):
		return c.JSON(http.StatusNotFound, response.ErrorResponseWithDetails("job_not_found", "Archive job does not exist or expired"))
	case errors.Is(err, storage.ErrSlugTaken):
		return c.JSON(http.StatusConflict, response.ErrSlugTaken)
	case errors.Is(err, storage.ErrAccessDenied):
		return c.JSON(http.StatusForbidden, response.ErrAccessDenied)
	case errors.Is(err, storage.ErrQuotaExceeded):
		return c.JSON(http.StatusConflict, response.ErrQuotaExceeded)
	case errors.Is(err, storage.ErrDeadlinePassed):
		return c.JSON(http.StatusConflict, response.ErrDeadlinePassed)
	case errors.Is(err, storage.ErrInvalidStateTransition):
		return c.JSON(http.StatusConflict, response.ErrInvalidStateTransition)
	case errors.Is(err, storage.ErrInvalidPassword):
		return c.JSON(http.StatusUnauthorized, response.ErrInvalidPassword)
	}

	log.Error("internal error", sl.Err(err))
	return c.JSON(http.StatusInternalServerError, response.ErrorResponseWithDetails("internal_error", "Internal server error"))
}

// clientIDFromToken достает client_id из подписанного share-токена
func clientIDFromToken(c echo.Context) (uuid.UUID, error) {
	token, ok := c.Get("user").(*jwtlib.Token)
	if !ok {
		return uuid.Nil, errors.New("share token missing")
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("malformed token claims")
	}

	raw, ok := claims["client_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("client_id claim missing")
	}

	clientID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid client_id claim: %w", err)
	}

	return clientID, nil
}
