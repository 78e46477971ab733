package dto

import (
	"time"

	"aperture_studio/internal/domain/models"

	"github.com/google/uuid"
)

type CreateGalleryRequest struct {
	Title                  string     `json:"title" validate:"required"`
	Slug                   string     `json:"slug"` // Пустой slug генерируется из заголовка
	Description            string     `json:"description"`
	GalleryType            string     `json:"gallery_type" validate:"required,oneof=website portfolio client"`
	IsPublic               bool       `json:"is_public"`
	Password               string     `json:"password,omitempty"` // Открытый пароль, хешируется до записи
	AllowDownloads         bool       `json:"allow_downloads"`
	AllowSharing           bool       `json:"allow_sharing"`
	WatermarkEnabled       bool       `json:"watermark_enabled"`
	ExpiryDate             *time.Time `json:"expiry_date,omitempty"`
	SelectionDeadline      *time.Time `json:"selection_deadline,omitempty"`
	RequiredSelectionCount int        `json:"required_selection_count" validate:"omitempty,min=0"`
}

type UpdateGalleryRequest struct {
	ID                     uuid.UUID  `json:"id" validate:"required"`
	Title                  string     `json:"title" validate:"required"`
	Slug                   string     `json:"slug"`
	Description            string     `json:"description"`
	GalleryType            string     `json:"gallery_type" validate:"required,oneof=website portfolio client"`
	IsPublic               bool       `json:"is_public"`
	Password               *string    `json:"password,omitempty"` // nil = пароль не меняется, "" = снимается
	AllowDownloads         bool       `json:"allow_downloads"`
	AllowSharing           bool       `json:"allow_sharing"`
	WatermarkEnabled       bool       `json:"watermark_enabled"`
	ExpiryDate             *time.Time `json:"expiry_date,omitempty"`
	SelectionDeadline      *time.Time `json:"selection_deadline,omitempty"`
	RequiredSelectionCount int        `json:"required_selection_count" validate:"omitempty,min=0"`
}

type VerifyGalleryPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// GalleryListResponse страница списка галерей
type GalleryListResponse struct {
	Galleries []models.Gallery `json:"galleries"`
	Total     int              `json:"total"`
	Page      int              `json:"page"`
	PerPage   int              `json:"per_page"`
}

// CascadeDeleteResponse итог каскадного удаления галереи: сервис
// продолжает удаление при отказах хранилища и перечисляет их здесь
type CascadeDeleteResponse struct {
	GalleryID     uuid.UUID `json:"gallery_id"`
	MediaDeleted  int       `json:"media_deleted"`
	FailedObjects []string  `json:"failed_objects,omitempty"`
}
