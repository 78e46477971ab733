package models

import (
	"time"

	"github.com/google/uuid"
)

type GalleryType string

const (
	GalleryTypeWebsite   GalleryType = "website"
	GalleryTypePortfolio GalleryType = "portfolio"
	GalleryTypeClient    GalleryType = "client"
)

// Gallery представляет собой модель галереи
type Gallery struct {
	ID                     uuid.UUID   `json:"id"`                       // Уникальный идентификатор галереи
	Title                  string      `json:"title"`                    // Заголовок галереи
	Slug                   string      `json:"slug"`                     // Уникальный URL-идентификатор
	Description            string      `json:"description"`              // Описание галереи
	GalleryType            GalleryType `json:"gallery_type"`             // Тип галереи (website, portfolio, client)
	IsPublic               bool        `json:"is_public"`                // Доступна ли галерея без авторизации
	IsPasswordProtected    bool        `json:"is_password_protected"`    // Защищена ли галерея паролем
	PasswordHash           []byte      `json:"-"`                        // bcrypt-хеш пароля, наружу не отдается
	AllowDownloads         bool        `json:"allow_downloads"`          // Разрешено ли скачивание
	AllowSharing           bool        `json:"allow_sharing"`            // Разрешен ли шаринг
	WatermarkEnabled       bool        `json:"watermark_enabled"`        // Накладывать ли водяной знак
	ExpiryDate             *time.Time  `json:"expiry_date"`              // Дата истечения галереи (может быть nil)
	SelectionDeadline      *time.Time  `json:"selection_deadline"`       // Дедлайн выбора для клиентов (может быть nil)
	RequiredSelectionCount int         `json:"required_selection_count"` // Требуемое число выбранных файлов (0 = без ограничения)
	ImageCount             int         `json:"image_count"`              // Кол-во медиафайлов в галерее (кешированное)
	CoverImage             string      `json:"cover_image"`              // URL обложки
	ThumbnailImage         string      `json:"thumbnail_image"`          // URL миниатюры обложки
	CreatedAt              time.Time   `json:"created_at"`               // Дата создания
	UpdatedAt              time.Time   `json:"updated_at"`               // Дата последнего обновления
}

// IsValidGalleryType проверяет допустимость типа галереи
func IsValidGalleryType(t GalleryType) bool {
	switch t {
	case GalleryTypeWebsite, GalleryTypePortfolio, GalleryTypeClient:
		return true
	}
	return false
}

// EffectiveSelectionDeadline возвращает действующий дедлайн выбора:
// из гранта, если задан, иначе из галереи
func (g *Gallery) EffectiveSelectionDeadline(grant *AccessGrant) *time.Time {
	if grant != nil && grant.SelectionDeadline != nil {
		return grant.SelectionDeadline
	}
	return g.SelectionDeadline
}
