package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Media представляет медиафайл в галерее. Медиафайл принадлежит
// ровно одной галерее.
type Media struct {
	ID                   uuid.UUID  `json:"id"`
	GalleryID            uuid.UUID  `json:"gallery_id"`
	Filename             string     `json:"filename"`          // Сгенерированное имя файла в хранилище
	OriginalFilename     string     `json:"original_filename"` // Имя файла при загрузке
	URL                  string     `json:"url"`               // Полноразмерный файл
	ThumbnailURL         string     `json:"thumbnail_url"`     // Миниатюра
	MediaType            MediaType  `json:"media_type"`
	Size                 int64      `json:"size"`
	Width                *int       `json:"width,omitempty"`
	Height               *int       `json:"height,omitempty"`
	Duration             *int       `json:"duration,omitempty"` // Только для видео, секунды
	ClientSelected       bool       `json:"client_selected"`
	PhotographerSelected bool       `json:"photographer_selected"`
	ViewCount            int64      `json:"view_count"`
	DownloadCount        int64      `json:"download_count"`
	LastViewed           *time.Time `json:"last_viewed,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Validate проверяет корректность данных медиафайла
func (m *Media) Validate() error {
	var validationErrors []string

	if m.GalleryID == uuid.Nil {
		validationErrors = append(validationErrors, "gallery ID is required")
	}
	if m.Filename == "" {
		validationErrors = append(validationErrors, "filename is required")
	}
	if m.OriginalFilename == "" {
		validationErrors = append(validationErrors, "original filename is required")
	}
	if len(m.OriginalFilename) > 255 {
		validationErrors = append(validationErrors, "original filename must be 255 characters or less")
	}
	if m.Size <= 0 {
		validationErrors = append(validationErrors, "file size must be positive")
	}

	switch m.MediaType {
	case MediaTypeImage, MediaTypeVideo:
		if m.Width == nil || m.Height == nil {
			validationErrors = append(validationErrors, "width and height are required")
		} else if *m.Width <= 0 || *m.Height <= 0 {
			validationErrors = append(validationErrors, "width and height must be positive values")
		}

		if m.MediaType == MediaTypeVideo && m.Duration == nil {
			validationErrors = append(validationErrors, "duration is required for videos")
		}
	default:
		validationErrors = append(validationErrors,
			fmt.Sprintf("invalid media type '%s', must be one of: [image video]", m.MediaType))
	}

	if len(validationErrors) > 0 {
		return &MediaValidationError{Errors: validationErrors}
	}

	return nil
}

// MediaValidationError кастомный тип ошибки для валидации
type MediaValidationError struct {
	Errors []string
}

func (e *MediaValidationError) Error() string {
	return fmt.Sprintf("media validation failed: %s", strings.Join(e.Errors, "; "))
}

// IsMediaValidationError проверяет, является ли ошибка ошибкой валидации
func IsMediaValidationError(err error) bool {
	_, ok := err.(*MediaValidationError)
	return ok
}
