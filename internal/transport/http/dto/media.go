package dto

import (
	"mime/multipart"

	"github.com/google/uuid"
)

type MediaUploadInput struct {
	GalleryID uuid.UUID             `json:"gallery_id" validate:"required"`
	File      *multipart.FileHeader `json:"-" form:"file" validate:"required"`
	MediaType string                `json:"media_type" validate:"required,oneof=image video"`

	// Только для видео: размеры и длительность не извлекаются из файла
	Duration *int `json:"duration,omitempty" validate:"omitempty,min=1"`
	Width    *int `json:"width,omitempty" validate:"omitempty,min=1"`
	Height   *int `json:"height,omitempty" validate:"omitempty,min=1"`
}
