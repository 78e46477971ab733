package dto

import (
	"time"

	"aperture_studio/internal/domain/models"

	"github.com/google/uuid"
)

type GrantAccessRequest struct {
	GalleryID         uuid.UUID  `json:"gallery_id" validate:"required"`
	ClientID          uuid.UUID  `json:"client_id" validate:"required"`
	ClientEmail       string     `json:"client_email" validate:"required,email"`
	AccessType        string     `json:"access_type" validate:"required,oneof=view select download"`
	MaxSelections     *int       `json:"max_selections,omitempty" validate:"omitempty,min=1"`
	SelectionDeadline *time.Time `json:"selection_deadline,omitempty"`
}

// GrantAccessResponse возвращает грант вместе с подписанной ссылкой
// для клиента
type GrantAccessResponse struct {
	Grant      models.AccessGrant `json:"grant"`
	ShareToken string             `json:"share_token"`
	ShareURL   string             `json:"share_url"`
}
