package models

import (
	"time"

	"github.com/google/uuid"
)

type AccessType string

const (
	AccessTypeView     AccessType = "view"
	AccessTypeSelect   AccessType = "select"
	AccessTypeDownload AccessType = "download"
)

// accessRank задает порядок возможностей: download > select > view
var accessRank = map[AccessType]int{
	AccessTypeView:     1,
	AccessTypeSelect:   2,
	AccessTypeDownload: 3,
}

// Dominates сообщает, покрывает ли данный уровень доступа требуемый
func (a AccessType) Dominates(required AccessType) bool {
	return accessRank[a] >= accessRank[required]
}

// IsValidAccessType проверяет допустимость уровня доступа
func IsValidAccessType(a AccessType) bool {
	_, ok := accessRank[a]
	return ok
}

// AccessGrant связывает клиента с галереей: уровень доступа, квота и
// дедлайн выбора. У клиента может быть не более одного активного гранта
// на галерею.
type AccessGrant struct {
	ID                uuid.UUID  `json:"id"`
	GalleryID         uuid.UUID  `json:"gallery_id"`
	ClientID          uuid.UUID  `json:"client_id"`
	ClientEmail       string     `json:"client_email"`       // Для нотификаций, сервис их не отправляет
	AccessType        AccessType `json:"access_type"`
	MaxSelections     *int       `json:"max_selections"`     // nil = без ограничения
	SelectionCount    int        `json:"selection_count"`    // Кешированное число выбранных медиа
	SelectionDeadline *time.Time `json:"selection_deadline"` // nil = берется из галереи
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// QuotaReached сообщает, исчерпана ли квота выбора
func (g *AccessGrant) QuotaReached() bool {
	return g.MaxSelections != nil && g.SelectionCount >= *g.MaxSelections
}
