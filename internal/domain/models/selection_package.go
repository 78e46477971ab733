package models

import (
	"time"

	"github.com/google/uuid"
)

type PackageStatus string

const (
	PackageStatusDraft     PackageStatus = "draft"
	PackageStatusApproved  PackageStatus = "approved"
	PackageStatusDelivered PackageStatus = "delivered"
)

// CanTransitionTo проверяет допустимость перехода статуса:
// draft -> approved -> delivered, без откатов
func (s PackageStatus) CanTransitionTo(next PackageStatus) bool {
	switch s {
	case PackageStatusDraft:
		return next == PackageStatusApproved
	case PackageStatusApproved:
		return next == PackageStatusDelivered
	}
	return false
}

// SelectionPackage хранит именованный снимок отобранных медиафайлов
// для доставки клиенту. Список MediaIDs фиксируется при создании и
// больше не изменяется, даже если медиа позже удалены из галереи.
type SelectionPackage struct {
	ID          uuid.UUID     `json:"id"`
	GalleryID   uuid.UUID     `json:"gallery_id"`
	ClientID    uuid.UUID     `json:"client_id"`
	Name        string        `json:"name"`
	Comments    string        `json:"comments"` // Произвольный комментарий фотографа
	Status      PackageStatus `json:"status"`
	MediaIDs    []uuid.UUID   `json:"media_ids"` // Упорядоченный неизменяемый снимок
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ApprovedAt  *time.Time    `json:"approved_at,omitempty"`
	DeliveredAt *time.Time    `json:"delivered_at,omitempty"`
}

// DownloadLink генерируется по снимку пакета и не персистится
type DownloadLink struct {
	MediaID     uuid.UUID `json:"media_id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mime_type"`
	StoragePath string    `json:"-"` // Путь в хранилище для сборки архива
}

// LinkFailure описывает отказ резолва ссылки для одного медиа
type LinkFailure struct {
	MediaID uuid.UUID `json:"media_id"`
	Reason  string    `json:"reason"`
}

// SkippedFile описывает файл, пропущенный при сборке архива
type SkippedFile struct {
	MediaID  uuid.UUID `json:"media_id"`
	Filename string    `json:"filename"`
	Reason   string    `json:"reason"`
}

// ArchiveResult содержит итог сборки архива. Пропуски отдельных
// файлов не считаются ошибкой операции и отражаются в Skipped.
type ArchiveResult struct {
	Filename  string        `json:"filename"`
	Data      []byte        `json:"-"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Skipped   []SkippedFile `json:"skipped,omitempty"`
}

// PartialFailure сообщает, были ли пропуски при сборке
func (r *ArchiveResult) PartialFailure() bool {
	return len(r.Skipped) > 0
}

// ArchiveProgress показывает ход сборки архива для отдачи клиенту
type ArchiveProgress struct {
	JobID              string    `json:"job_id"`
	Completed          int       `json:"completed"`
	Total              int       `json:"total"`
	CompressionPercent int       `json:"compression_percent"`
	Done               bool      `json:"done"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NotificationPayload собирает данные для внешнего сервиса
// нотификаций, доставка не гарантируется
type NotificationPayload struct {
	Package     SelectionPackage `json:"package"`
	ClientEmail string           `json:"client_email"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
}
