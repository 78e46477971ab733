package models

import "github.com/google/uuid"

// SelectionResult возвращает вызывающему прошлое состояние флага и
// применённую дельту, чтобы UI мог детерминированно откатить
// оптимистичное изменение без полной перезагрузки
type SelectionResult struct {
	MediaID        uuid.UUID `json:"media_id"`
	Previous       bool      `json:"previous"`
	Current        bool      `json:"current"`
	Changed        bool      `json:"changed"`         // false = идемпотентный no-op
	SelectionCount int       `json:"selection_count"` // Счетчик гранта после операции (только клиентский выбор)
}
