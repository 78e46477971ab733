package dto

// SetSelectionRequest меняет флаг выбора медиафайла. Повторная
// установка того же значения считается валидным no-op.
type SetSelectionRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}
