package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// Dimensions размеры изображения в пикселях
type Dimensions struct {
	Width  int
	Height int
}

// Prober абстракция над обработкой изображений: определение размеров
// и генерация миниатюр
type Prober interface {
	ProbeDimensions(data []byte) (Dimensions, error)
	DeriveThumbnail(data []byte, maxWidth int) ([]byte, error)
}

// ImagingProber реализация на disintegration/imaging
type ImagingProber struct {
	// Качество JPEG для миниатюр
	Quality int
}

func NewProber() *ImagingProber {
	return &ImagingProber{Quality: 85}
}

// ProbeDimensions определяет размеры изображения без полного декодирования
func (p *ImagingProber) ProbeDimensions(data []byte) (Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to decode image config: %w", err)
	}

	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// DeriveThumbnail строит JPEG-миниатюру с сохранением пропорций
func (p *ImagingProber) DeriveThumbnail(data []byte, maxWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Ресайзим с сохранением пропорций
	thumb := imaging.Fit(img, maxWidth, maxWidth, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}
