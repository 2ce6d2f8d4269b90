package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const thumbnailMaxPixels = 600

// MaxSourcePixels предел площади исходного снимка, который еще декодируется для миниатюры
const MaxSourcePixels = 40_000_000

// ErrImageTooLarge снимок слишком велик для декодирования в отчете
var ErrImageTooLarge = errors.New("image too large for thumbnail")

// Thumbnail уменьшенная копия снимка в JPEG и ее размер на странице (мм)
type Thumbnail struct {
	JPEG   []byte
	Width  float64
	Height float64
}

// NewThumbnail декодирует снимок и вписывает его в квадрат maxSide мм.
// Форматы, которые не декодируются (например DICOM), возвращают ошибку.
func NewThumbnail(data []byte, maxSide float64) (*Thumbnail, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	fitted := imaging.Fit(img, thumbnailMaxPixels, thumbnailMaxPixels, imaging.Lanczos)
	bounds := fitted.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	w, h := maxSide, maxSide
	ratio := float64(bounds.Dx()) / float64(bounds.Dy())
	if ratio >= 1 {
		h = maxSide / ratio
	} else {
		w = maxSide * ratio
	}

	return &Thumbnail{JPEG: buf.Bytes(), Width: w, Height: h}, nil
}
