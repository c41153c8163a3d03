package capture

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
)

var ErrEmptyFrame = errors.New("frame has no pixels")

// EncodeJPEG compresses a frame for upload. Zero-sized frames are rejected
// so the caller can skip the tick.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, ErrEmptyFrame
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyFrame
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
