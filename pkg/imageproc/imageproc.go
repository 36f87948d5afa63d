package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// MaxDimension bounds the longer side of a stored profile picture.
const MaxDimension = 512

var formatsByMime = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/jpg":  imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/tiff": imaging.TIFF,
}

// ErrUnsupported is returned for image types that cannot be re-encoded.
var ErrUnsupported = errors.New("unsupported image format")

// Normalize shrinks an image so it fits in MaxDimension x MaxDimension,
// keeping the aspect ratio and the encoding. Images already within bounds
// come back unchanged.
func Normalize(data []byte, contentType string) ([]byte, error) {
	format, ok := formatsByMime[contentType]
	if !ok {
		return nil, ErrUnsupported
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if fits(img.Bounds()) {
		return data, nil
	}

	resized := imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func fits(b image.Rectangle) bool {
	return b.Dx() <= MaxDimension && b.Dy() <= MaxDimension
}
