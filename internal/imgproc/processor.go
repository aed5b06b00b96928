package imgproc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

var ErrNotImage = errors.New("uploaded file is not an image")

// Options controls the recompression applied to every uploaded photo.
// Submissions are phone camera shots, so the defaults are aggressive:
// short side pinned to 720px and heavy JPEG compression.
type Options struct {
	ShortSide   int
	JPEGQuality int
}

func DefaultOptions() Options {
	return Options{ShortSide: 720, JPEGQuality: 20}
}

// Compress re-encodes an uploaded image as a small JPEG. The aspect
// ratio is preserved; the short side is scaled to opts.ShortSide even
// when that means upscaling, so stored submissions are uniform.
func Compress(data []byte, opts Options) ([]byte, error) {
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, ErrNotImage
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var resized = src
	if w > 0 && h > 0 {
		if w < h {
			resized = imaging.Resize(src, opts.ShortSide, 0, imaging.Lanczos)
		} else {
			resized = imaging.Resize(src, 0, opts.ShortSide, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}
