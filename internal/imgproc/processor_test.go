package imgproc

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestCompressLandscape(t *testing.T) {
	out, err := Compress(encodePNG(t, 2000, 1000), DefaultOptions())
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 720, h, "short side pinned")
	assert.Equal(t, 1440, w, "aspect ratio preserved")

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1440, cfg.Width)
}

func TestCompressPortrait(t *testing.T) {
	out, err := Compress(encodePNG(t, 900, 1800), DefaultOptions())
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 720, w)
	assert.Equal(t, 1440, h)
}

func TestCompressUpscalesSmallImages(t *testing.T) {
	out, err := Compress(encodePNG(t, 360, 480), DefaultOptions())
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 720, w)
	assert.Equal(t, 960, h)
}

func TestCompressRejectsNonImage(t *testing.T) {
	_, err := Compress([]byte("definitely not a picture"), DefaultOptions())
	assert.ErrorIs(t, err, ErrNotImage)
}
