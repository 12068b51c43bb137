package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// halves returns a w×h image, red on the left half and blue on the right.
func halves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, red)
			} else {
				img.SetRGBA(x, y, blue)
			}
		}
	}
	return img
}

func TestCropSquareFitsWholeImageByDefault(t *testing.T) {
	out, err := CropSquare(halves(200, 100), 100, Transform{})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())
	assert.Equal(t, red, out.RGBAAt(5, 50))
	assert.Equal(t, blue, out.RGBAAt(95, 50))
}

func TestCropSquareZoomedCentre(t *testing.T) {
	// Scale 2 on a 200x100 image shows x in [50,150): a quarter red, a quarter blue.
	out, err := CropSquare(halves(200, 100), 100, Transform{Scale: 2})
	require.NoError(t, err)
	assert.Equal(t, red, out.RGBAAt(10, 50))
	assert.Equal(t, blue, out.RGBAAt(90, 50))
}

func TestCropSquarePannedToOneSide(t *testing.T) {
	// Panning right by 50 window pixels at scale 2 exposes only the red half.
	out, err := CropSquare(halves(200, 100), 100, Transform{Scale: 2, OffsetX: 50})
	require.NoError(t, err)
	assert.Equal(t, red, out.RGBAAt(10, 50))
	assert.Equal(t, red, out.RGBAAt(90, 50))
}

func TestCropSquareOffImage(t *testing.T) {
	_, err := CropSquare(halves(200, 100), 100, Transform{OffsetX: 1000})
	assert.ErrorIs(t, err, ErrEmptyCrop)

	_, err = CropSquare(image.NewRGBA(image.Rectangle{}), 100, Transform{})
	assert.ErrorIs(t, err, ErrEmptyCrop)
}

func TestTransformClampsScale(t *testing.T) {
	assert.Equal(t, 1.0, Transform{}.userScale())
	assert.Equal(t, MinUserScale, Transform{Scale: 0.1}.userScale())
	assert.Equal(t, MaxUserScale, Transform{Scale: 40}.userScale())
}

func TestCropCircleMasksCorners(t *testing.T) {
	out, err := CropCircle(halves(100, 100), 64, Transform{})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())

	assert.Equal(t, uint8(0), out.RGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), out.RGBAAt(63, 63).A)
	assert.Equal(t, uint8(255), out.RGBAAt(32, 32).A)
	assert.Equal(t, red, out.RGBAAt(10, 32))
	assert.Equal(t, blue, out.RGBAAt(54, 32))
}

func TestCropCircleSlidesBackInsideImage(t *testing.T) {
	// Panned far right the window would start left of the image; the source
	// square is slid back so the crop is still full size and all red.
	out, err := CropCircle(halves(200, 100), 100, Transform{Scale: 2, OffsetX: 400})
	require.NoError(t, err)
	assert.Equal(t, red, out.RGBAAt(20, 50))
	assert.Equal(t, red, out.RGBAAt(80, 50))
}

func TestEncodePNGKeepsAlpha(t *testing.T) {
	out, err := CropCircle(halves(10, 10), 10, Transform{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, out))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	_, _, _, a := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), a)
}
