package media

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
)

const (
	MinUserScale = 0.5
	MaxUserScale = 5.0
)

var ErrEmptyCrop = errors.New("crop window does not cover the image")

// Transform is the user's pinch/pan state over a size×size crop window.
// The image starts fitted inside the window; Scale multiplies that fit and
// OffsetX/OffsetY move the image in window pixels.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

func (t Transform) userScale() float64 {
	s := t.Scale
	if s == 0 {
		s = 1
	}
	return math.Min(MaxUserScale, math.Max(MinUserScale, s))
}

// placement returns the total scale and the top-left of the scaled image in
// window coordinates.
func placement(b image.Rectangle, size int, t Transform) (scale, tx, ty float64) {
	w, h := float64(b.Dx()), float64(b.Dy())
	base := math.Min(float64(size)/w, float64(size)/h)
	scale = base * t.userScale()
	tx = (float64(size)-w*scale)/2 + t.OffsetX
	ty = (float64(size)-h*scale)/2 + t.OffsetY
	return scale, tx, ty
}

// CropSquare returns the part of src visible through the window, clipped to
// the image bounds and stretched to size×size.
func CropSquare(src image.Image, size int, t Transform) (*image.RGBA, error) {
	b := src.Bounds()
	if size <= 0 || b.Empty() {
		return nil, ErrEmptyCrop
	}
	scale, tx, ty := placement(b, size, t)

	left := max(int(math.Round(-tx/scale)), 0)
	top := max(int(math.Round(-ty/scale)), 0)
	right := min(int(math.Round((float64(size)-tx)/scale)), b.Dx())
	bottom := min(int(math.Round((float64(size)-ty)/scale)), b.Dy())
	if right <= left || bottom <= top {
		return nil, ErrEmptyCrop
	}

	rect := image.Rect(left, top, right, bottom).Add(b.Min)
	return scaleTo(src, rect, size), nil
}

// CropCircle takes a window-sized square centred on the window centre,
// slides it back inside the image when it overhangs, and masks everything
// outside the inscribed circle transparent.
func CropCircle(src image.Image, size int, t Transform) (*image.RGBA, error) {
	b := src.Bounds()
	if size <= 0 || b.Empty() {
		return nil, ErrEmptyCrop
	}
	scale, tx, ty := placement(b, size, t)
	w, h := float64(b.Dx()), float64(b.Dy())

	cx := (float64(size)/2 - tx) / scale
	cy := (float64(size)/2 - ty) / scale
	half := float64(size) / scale / 2

	left, top, right, bottom := cx-half, cy-half, cx+half, cy+half
	if left < 0 {
		right -= left
		left = 0
	}
	if top < 0 {
		bottom -= top
		top = 0
	}
	if right > w {
		left = math.Max(left-(right-w), 0)
		right = w
	}
	if bottom > h {
		top = math.Max(top-(bottom-h), 0)
		bottom = h
	}

	srcLeft := clampInt(int(math.Round(left)), 0, b.Dx()-1)
	srcTop := clampInt(int(math.Round(top)), 0, b.Dy()-1)
	srcW := min(max(int(math.Round(right-left)), 1), b.Dx()-srcLeft)
	srcH := min(max(int(math.Round(bottom-top)), 1), b.Dy()-srcTop)

	rect := image.Rect(srcLeft, srcTop, srcLeft+srcW, srcTop+srcH).Add(b.Min)
	out := scaleTo(src, rect, size)
	maskCircle(out)
	return out, nil
}

// EncodePNG writes img as PNG, keeping transparent corners.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func scaleTo(src image.Image, rect image.Rectangle, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, rect, draw.Src, nil)
	return dst
}

func maskCircle(img *image.RGBA) {
	b := img.Bounds()
	r := float64(b.Dx()) / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x-b.Min.X) + 0.5 - r
			dy := float64(y-b.Min.Y) + 0.5 - r
			if dx*dx+dy*dy > r*r {
				img.SetRGBA(x, y, color.RGBA{})
			}
		}
	}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
