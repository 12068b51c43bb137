package client

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"backend-ofmen/internal/media"
	"backend-ofmen/internal/storage"
)

// Shape selects the crop mask applied before an image is uploaded.
type Shape int

const (
	Square Shape = iota
	Circle
)

// Crop decodes the image in f, crops it to a size×size window placed by t
// and returns it re-encoded as PNG. Posts use Square, profile pictures
// Circle.
func Crop(f storage.File, shape Shape, size int, t media.Transform) (storage.File, error) {
	if !strings.HasPrefix(f.MIMEType, "image/") {
		return storage.File{}, fmt.Errorf("%w: %s cannot be cropped", media.ErrUnsupportedType, f.MIMEType)
	}
	src, _, err := image.Decode(f.Body)
	if err != nil {
		return storage.File{}, fmt.Errorf("decode %s: %w", f.Name, err)
	}

	var out *image.RGBA
	switch shape {
	case Circle:
		out, err = media.CropCircle(src, size, t)
	default:
		out, err = media.CropSquare(src, size, t)
	}
	if err != nil {
		return storage.File{}, err
	}

	var buf bytes.Buffer
	if err := media.EncodePNG(&buf, out); err != nil {
		return storage.File{}, err
	}
	return storage.File{
		Name:     strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".png",
		MIMEType: "image/png",
		Size:     int64(buf.Len()),
		Body:     &buf,
	}, nil
}
