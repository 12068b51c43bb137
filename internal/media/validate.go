package media

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("empty file")
)

var allowedTypes = map[string]Kind{
	"image/jpeg": KindImage,
	"image/png":  KindImage,
	"video/mp4":  KindVideo,
}

// Validate checks a candidate upload against the allow-list and the size
// ceiling. It never touches the network.
func Validate(mimeType string, size, maxBytes int64) error {
	if _, ok := allowedTypes[normalizeMIME(mimeType)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, maxBytes)
	}
	return nil
}

// AllowedTypes lists the accepted MIME types.
func AllowedTypes() []string {
	return []string{"image/jpeg", "image/png", "video/mp4"}
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp4":  "video/mp4",
}

// DetectType returns declared unless it is empty or generic binary, in which
// case the type is taken from the file name extension.
func DetectType(filename, declared string) string {
	if d := normalizeMIME(declared); d != "" && d != "application/octet-stream" {
		return declared
	}
	if t, ok := extensionTypes[strings.ToLower(path.Ext(filename))]; ok {
		return t
	}
	return declared
}

func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
