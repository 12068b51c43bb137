package media

import (
	"net/url"
	"path"
	"strings"
)

// Kind is how a post's media is rendered.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var videoExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".mkv": {},
}

// KindFromMIME maps an upload's MIME type to its kind. Unknown types are
// treated as images.
func KindFromMIME(mimeType string) Kind {
	if kind, ok := allowedTypes[normalizeMIME(mimeType)]; ok {
		return kind
	}
	if strings.HasPrefix(normalizeMIME(mimeType), "video/") {
		return KindVideo
	}
	return KindImage
}

// KindFromURL guesses the kind from the URL path extension. It is only a
// fallback for posts created from a bare URL.
func KindFromURL(raw string) Kind {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	if _, ok := videoExtensions[strings.ToLower(path.Ext(p))]; ok {
		return KindVideo
	}
	return KindImage
}

// ParseKind accepts a client supplied kind, returning false for anything
// other than image or video.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindImage:
		return KindImage, true
	case KindVideo:
		return KindVideo, true
	}
	return "", false
}
