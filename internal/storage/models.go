package storage

import (
	"io"
	"time"

	"backend-ofmen/internal/media"
)

// Object is one entry in the upload ledger.
type Object struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	URL       string     `json:"url"`
	Kind      media.Kind `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
}

// File is a candidate upload as received from a client.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Body     io.Reader
}
