package storage

import (
	"context"
	"fmt"

	"backend-ofmen/internal/db"
	"backend-ofmen/internal/logging"
	"backend-ofmen/internal/media"
	"backend-ofmen/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Service struct {
	db       db.Querier
	uploader media.Uploader
	maxBytes int64
	log      *logrus.Logger
}

func NewService(db db.Querier, uploader media.Uploader, maxBytes int64, log *logrus.Logger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{db: db, uploader: uploader, maxBytes: maxBytes, log: log}
}

// Store validates f, streams it to the CDN and records it in the ledger.
// A ledger write failure is logged and does not fail the upload: the file
// is already public at that point.
func (s *Service) Store(ctx context.Context, userID string, f File) (Object, error) {
	if err := media.Validate(f.MIMEType, f.Size, s.maxBytes); err != nil {
		metrics.Upload("rejected")
		return Object{}, err
	}

	url, err := s.uploader.Upload(ctx, f.Body, f.Name, f.MIMEType)
	if err != nil {
		metrics.Upload("failed")
		return Object{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	metrics.Upload("stored")

	obj := Object{UserID: userID, URL: url, Kind: media.KindFromMIME(f.MIMEType)}
	id, err := s.SaveObject(ctx, userID, url, string(obj.Kind))
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "url": url}).Warn("media ledger write failed")
		return obj, nil
	}
	obj.ID = id
	return obj, nil
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO media_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListObjects returns a user's uploads, newest first.
func (s *Service) ListObjects(ctx context.Context, userID string) ([]Object, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, url, COALESCE(kind, ''), created_at
		FROM media_objects
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	objects := []Object{}
	for rows.Next() {
		var obj Object
		var kind string
		if err := rows.Scan(&obj.ID, &obj.UserID, &obj.URL, &kind, &obj.CreatedAt); err != nil {
			return nil, err
		}
		obj.Kind = media.Kind(kind)
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}
