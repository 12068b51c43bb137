package post

import (
	"context"
	"errors"
	"strings"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/db"
	"backend-ofmen/internal/media"
	"backend-ofmen/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db      db.Querier
	storage *storage.Service
}

func NewService(db db.Querier, storage *storage.Service) *Service {
	return &Service{db: db, storage: storage}
}

// Create writes a new post with zeroed counters and an empty liker list.
// The media kind comes from the request, or from the URL extension when the
// request leaves it blank.
func (s *Service) Create(ctx context.Context, author auth.Identity, req CreateRequest) (Post, error) {
	req.MediaURL = strings.TrimSpace(req.MediaURL)
	if req.MediaURL == "" {
		return Post{}, ErrMissingMedia
	}
	kind := media.KindFromURL(req.MediaURL)
	if req.MediaType != "" {
		parsed, ok := media.ParseKind(req.MediaType)
		if !ok {
			return Post{}, ErrInvalidMediaType
		}
		kind = parsed
	}

	p := Post{
		ID:              uuid.NewString(),
		UserID:          author.ID,
		Username:        author.DisplayName,
		ProfileImageURL: author.ProfileImageURL,
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		MediaURL:        req.MediaURL,
		MediaType:       kind,
		Likes:           []string{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, user_id, username, profile_image_url, title, description, media_url, media_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, p.ID, p.UserID, p.Username, p.ProfileImageURL, p.Title, p.Description, p.MediaURL, string(p.MediaType))
	if err := row.Scan(&p.CreatedAt); err != nil {
		return Post{}, err
	}
	return p, nil
}

// UploadAndCreate validates and uploads file, then creates a post pointing at
// it. Nothing is undone if creating the post fails after the upload.
func (s *Service) UploadAndCreate(ctx context.Context, author auth.Identity, file storage.File, title, description string) (Post, error) {
	obj, err := s.storage.Store(ctx, author.ID, file)
	if err != nil {
		return Post{}, err
	}
	return s.Create(ctx, author, CreateRequest{
		Title:       title,
		Description: description,
		MediaURL:    obj.URL,
		MediaType:   string(obj.Kind),
	})
}

func (s *Service) Get(ctx context.Context, postID string) (Post, error) {
	p, err := Scan(s.db.QueryRow(ctx, `SELECT `+Columns+` FROM posts WHERE id = $1`, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, err
	}
	return p, nil
}

// ListByUser returns a user's posts, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+Columns+`
		FROM posts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return ScanAll(rows)
}

func (s *Service) Update(ctx context.Context, postID, userID string, req UpdateRequest) (Post, error) {
	if err := s.checkAuthor(ctx, postID, userID); err != nil {
		return Post{}, err
	}
	p, err := Scan(s.db.QueryRow(ctx, `
		UPDATE posts
		SET title = COALESCE($2, title), description = COALESCE($3, description)
		WHERE id = $1
		RETURNING `+Columns, postID, req.Title, req.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, err
	}
	return p, nil
}

// Delete removes the post document only. Its comments and saved links are
// left behind; readers skip links to missing posts.
func (s *Service) Delete(ctx context.Context, postID, userID string) error {
	if err := s.checkAuthor(ctx, postID, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	return err
}

func (s *Service) checkAuthor(ctx context.Context, postID, userID string) error {
	var owner string
	if err := s.db.QueryRow(ctx, `SELECT user_id FROM posts WHERE id = $1`, postID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPostNotFound
		}
		return err
	}
	if owner != userID {
		return ErrNotAuthor
	}
	return nil
}
