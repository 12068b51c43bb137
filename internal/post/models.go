package post

import (
	"errors"
	"time"

	"backend-ofmen/internal/media"

	"github.com/jackc/pgx/v5"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrNotAuthor        = errors.New("only the author can change this post")
	ErrMissingMedia     = errors.New("media_url required")
	ErrInvalidMediaType = errors.New("media_type must be image or video")
)

// Post is a published post. Author name and image are copied in at
// creation and are not refreshed when the author edits their profile.
type Post struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Username        string     `json:"username"`
	ProfileImageURL string     `json:"profile_image_url"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	MediaURL        string     `json:"media_url"`
	MediaType       media.Kind `json:"media_type"`
	Likes           []string   `json:"likes"`
	LikesCount      int        `json:"likes_count"`
	CommentsCount   int        `json:"comments_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

// LikedBy reports whether userID is in the liker list.
func (p Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaURL    string `json:"media_url"`
	MediaType   string `json:"media_type"`
}

// UpdateRequest carries the author-editable fields. Nil leaves a field as is.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Columns is the select list matching Scan. Null or missing fields decode
// to zero values.
const Columns = `id, user_id, COALESCE(username, ''), COALESCE(profile_image_url, ''),
	COALESCE(title, ''), COALESCE(description, ''), COALESCE(media_url, ''), COALESCE(media_type, ''),
	COALESCE(likes, '{}'), COALESCE(likes_count, 0), COALESCE(comments_count, 0), created_at`

// Scan decodes one row selected with Columns.
func Scan(row pgx.Row) (Post, error) {
	var p Post
	var kind string
	if err := row.Scan(&p.ID, &p.UserID, &p.Username, &p.ProfileImageURL,
		&p.Title, &p.Description, &p.MediaURL, &kind,
		&p.Likes, &p.LikesCount, &p.CommentsCount, &p.CreatedAt); err != nil {
		return Post{}, err
	}
	p.MediaType = media.Kind(kind)
	if p.MediaType == "" {
		p.MediaType = media.KindFromURL(p.MediaURL)
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	return p, nil
}

// ScanAll drains rows selected with Columns.
func ScanAll(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()
	posts := []Post{}
	for rows.Next() {
		p, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
