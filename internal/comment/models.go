package comment

import (
	"errors"
	"time"
)

var (
	ErrEmptyText       = errors.New("comment text required")
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotAuthor       = errors.New("only the author can change this comment")
	// ErrCounterDrift means the comment write landed but the post's
	// comments_count update did not. The counter is left wrong.
	ErrCounterDrift = errors.New("comment saved but post counter not updated")
)

type Comment struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	ProfileImageURL string    `json:"profile_image_url"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
}

type TextRequest struct {
	Text string `json:"text"`
}
