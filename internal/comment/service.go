package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/db"
	"backend-ofmen/internal/metrics"
	"backend-ofmen/internal/post"
	"backend-ofmen/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const columns = `id, post_id, user_id, COALESCE(username, ''), COALESCE(profile_image_url, ''), COALESCE(text, ''), created_at`

type Service struct {
	db  db.Querier
	hub *stream.Hub
}

func NewService(db db.Querier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// List returns the thread oldest first.
func (s *Service) List(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+columns+`
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Add inserts the comment and then bumps the post's comments_count in a
// second, independent write. If the second write fails the comment stays and
// the returned error wraps ErrCounterDrift.
func (s *Service) Add(ctx context.Context, postID string, author auth.Identity, text string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, ErrEmptyText
	}

	c := Comment{
		ID:              uuid.NewString(),
		PostID:          postID,
		UserID:          author.ID,
		Username:        author.DisplayName,
		ProfileImageURL: author.ProfileImageURL,
		Text:            text,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO comments (id, post_id, user_id, username, profile_image_url, text)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, c.ID, c.PostID, c.UserID, c.Username, c.ProfileImageURL, c.Text)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Comment{}, err
	}
	metrics.CommentWritten("add")
	defer s.publish(postID)

	if err := s.adjustCount(ctx, postID, 1); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, postID, commentID, userID, text string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, ErrEmptyText
	}
	if err := s.checkAuthor(ctx, postID, commentID, userID); err != nil {
		return Comment{}, err
	}

	c, err := scan(s.db.QueryRow(ctx, `
		UPDATE comments SET text = $3
		WHERE id = $1 AND post_id = $2
		RETURNING `+columns, commentID, postID, text))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, ErrCommentNotFound
		}
		return Comment{}, err
	}
	metrics.CommentWritten("edit")
	s.publish(postID)
	return c, nil
}

// Delete removes the comment and then decrements the post's counter, with
// the same two-write gap as Add.
func (s *Service) Delete(ctx context.Context, postID, commentID, userID string) error {
	if err := s.checkAuthor(ctx, postID, commentID, userID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND post_id = $2`, commentID, postID); err != nil {
		return err
	}
	metrics.CommentWritten("delete")
	defer s.publish(postID)

	return s.adjustCount(ctx, postID, -1)
}

// Observe streams the full thread, re-read after every change.
func (s *Service) Observe(ctx context.Context, postID string) (<-chan []Comment, func()) {
	return stream.Observe(ctx, s.hub, stream.CommentsTopic(postID), func(ctx context.Context) ([]Comment, error) {
		return s.List(ctx, postID)
	})
}

// adjustCount moves the post's comments_count by delta. A post that no
// longer exists leaves the comment orphaned and reports post.ErrPostNotFound
// alongside ErrCounterDrift.
func (s *Service) adjustCount(ctx context.Context, postID string, delta int) error {
	tag, err := s.db.Exec(ctx, `UPDATE posts SET comments_count = comments_count + $2 WHERE id = $1`, postID, delta)
	if err != nil {
		metrics.CounterUpdateFailed()
		return fmt.Errorf("%w: %v", ErrCounterDrift, err)
	}
	if tag.RowsAffected() == 0 {
		metrics.CounterUpdateFailed()
		return fmt.Errorf("%w: %w", ErrCounterDrift, post.ErrPostNotFound)
	}
	return nil
}

func (s *Service) checkAuthor(ctx context.Context, postID, commentID, userID string) error {
	var owner string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM comments WHERE id = $1 AND post_id = $2`, commentID, postID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCommentNotFound
		}
		return err
	}
	if owner != userID {
		return ErrNotAuthor
	}
	return nil
}

func (s *Service) publish(postID string) {
	if s.hub != nil {
		s.hub.Broadcast(stream.CommentsTopic(postID), []byte(postID))
	}
}

func scan(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.ProfileImageURL, &c.Text, &c.CreatedAt)
	return c, err
}
