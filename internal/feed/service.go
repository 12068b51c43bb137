package feed

import (
	"context"
	"errors"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/comment"
	"backend-ofmen/internal/db"
	"backend-ofmen/internal/metrics"
	"backend-ofmen/internal/post"

	"github.com/jackc/pgx/v5"
)

// LikeState is a post's liker list after a toggle.
type LikeState struct {
	PostID     string   `json:"post_id"`
	Likes      []string `json:"likes"`
	LikesCount int      `json:"likes_count"`
	Liked      bool     `json:"liked"`
}

type Service struct {
	db       db.Querier
	posts    *post.Service
	comments *comment.Service
}

func NewService(db db.Querier, posts *post.Service, comments *comment.Service) *Service {
	return &Service{db: db, posts: posts, comments: comments}
}

// ListRanked returns every post, most liked first, newer first on ties.
func (s *Service) ListRanked(ctx context.Context) ([]post.Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+post.Columns+`
		FROM posts
		ORDER BY likes_count DESC, created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return post.ScanAll(rows)
}

// ToggleLike adds or removes userID from the post's liker list and rewrites
// likes_count as the list length, all under one row lock.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string, like bool) (LikeState, error) {
	state := LikeState{PostID: postID}
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var likes []string
		err := tx.QueryRow(ctx, `SELECT COALESCE(likes, '{}') FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&likes)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return post.ErrPostNotFound
			}
			return err
		}

		likes = toggle(likes, userID, like)
		if _, err := tx.Exec(ctx, `UPDATE posts SET likes = $2, likes_count = $3 WHERE id = $1`, postID, likes, len(likes)); err != nil {
			return err
		}
		state.Likes = likes
		state.LikesCount = len(likes)
		state.Liked = like
		return nil
	})
	if err != nil {
		return LikeState{}, err
	}
	metrics.LikeToggled(like)
	return state, nil
}

// AddComment is the feed's quick comment. See comment.Service.Add for the
// counter gap.
func (s *Service) AddComment(ctx context.Context, postID string, author auth.Identity, text string) (comment.Comment, error) {
	return s.comments.Add(ctx, postID, author, text)
}

// ToggleSave creates or removes the user's saved-post link. Saving again
// refreshes the link's timestamp.
func (s *Service) ToggleSave(ctx context.Context, postID, userID string, save bool) error {
	if save {
		_, err := s.db.Exec(ctx, `
			INSERT INTO saved_posts (user_id, post_id)
			VALUES ($1,$2)
			ON CONFLICT (user_id, post_id) DO UPDATE SET saved_at = NOW()
		`, userID, postID)
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM saved_posts WHERE user_id = $1 AND post_id = $2`, userID, postID)
	return err
}

// ListSaved reads the user's links, most recent first, and then loads each
// post with its own query. Links to deleted posts are skipped.
func (s *Service) ListSaved(ctx context.Context, userID string) ([]post.Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT post_id
		FROM saved_posts
		WHERE user_id = $1
		ORDER BY saved_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	posts := make([]post.Post, 0, len(ids))
	for _, id := range ids {
		p, err := s.posts.Get(ctx, id)
		if errors.Is(err, post.ErrPostNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func toggle(likes []string, userID string, like bool) []string {
	out := make([]string, 0, len(likes)+1)
	present := false
	for _, id := range likes {
		if id == userID {
			present = true
			if !like {
				continue
			}
		}
		out = append(out, id)
	}
	if like && !present {
		out = append(out, userID)
	}
	return out
}
