package social

import (
	"context"
	"errors"
	"strings"

	"backend-ofmen/internal/db"
	"backend-ofmen/internal/metrics"
	"backend-ofmen/internal/storage"
	"backend-ofmen/internal/stream"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, COALESCE(username, ''), COALESCE(bio, ''), COALESCE(profile_image_url, ''),
	COALESCE(followers, '{}'), COALESCE(following, '{}')`

type Service struct {
	db      db.Querier
	hub     *stream.Hub
	storage *storage.Service
}

func NewService(db db.Querier, hub *stream.Hub, storage *storage.Service) *Service {
	return &Service{db: db, hub: hub, storage: storage}
}

// GetProfile returns the stored profile, or an empty one carrying only the
// id when the user document does not exist yet.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{ID: userID, Followers: []string{}, Following: []string{}}, nil
		}
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
		    bio = $3,
		    profile_image_url = COALESCE(NULLIF($4, ''), profile_image_url),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns,
		userID, strings.TrimSpace(req.Username), strings.TrimSpace(req.Bio), strings.TrimSpace(req.ProfileImageURL)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	s.publish(userID)
	return p, nil
}

// UploadProfileImage stores file on the CDN and points the profile at it.
func (s *Service) UploadProfileImage(ctx context.Context, userID string, file storage.File) (Profile, error) {
	obj, err := s.storage.Store(ctx, userID, file)
	if err != nil {
		return Profile{}, err
	}
	return s.UpdateProfileImage(ctx, userID, obj.URL)
}

func (s *Service) UpdateProfileImage(ctx context.Context, userID, url string) (Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `
		UPDATE users SET profile_image_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns, userID, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	s.publish(userID)
	return p, nil
}

// Follow adds userID to the target's followers and the target to userID's
// following in one transaction. Repeating it changes nothing.
func (s *Service) Follow(ctx context.Context, userID, targetID string) error {
	return s.changeEdge(ctx, userID, targetID, true, `
		UPDATE users
		SET followers = CASE WHEN $2 = ANY(followers) THEN followers ELSE array_append(followers, $2) END
		WHERE id = $1
	`, `
		UPDATE users
		SET following = CASE WHEN $2 = ANY(following) THEN following ELSE array_append(following, $2) END
		WHERE id = $1
	`)
}

// Unfollow removes both halves of the edge in one transaction.
func (s *Service) Unfollow(ctx context.Context, userID, targetID string) error {
	return s.changeEdge(ctx, userID, targetID, false, `
		UPDATE users SET followers = array_remove(followers, $2) WHERE id = $1
	`, `
		UPDATE users SET following = array_remove(following, $2) WHERE id = $1
	`)
}

func (s *Service) changeEdge(ctx context.Context, userID, targetID string, follow bool, targetSQL, selfSQL string) error {
	if userID == targetID {
		return ErrSelfFollow
	}
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, targetSQL, targetID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrProfileNotFound
		}
		tag, err = tx.Exec(ctx, selfSQL, userID, targetID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrProfileNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.FollowChanged(follow)
	s.publish(targetID)
	s.publish(userID)
	return nil
}

// ObserveProfile emits the profile now and again after every change to it.
// A missing document is emitted as the empty profile. Calling the returned
// func, or cancelling ctx, ends the stream; it is safe to call repeatedly.
func (s *Service) ObserveProfile(ctx context.Context, userID string) (<-chan Profile, func()) {
	return stream.Observe(ctx, s.hub, stream.ProfileTopic(userID), func(ctx context.Context) (Profile, error) {
		return s.GetProfile(ctx, userID)
	})
}

func (s *Service) publish(userID string) {
	if s.hub != nil {
		s.hub.Broadcast(stream.ProfileTopic(userID), []byte(userID))
	}
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Username, &p.Bio, &p.ProfileImageURL, &p.Followers, &p.Following); err != nil {
		return Profile{}, err
	}
	if p.Followers == nil {
		p.Followers = []string{}
	}
	if p.Following == nil {
		p.Following = []string{}
	}
	return p, nil
}
