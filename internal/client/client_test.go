package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/feed"
	"backend-ofmen/internal/media"
	"backend-ofmen/internal/post"
	"backend-ofmen/internal/session"
	"backend-ofmen/internal/social"
	"backend-ofmen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls   atomic.Int32
	uploads atomic.Int32
	server  *httptest.Server

	mu        sync.Mutex
	likes     map[string]bool
	followers []string
	chunked   bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{likes: map[string]bool{}}
	mux := http.NewServeMux()
	writeAuth := func(w http.ResponseWriter, status int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":   auth.User{ID: "user-1", Email: "a@b.c", Username: "alice"},
			"tokens": auth.TokenResponse{AccessToken: "access-1", RefreshToken: "refresh-1", TokenType: "Bearer"},
		})
	}
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		writeAuth(w, http.StatusCreated)
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		var req auth.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		writeAuth(w, http.StatusOK)
	})
	mux.HandleFunc("GET /feed/posts", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-1" {
			http.Error(w, "missing or invalid token", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]post.Post{{ID: "post-1", Title: "first"}})
	})
	mux.HandleFunc("POST /feed/posts/{id}/like", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		var req struct {
			Like bool `json:"like"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		api.mu.Lock()
		api.likes[r.PathValue("id")] = req.Like
		api.mu.Unlock()
		_ = json.NewEncoder(w).Encode(feed.LikeState{PostID: r.PathValue("id"), Liked: req.Like})
	})
	mux.HandleFunc("GET /profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		api.mu.Lock()
		defer api.mu.Unlock()
		_ = json.NewEncoder(w).Encode(social.Profile{ID: r.PathValue("id"), Followers: api.followers})
	})
	mux.HandleFunc("POST /profiles/{id}/follow", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		api.mu.Lock()
		api.followers = []string{"user-1"}
		api.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /profiles/{id}/follow", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		api.mu.Lock()
		api.followers = nil
		api.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /profiles/me/image", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		api.uploads.Add(1)
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(social.Profile{ID: "user-1", ProfileImageURL: "https://cdn.test/me.png"})
	})
	mux.HandleFunc("POST /posts/upload", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		api.uploads.Add(1)
		api.mu.Lock()
		api.chunked = r.ContentLength == -1
		api.mu.Unlock()
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(post.Post{
			ID:        "post-2",
			Title:     r.FormValue("title"),
			MediaType: media.KindFromMIME(header.Header.Get("Content-Type")),
		})
	})
	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func newClient(t *testing.T, api *fakeAPI) (*Client, *session.Store) {
	t.Helper()
	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(api.server.URL, store, 1024), store
}

func TestLoginSetsSessionFlag(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newClient(t, api)
	ctx := context.Background()

	user, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	loggedIn, err := store.LoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, loggedIn)

	posts, err := c.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "post-1", posts[0].ID)

	require.NoError(t, c.Logout(ctx))
	loggedIn, err = store.LoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)

	_, err = c.Feed(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSignUpSetsSessionFlag(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newClient(t, api)
	ctx := context.Background()

	_, err := c.SignUp(ctx, "a@b.c", "alice", "secret")
	require.NoError(t, err)
	loggedIn, err := store.LoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, loggedIn)
}

func TestBlankCredentialsSkipNetwork(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newClient(t, api)
	ctx := context.Background()

	_, err := c.Login(ctx, " ", "secret")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = c.SignUp(ctx, "a@b.c", "alice", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, api.calls.Load())

	loggedIn, err := store.LoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)
}

func TestLoginRejectedLeavesFlagUnset(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newClient(t, api)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.c", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	loggedIn, err := store.LoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)
}

// untouchable fails the test if the upload body is read.
type untouchable struct{ t *testing.T }

func (u untouchable) Read([]byte) (int, error) {
	u.t.Error("rejected upload body was read")
	return 0, io.EOF
}

func TestUploadPostValidatesFirst(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newClient(t, api)
	ctx := context.Background()
	_, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	_, err = c.UploadPost(ctx, storage.File{Name: "notes.txt", MIMEType: "text/plain", Size: 2, Body: untouchable{t}}, "t", "")
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
	_, err = c.UploadPost(ctx, storage.File{Name: "big.png", MIMEType: "image/png", Size: 2048, Body: untouchable{t}}, "t", "")
	assert.ErrorIs(t, err, media.ErrFileTooLarge)
	_, err = c.UploadProfileImage(ctx, storage.File{Name: "me.gif", MIMEType: "image/gif", Size: 1, Body: untouchable{t}})
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
	assert.Zero(t, api.uploads.Load())

	created, err := c.UploadPost(ctx, storage.File{Name: "clip.mp4", MIMEType: "video/mp4", Size: 3, Body: strings.NewReader("mp4")}, "holiday", "")
	require.NoError(t, err)
	assert.Equal(t, "holiday", created.Title)
	assert.Equal(t, media.KindVideo, created.MediaType)
	assert.Equal(t, int32(1), api.uploads.Load())

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.chunked, "upload body should be streamed without a content length")
}

func TestUploadProfileImage(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newClient(t, api)
	ctx := context.Background()
	_, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	avatar, err := Crop(pngFile(t, "me.jpg", 8, 8), Circle, 8, media.Transform{})
	require.NoError(t, err)
	p, err := c.UploadProfileImage(ctx, avatar)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/me.png", p.ProfileImageURL)
}

func TestUploadSourceReadError(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newClient(t, api)
	ctx := context.Background()
	_, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	_, err = c.UploadPost(ctx, storage.File{Name: "a.png", MIMEType: "image/png", Size: 4, Body: io.MultiReader(strings.NewReader("ab"), failing{})}, "t", "")
	assert.Error(t, err)
}

type failing struct{}

func (failing) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestToggleLikeOnUsesLikers(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newClient(t, api)
	ctx := context.Background()
	_, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID())

	state, err := c.ToggleLikeOn(ctx, post.Post{ID: "post-1"})
	require.NoError(t, err)
	assert.True(t, state.Liked)

	state, err = c.ToggleLikeOn(ctx, post.Post{ID: "post-1", Likes: []string{"user-1"}})
	require.NoError(t, err)
	assert.False(t, state.Liked)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.UserID())
}

func TestToggleFollow(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newClient(t, api)
	ctx := context.Background()
	_, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	following, err := c.ToggleFollow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, following)

	following, err = c.ToggleFollow(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, following)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.followers)
}

func TestCancelledContextSkipsRequest(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Login(ctx, "a@b.c", "secret")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, api.calls.Load())
}
