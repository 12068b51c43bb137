// Package client is the presentation-state layer of the mobile app: a typed
// API client that owns the bearer token and the local session flag, and the
// navigator that picks the screen to show.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/comment"
	"backend-ofmen/internal/feed"
	"backend-ofmen/internal/media"
	"backend-ofmen/internal/post"
	"backend-ofmen/internal/social"
	"backend-ofmen/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 30 * time.Second

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrNotLoggedIn        = errors.New("not logged in")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// SessionFlag persists whether the device is logged in. *session.Store
// implements it.
type SessionFlag interface {
	Set(ctx context.Context, loggedIn bool) error
	LoggedIn(ctx context.Context) (bool, error)
}

type Client struct {
	baseURL        string
	session        SessionFlag
	maxUploadBytes int64

	mu      sync.RWMutex
	userID  string
	access  string
	refresh string
}

func New(baseURL string, session SessionFlag, maxUploadBytes int64) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		session:        session,
		maxUploadBytes: maxUploadBytes,
	}
}

type authResponse struct {
	User   auth.User          `json:"user"`
	Tokens auth.TokenResponse `json:"tokens"`
}

// SignUp creates the account and logs the device in.
func (c *Client) SignUp(ctx context.Context, email, username, password string) (auth.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" || strings.TrimSpace(username) == "" {
		return auth.User{}, ErrMissingCredentials
	}
	var resp authResponse
	body := auth.RegisterRequest{Email: email, Username: username, Password: password}
	if err := c.do(ctx, fiber.Post(c.url("/auth/register")).JSON(body), &resp); err != nil {
		return auth.User{}, err
	}
	return resp.User, c.startSession(ctx, resp.User.ID, resp.Tokens)
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return auth.User{}, ErrMissingCredentials
	}
	var resp authResponse
	body := auth.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, fiber.Post(c.url("/auth/login")).JSON(body), &resp); err != nil {
		return auth.User{}, err
	}
	return resp.User, c.startSession(ctx, resp.User.ID, resp.Tokens)
}

// Logout forgets the tokens and clears the session flag.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.userID, c.access, c.refresh = "", "", ""
	c.mu.Unlock()
	return c.session.Set(ctx, false)
}

func (c *Client) startSession(ctx context.Context, userID string, tokens auth.TokenResponse) error {
	c.mu.Lock()
	c.userID, c.access, c.refresh = userID, tokens.AccessToken, tokens.RefreshToken
	c.mu.Unlock()
	return c.session.Set(ctx, true)
}

// UserID is the signed-in user, empty after Logout.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Refresh trades the refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.RLock()
	refresh := c.refresh
	c.mu.RUnlock()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	var tokens auth.TokenResponse
	if err := c.do(ctx, fiber.Post(c.url("/auth/refresh")).JSON(auth.RefreshRequest{RefreshToken: refresh}), &tokens); err != nil {
		return err
	}
	c.mu.Lock()
	c.access, c.refresh = tokens.AccessToken, tokens.RefreshToken
	c.mu.Unlock()
	return nil
}

func (c *Client) Feed(ctx context.Context) ([]post.Post, error) {
	var posts []post.Post
	return posts, c.authed(ctx, fiber.Get(c.url("/feed/posts")), &posts)
}

func (c *Client) ToggleLike(ctx context.Context, postID string, like bool) (feed.LikeState, error) {
	var state feed.LikeState
	a := fiber.Post(c.url("/feed/posts/" + postID + "/like")).JSON(fiber.Map{"like": like})
	return state, c.authed(ctx, a, &state)
}

// ToggleLikeOn flips the caller's like on p as it was last read.
func (c *Client) ToggleLikeOn(ctx context.Context, p post.Post) (feed.LikeState, error) {
	return c.ToggleLike(ctx, p.ID, !p.LikedBy(c.UserID()))
}

func (c *Client) AddComment(ctx context.Context, postID, text string) (comment.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return comment.Comment{}, comment.ErrEmptyText
	}
	var created comment.Comment
	a := fiber.Post(c.url("/feed/posts/" + postID + "/comments")).JSON(comment.TextRequest{Text: text})
	return created, c.authed(ctx, a, &created)
}

func (c *Client) Comments(ctx context.Context, postID string) ([]comment.Comment, error) {
	var list []comment.Comment
	return list, c.authed(ctx, fiber.Get(c.url("/posts/"+postID+"/comments")), &list)
}

func (c *Client) ToggleSave(ctx context.Context, postID string, save bool) error {
	a := fiber.Put(c.url("/feed/posts/" + postID + "/save")).JSON(fiber.Map{"save": save})
	return c.authed(ctx, a, nil)
}

func (c *Client) Saved(ctx context.Context) ([]post.Post, error) {
	var posts []post.Post
	return posts, c.authed(ctx, fiber.Get(c.url("/feed/saved")), &posts)
}

func (c *Client) Profile(ctx context.Context, userID string) (social.Profile, error) {
	var p social.Profile
	return p, c.authed(ctx, fiber.Get(c.url("/profiles/"+userID)), &p)
}

func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.authed(ctx, fiber.Post(c.url("/profiles/"+userID+"/follow")), nil)
}

func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.authed(ctx, fiber.Delete(c.url("/profiles/"+userID+"/follow")), nil)
}

// ToggleFollow follows userID unless the caller already does, in which case
// it unfollows. It reports whether the caller follows userID afterwards.
func (c *Client) ToggleFollow(ctx context.Context, userID string) (bool, error) {
	p, err := c.Profile(ctx, userID)
	if err != nil {
		return false, err
	}
	if p.FollowedBy(c.UserID()) {
		return false, c.Unfollow(ctx, userID)
	}
	return true, c.Follow(ctx, userID)
}

func (c *Client) YourPosts(ctx context.Context) ([]post.Post, error) {
	var posts []post.Post
	return posts, c.authed(ctx, fiber.Get(c.url("/posts/mine")), &posts)
}

// UploadPost validates f locally, then uploads it and creates the post in
// one request. A rejected file never reaches the network and its body is
// never read.
func (c *Client) UploadPost(ctx context.Context, f storage.File, title, description string) (post.Post, error) {
	var created post.Post
	fields := map[string]string{"title": title, "description": description}
	return created, c.upload(ctx, "/posts/upload", fields, f, &created)
}

// UploadProfileImage replaces the caller's profile picture with f.
func (c *Client) UploadProfileImage(ctx context.Context, f storage.File) (social.Profile, error) {
	var p social.Profile
	return p, c.upload(ctx, "/profiles/me/image", nil, f, &p)
}

// upload streams a multipart form with fields and f as the "file" part. The
// body is written through a pipe while it is sent.
func (c *Client) upload(ctx context.Context, path string, fields map[string]string, f storage.File, out any) error {
	if err := media.Validate(f.MIMEType, f.Size, c.maxUploadBytes); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, fields, f))
	}()

	a := fiber.Post(c.url(path)).ContentType(form.FormDataContentType())
	a.Request().SetBodyStream(pr, -1)
	return c.authed(ctx, a, out)
}

func writeForm(form *multipart.Writer, fields map[string]string, f storage.File) error {
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return err
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	header.Set("Content-Type", f.MIMEType)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return err
	}
	return form.Close()
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

func (c *Client) authed(ctx context.Context, a *fiber.Agent, out any) error {
	c.mu.RLock()
	token := c.access
	c.mu.RUnlock()
	if token == "" {
		fiber.ReleaseAgent(a)
		return ErrNotLoggedIn
	}
	a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return c.do(ctx, a, out)
}

// do sends the request and decodes a 2xx JSON body into out. The agent is
// released in every path.
func (c *Client) do(ctx context.Context, a *fiber.Agent, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	a.Timeout(timeout)

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < 200 || code >= 300 {
		return &APIError{StatusCode: code, Message: strings.TrimSpace(string(body))}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
