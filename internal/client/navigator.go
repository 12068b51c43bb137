package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type RouteName string

const (
	RouteSplash      RouteName = "splash"
	RouteJoin        RouteName = "join"
	RouteLogin       RouteName = "login"
	RouteSignUp      RouteName = "signup"
	RouteHome        RouteName = "home"
	RouteCommunity   RouteName = "community"
	RouteNewPost     RouteName = "post"
	RouteProfile     RouteName = "profile"
	RouteUserProfile RouteName = "user_profile"
	RouteSaved       RouteName = "saved"
	RouteYourPosts   RouteName = "your_posts"
	RouteDetails     RouteName = "details"
)

var ErrUnknownRoute = errors.New("unknown route")

// Route is one screen plus the parameter it needs. Only user_profile carries
// UserID and only details carries PostID.
type Route struct {
	Name   RouteName
	UserID string
	PostID string
}

func Screen(name RouteName) Route { return Route{Name: name} }

func UserProfile(userID string) Route { return Route{Name: RouteUserProfile, UserID: userID} }

func Details(postID string) Route { return Route{Name: RouteDetails, PostID: postID} }

// Validate reports whether r names a known screen with its parameter set.
func (r Route) Validate() error {
	switch r.Name {
	case RouteSplash, RouteJoin, RouteLogin, RouteSignUp, RouteHome, RouteCommunity,
		RouteNewPost, RouteProfile, RouteSaved, RouteYourPosts:
		if r.UserID != "" || r.PostID != "" {
			return fmt.Errorf("route %s takes no parameters", r.Name)
		}
	case RouteUserProfile:
		if r.UserID == "" {
			return fmt.Errorf("route %s requires a user id", r.Name)
		}
	case RouteDetails:
		if r.PostID == "" {
			return fmt.Errorf("route %s requires a post id", r.Name)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRoute, r.Name)
	}
	return nil
}

// Path renders r as "name" or "name/param".
func (r Route) Path() string {
	switch r.Name {
	case RouteUserProfile:
		return string(r.Name) + "/" + r.UserID
	case RouteDetails:
		return string(r.Name) + "/" + r.PostID
	}
	return string(r.Name)
}

// ParseRoute is the inverse of Path.
func ParseRoute(path string) (Route, error) {
	name, param, _ := strings.Cut(strings.Trim(path, "/"), "/")
	r := Route{Name: RouteName(name)}
	switch r.Name {
	case RouteUserProfile:
		r.UserID = param
	case RouteDetails:
		r.PostID = param
	default:
		if param != "" {
			return Route{}, fmt.Errorf("route %s takes no parameters", name)
		}
	}
	return r, r.Validate()
}

// Navigator owns the back stack. Each app instance holds its own.
type Navigator struct {
	session SessionFlag

	mu    sync.Mutex
	stack []Route
}

func NewNavigator(session SessionFlag) *Navigator {
	return &Navigator{session: session, stack: []Route{Screen(RouteSplash)}}
}

// Initial leaves the splash screen: home when the session flag is set,
// join otherwise. The back stack is reset to that one screen.
func (n *Navigator) Initial(ctx context.Context) (Route, error) {
	loggedIn, err := n.session.LoggedIn(ctx)
	if err != nil {
		return Route{}, err
	}
	r := Screen(RouteJoin)
	if loggedIn {
		r = Screen(RouteHome)
	}
	n.Reset(r)
	return r, nil
}

func (n *Navigator) Navigate(r Route) error {
	if err := r.Validate(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stack = append(n.stack, r)
	return nil
}

// Reset replaces the whole back stack with r, as after login or logout.
func (n *Navigator) Reset(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stack = []Route{r}
}

// Back pops the current screen. The root screen is never popped.
func (n *Navigator) Back() (Route, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.stack) <= 1 {
		return n.stack[0], false
	}
	n.stack = n.stack[:len(n.stack)-1]
	return n.stack[len(n.stack)-1], true
}

func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stack[len(n.stack)-1]
}
