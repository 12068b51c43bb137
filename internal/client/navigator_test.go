package client

import (
	"context"
	"path/filepath"
	"testing"

	"backend-ofmen/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialRouteFollowsSessionFlag(t *testing.T) {
	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	nav := NewNavigator(store)
	assert.Equal(t, RouteSplash, nav.Current().Name)

	r, err := nav.Initial(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteJoin, r.Name)

	require.NoError(t, store.Set(ctx, true))
	r, err = NewNavigator(store).Initial(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteHome, r.Name)
}

func TestNavigateAndBack(t *testing.T) {
	nav := NewNavigator(nil)
	nav.Reset(Screen(RouteHome))

	require.NoError(t, nav.Navigate(Details("post-1")))
	require.NoError(t, nav.Navigate(UserProfile("user-2")))
	assert.Equal(t, "user_profile/user-2", nav.Current().Path())

	r, ok := nav.Back()
	assert.True(t, ok)
	assert.Equal(t, "post-1", r.PostID)

	r, ok = nav.Back()
	assert.True(t, ok)
	assert.Equal(t, RouteHome, r.Name)

	_, ok = nav.Back()
	assert.False(t, ok)
}

func TestNavigateRejectsBadRoutes(t *testing.T) {
	nav := NewNavigator(nil)
	assert.Error(t, nav.Navigate(Route{Name: RouteDetails}))
	assert.Error(t, nav.Navigate(Route{Name: RouteHome, UserID: "x"}))
	assert.ErrorIs(t, nav.Navigate(Screen("tasks")), ErrUnknownRoute)
	assert.Equal(t, RouteSplash, nav.Current().Name)
}

func TestParseRoute(t *testing.T) {
	for _, r := range []Route{Screen(RouteSaved), Screen(RouteYourPosts), UserProfile("u1"), Details("p1")} {
		parsed, err := ParseRoute(r.Path())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseRoute("home/extra")
	assert.Error(t, err)
	_, err = ParseRoute("user_profile")
	assert.Error(t, err)
}
