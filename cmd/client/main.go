// Package main is the device-side command line for OFMEN. It drives the API
// through internal/client and keeps the logged-in flag in the local session
// database, so "start" picks the same first screen the app would.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"backend-ofmen/internal/client"
	"backend-ofmen/internal/config"
	"backend-ofmen/internal/logging"
	"backend-ofmen/internal/media"
	"backend-ofmen/internal/session"
	"backend-ofmen/internal/shared/timeago"
	"backend-ofmen/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	postCropSize   = 1080
	avatarCropSize = 512
)

var now = time.Now

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd(config.Load()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is what every subcommand works with. It lives for one invocation.
type app struct {
	out io.Writer
	log *logrus.Logger
	api *client.Client
	nav *client.Navigator

	email    string
	password string
}

func rootCmd(cfg config.Config) *cobra.Command {
	var (
		apiURL      string
		sessionPath string
		email       string
		password    string
	)

	cmd := &cobra.Command{
		Use:   "ofmen",
		Short: "Use the OFMEN feed from the command line",
		Long: `Use the OFMEN feed from the command line.

Commands that talk to the API log in first with --email and --password.
The logged-in flag is kept in the session database between runs.

Examples:
  ofmen start
  ofmen --email a@b.c --password secret feed
  ofmen --email a@b.c --password secret post beach.jpg --title Sunrise --crop
`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&apiURL, "api", cfg.APIBaseURL, "API base URL")
	cmd.PersistentFlags().StringVar(&sessionPath, "session", cfg.SessionDBPath, "Session database path")
	cmd.PersistentFlags().StringVar(&email, "email", "", "Account email")
	cmd.PersistentFlags().StringVar(&password, "password", "", "Account password")

	// with opens the session store for the duration of one subcommand.
	with := func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			store, err := session.Open(sessionPath)
			if err != nil {
				return err
			}
			defer store.Close()

			a := &app{
				out:      c.OutOrStdout(),
				log:      logging.NewWithOutput(cfg.LogLevel, c.ErrOrStderr()),
				api:      client.New(apiURL, store, cfg.MaxUploadBytes),
				nav:      client.NewNavigator(store),
				email:    email,
				password: password,
			}
			return fn(c.Context(), a, args)
		}
	}

	cmd.AddCommand(
		startCmd(with),
		signUpCmd(with),
		loginCmd(with),
		logoutCmd(with),
		feedCmd(with),
		likeCmd(with),
		followCmd(with),
		postCmd(with),
		avatarCmd(with),
	)
	return cmd
}

type runner func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error

func startCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Print the first screen for this device",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, a *app, _ []string) error {
			if _, err := a.nav.Initial(ctx); err != nil {
				return err
			}
			return a.print()
		}),
	}
}

func signUpCmd(with runner) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log this device in",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, a *app, _ []string) error {
			user, err := a.api.SignUp(ctx, a.email, username, a.password)
			if err != nil {
				return err
			}
			a.log.WithField("user_id", user.ID).Info("signed up")
			return a.reset(client.Screen(client.RouteHome))
		}),
	}
	cmd.Flags().StringVar(&username, "username", "", "Display name")
	return cmd
}

func loginCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log this device in",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, a *app, _ []string) error {
			if err := a.login(ctx); err != nil {
				return err
			}
			return a.reset(client.Screen(client.RouteHome))
		}),
	}
}

func logoutCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the logged-in flag on this device",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, a *app, _ []string) error {
			if err := a.api.Logout(ctx); err != nil {
				return err
			}
			return a.reset(client.Screen(client.RouteJoin))
		}),
	}
}

func feedCmd(with runner) *cobra.Command {
	var saved bool
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, a *app, _ []string) error {
			if err := a.login(ctx); err != nil {
				return err
			}
			list := a.api.Feed
			if saved {
				list = a.api.Saved
			}
			posts, err := list(ctx)
			if err != nil {
				return err
			}
			for _, p := range posts {
				mark := " "
				if p.LikedBy(a.api.UserID()) {
					mark = "♥"
				}
				fmt.Fprintf(a.out, "%s %s  %s by %s  %d likes  %d comments  %s\n",
					mark, p.ID, p.Title, p.Username, p.LikesCount, p.CommentsCount, timeago.Format(p.CreatedAt, now()))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&saved, "saved", false, "List saved posts instead")
	return cmd
}

func likeCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like a post, or unlike it if already liked",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, a *app, args []string) error {
			if err := a.login(ctx); err != nil {
				return err
			}
			posts, err := a.api.Feed(ctx)
			if err != nil {
				return err
			}
			for _, p := range posts {
				if p.ID != args[0] {
					continue
				}
				state, err := a.api.ToggleLikeOn(ctx, p)
				if err != nil {
					return err
				}
				verb := "unliked"
				if state.Liked {
					verb = "liked"
				}
				fmt.Fprintf(a.out, "%s %s (%d likes)\n", verb, p.ID, state.LikesCount)
				return a.show(client.Details(p.ID))
			}
			return fmt.Errorf("post %s is not in the feed", args[0])
		}),
	}
}

func followCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Follow a user, or unfollow if already following",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, a *app, args []string) error {
			if err := a.login(ctx); err != nil {
				return err
			}
			following, err := a.api.ToggleFollow(ctx, args[0])
			if err != nil {
				return err
			}
			verb := "unfollowed"
			if following {
				verb = "following"
			}
			fmt.Fprintf(a.out, "%s %s\n", verb, args[0])
			return a.show(client.UserProfile(args[0]))
		}),
	}
}

func postCmd(with runner) *cobra.Command {
	var (
		title       string
		description string
		crop        bool
		t           media.Transform
	)
	cmd := &cobra.Command{
		Use:   "post <file>",
		Short: "Upload a photo or video as a new post",
		Long:  "Upload a photo or video as a new post. Accepted types: " + strings.Join(media.AllowedTypes(), ", ") + ".",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, a *app, args []string) error {
			f, closeFile, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer closeFile()
			if crop {
				if f, err = client.Crop(f, client.Square, postCropSize, t); err != nil {
					return err
				}
			}
			if err := a.login(ctx); err != nil {
				return err
			}
			created, err := a.api.UploadPost(ctx, f, title, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "posted %s (%s)\n", created.ID, created.MediaType)
			return a.show(client.Details(created.ID))
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "Post title")
	cmd.Flags().StringVar(&description, "description", "", "Post description")
	cmd.Flags().BoolVar(&crop, "crop", false, "Crop images to a square before upload")
	transformFlags(cmd, &t)
	return cmd
}

func avatarCmd(with runner) *cobra.Command {
	var t media.Transform
	cmd := &cobra.Command{
		Use:   "avatar <file>",
		Short: "Crop an image to a circle and set it as your profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, a *app, args []string) error {
			f, closeFile, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer closeFile()
			if f, err = client.Crop(f, client.Circle, avatarCropSize, t); err != nil {
				return err
			}
			if err := a.login(ctx); err != nil {
				return err
			}
			p, err := a.api.UploadProfileImage(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "profile image %s\n", p.ProfileImageURL)
			return a.show(client.Screen(client.RouteProfile))
		}),
	}
	transformFlags(cmd, &t)
	return cmd
}

func transformFlags(cmd *cobra.Command, t *media.Transform) {
	cmd.Flags().Float64Var(&t.Scale, "scale", 1, "Zoom over the fitted image")
	cmd.Flags().Float64Var(&t.OffsetX, "offset-x", 0, "Horizontal pan in crop pixels")
	cmd.Flags().Float64Var(&t.OffsetY, "offset-y", 0, "Vertical pan in crop pixels")
}

func (a *app) login(ctx context.Context) error {
	_, err := a.api.Login(ctx, a.email, a.password)
	return err
}

// show pushes r onto the back stack and prints it.
func (a *app) show(r client.Route) error {
	if err := a.nav.Navigate(r); err != nil {
		return err
	}
	return a.print()
}

// reset makes r the only screen on the back stack, as after login or logout.
func (a *app) reset(r client.Route) error {
	a.nav.Reset(r)
	return a.print()
}

func (a *app) print() error {
	r := a.nav.Current()
	a.log.WithField("route", r.Path()).Debug("screen")
	_, err := fmt.Fprintln(a.out, "screen:", r.Path())
	return err
}

func openFile(path string) (storage.File, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return storage.File{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return storage.File{}, nil, err
	}
	return storage.File{
		Name:     filepath.Base(path),
		MIMEType: media.DetectType(path, ""),
		Size:     info.Size(),
		Body:     f,
	}, f.Close, nil
}
