package stream

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ObserveFunc opens a live view of the document identified by id.
type ObserveFunc[T any] func(ctx context.Context, id string) (<-chan T, func())

// Handler serves a websocket that writes every snapshot from observe as JSON
// until the peer disconnects.
func Handler[T any](observe ObserveFunc[T]) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates, release := observe(ctx, c.Params("id"))
		defer release()

		go func() {
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for snapshot := range updates {
			if err := c.WriteJSON(snapshot); err != nil {
				return
			}
		}
	})
}

// upgradeRequired rejects plain HTTP requests on websocket routes.
func upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func RegisterRoutes(r fiber.Router, profiles, comments fiber.Handler) {
	r.Use(upgradeRequired)
	r.Get("/profiles/:id", profiles)
	r.Get("/posts/:id/comments", comments)
}
