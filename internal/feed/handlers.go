package feed

import (
	"errors"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/comment"
	"backend-ofmen/internal/post"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, ids auth.IdentityResolver, authMiddleware, limit fiber.Handler) {
	r.Get("/posts", authMiddleware, func(c *fiber.Ctx) error {
		posts, err := svc.ListRanked(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(posts)
	})

	r.Post("/posts/:id/like", authMiddleware, limit, func(c *fiber.Ctx) error {
		var body struct {
			Like *bool `json:"like"`
		}
		if err := c.BodyParser(&body); err != nil || body.Like == nil {
			return fiber.NewError(fiber.StatusBadRequest, "like required")
		}
		state, err := svc.ToggleLike(c.Context(), c.Params("id"), auth.UserID(c), *body.Like)
		if err != nil {
			if errors.Is(err, post.ErrPostNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(state)
	})

	r.Post("/posts/:id/comments", authMiddleware, limit, func(c *fiber.Ctx) error {
		var req comment.TextRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		author, err := ids.CurrentUser(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		created, err := svc.AddComment(c.Context(), c.Params("id"), author, req.Text)
		if err != nil {
			return comment.HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Put("/posts/:id/save", authMiddleware, limit, func(c *fiber.Ctx) error {
		var body struct {
			Save *bool `json:"save"`
		}
		if err := c.BodyParser(&body); err != nil || body.Save == nil {
			return fiber.NewError(fiber.StatusBadRequest, "save required")
		}
		if err := svc.ToggleSave(c.Context(), c.Params("id"), auth.UserID(c), *body.Save); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/saved", authMiddleware, func(c *fiber.Ctx) error {
		posts, err := svc.ListSaved(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(posts)
	})
}
