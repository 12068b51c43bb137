package comment

import (
	"errors"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/post"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes expects r to be mounted under a path with a :postID param.
func RegisterRoutes(r fiber.Router, svc *Service, ids auth.IdentityResolver, authMiddleware, limit fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		comments, err := svc.List(c.Context(), c.Params("postID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(comments)
	})

	r.Post("/", authMiddleware, limit, func(c *fiber.Ctx) error {
		var req TextRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		author, err := ids.CurrentUser(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		created, err := svc.Add(c.Context(), c.Params("postID"), author, req.Text)
		if err != nil {
			return HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Patch("/:id", authMiddleware, limit, func(c *fiber.Ctx) error {
		var req TextRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		updated, err := svc.Update(c.Context(), c.Params("postID"), c.Params("id"), auth.UserID(c), req.Text)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(updated)
	})

	r.Delete("/:id", authMiddleware, limit, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("postID"), c.Params("id"), auth.UserID(c)); err != nil {
			return HTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrEmptyText):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCommentNotFound), errors.Is(err, post.ErrPostNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAuthor):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
