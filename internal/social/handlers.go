package social

import (
	"context"
	"errors"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/post"
	"backend-ofmen/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// PostLister lists a user's posts for the profile page.
type PostLister interface {
	ListByUser(ctx context.Context, userID string) ([]post.Post, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, posts PostLister, authMiddleware, limit fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		p, err := svc.GetProfile(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(p)
	})

	r.Put("/me", authMiddleware, limit, func(c *fiber.Ctx) error {
		var req UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		p, err := svc.UpdateProfile(c.Context(), auth.UserID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})

	r.Post("/me/image", authMiddleware, limit, func(c *fiber.Ctx) error {
		file, closeFile, err := storage.FileFromForm(c, "file")
		if err != nil {
			return err
		}
		defer closeFile()

		p, err := svc.UploadProfileImage(c.UserContext(), auth.UserID(c), file)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		p, err := svc.GetProfile(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(p)
	})

	r.Get("/:id/posts", authMiddleware, func(c *fiber.Ctx) error {
		list, err := posts.ListByUser(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	r.Post("/:id/follow", authMiddleware, limit, func(c *fiber.Ctx) error {
		if err := svc.Follow(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/:id/follow", authMiddleware, limit, func(c *fiber.Ctx) error {
		if err := svc.Unfollow(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSelfFollow):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProfileNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return storage.HTTPError(err)
	}
}
