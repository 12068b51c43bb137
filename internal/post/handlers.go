package post

import (
	"errors"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/storage"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, ids auth.IdentityResolver, authMiddleware, limit fiber.Handler) {
	r.Post("/media", authMiddleware, limit, func(c *fiber.Ctx) error {
		file, closeFile, err := storage.FileFromForm(c, "file")
		if err != nil {
			return err
		}
		defer closeFile()

		obj, err := svc.storage.Store(c.UserContext(), auth.UserID(c), file)
		if err != nil {
			return storage.HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})

	r.Post("/", authMiddleware, limit, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		author, err := ids.CurrentUser(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		p, err := svc.Create(c.Context(), author, req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Post("/upload", authMiddleware, limit, func(c *fiber.Ctx) error {
		file, closeFile, err := storage.FileFromForm(c, "file")
		if err != nil {
			return err
		}
		defer closeFile()

		author, err := ids.CurrentUser(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		p, err := svc.UploadAndCreate(c.UserContext(), author, file, c.FormValue("title"), c.FormValue("description"))
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		posts, err := svc.ListByUser(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(posts)
	})

	r.Get("/users/:id", authMiddleware, func(c *fiber.Ctx) error {
		posts, err := svc.ListByUser(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(posts)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		p, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})

	r.Patch("/:id", authMiddleware, limit, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		p, err := svc.Update(c.Context(), c.Params("id"), auth.UserID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})

	r.Delete("/:id", authMiddleware, limit, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrMissingMedia), errors.Is(err, ErrInvalidMediaType):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPostNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAuthor):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return storage.HTTPError(err)
	}
}
