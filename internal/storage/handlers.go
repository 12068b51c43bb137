package storage

import (
	"errors"

	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/media"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, limit fiber.Handler) {
	r.Post("/upload", authMiddleware, limit, func(c *fiber.Ctx) error {
		file, closeFile, err := FileFromForm(c, "file")
		if err != nil {
			return err
		}
		defer closeFile()

		obj, err := svc.Store(c.UserContext(), auth.UserID(c), file)
		if err != nil {
			return HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})

	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		objects, err := svc.ListObjects(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(objects)
	})
}

// FileFromForm opens the multipart file part named field. The returned
// func closes it.
func FileFromForm(c *fiber.Ctx, field string) (File, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return File{}, nil, fiber.NewError(fiber.StatusBadRequest, field+" part required")
	}
	f, err := header.Open()
	if err != nil {
		return File{}, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	file := File{
		Name:     header.Filename,
		MIMEType: media.DetectType(header.Filename, header.Header.Get("Content-Type")),
		Size:     header.Size,
		Body:     f,
	}
	return file, func() { _ = f.Close() }, nil
}

// HTTPError maps upload failures onto response statuses.
func HTTPError(err error) error {
	var uploadErr *media.UploadError
	switch {
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrEmptyFile), errors.Is(err, media.ErrFileTooLarge):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &uploadErr), errors.Is(err, media.ErrNoURL):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
