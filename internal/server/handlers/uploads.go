package handlers

import (
	"crypto/subtle"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/extractor"
	"github.com/entropyconquers/expo-update-server-x/internal/uploads"
)

// Upload handles POST /upload: ingests the archive field "uri",
// stores it in Blob, runs the Archive Extractor, and inserts the
// upload row in the "ready" state, per spec.md §4.9.
func (h *Handlers) Upload(c *fiber.Ctx) error {
	project := c.Get("project")
	version := c.Get("version")
	channel := c.Get("release-channel")
	if project == "" || version == "" || channel == "" {
		return fiber.NewError(fiber.StatusBadRequest, "project, version, and release-channel headers are required")
	}
	if h.UploadSecretKey != "" {
		provided := c.Get("upload-key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.UploadSecretKey)) != 1 {
			return apperr.New(apperr.BadRequest, "upload-key header is missing or incorrect")
		}
	}

	fileHeader, err := c.FormFile("uri")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field \"uri\" is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to open uploaded archive", err)
	}
	defer f.Close()
	archive, err := io.ReadAll(f)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to read uploaded archive", err)
	}

	uploadID := uuid.NewString()
	ctx := c.Context()

	if err := extractor.StoreArchive(ctx, h.Blobs, uploadID, fileHeader.Filename, archive); err != nil {
		return err
	}
	result, err := extractor.Extract(ctx, h.Blobs, archive)
	if err != nil {
		return err
	}

	var gitBranch, gitCommit *string
	if v := c.Get("git-branch"); v != "" {
		gitBranch = &v
	}
	if v := c.Get("git-commit"); v != "" {
		gitCommit = &v
	}

	upload, err := h.Uploads.Create(ctx, uploads.CreateInput{
		ID:                       uploadID,
		Project:                  project,
		Version:                  version,
		ReleaseChannel:           channel,
		Path:                     "uploads/" + uploadID + "/" + fileHeader.Filename,
		UpdateID:                 result.UpdateID,
		AppDescriptorJSON:        result.AppDescriptorJSON,
		DependencyDescriptorJSON: result.DependencyDescriptorJSON,
		AssetMetadataJSON:        result.AssetMetadataJSON,
		OriginalFilename:         fileHeader.Filename,
		GitBranch:                gitBranch,
		GitCommit:                gitCommit,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"uploadId": upload.ID, "updateId": upload.UpdateID})
}

// ListUploads handles GET /uploads.
func (h *Handlers) ListUploads(c *fiber.Ctx) error {
	ups, err := h.Uploads.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(ups)
}

// ReleaseLegacy handles PUT /release/{uploadId}, the unnamespaced
// legacy route, and answers with a plain-text body per spec.md §6.
func (h *Handlers) ReleaseLegacy(c *fiber.Ctx) error {
	result, err := h.Uploads.Release(c.Context(), nil, c.Params("uploadId"))
	if err != nil {
		return err
	}
	return c.SendString("released " + result.Upload.ID)
}

// Release handles PUT /apps/{slug}/release/{uploadId}, the namespaced
// route, and answers with the JSON release result.
func (h *Handlers) Release(c *fiber.Ctx) error {
	slug := c.Params("slug")
	result, err := h.Uploads.Release(c.Context(), &slug, c.Params("uploadId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"upload": result.Upload,
		"cleanup": fiber.Map{
			"deletedCount": result.Cleanup.DeletedCount,
			"freedSpace":   result.Cleanup.FreedSpace,
		},
	})
}
