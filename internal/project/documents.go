package project

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/audit"
	"ngo-portal-backend/internal/auth"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/models"
	"ngo-portal-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const EntityDocument = "project_document"

// FilesPrefix is where the server exposes stored document files.
const FilesPrefix = "/api/files"

// GET /api/projects/:id/documents
func ListDocumentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.DB.WithContext(c.UserContext())
		p, err := loadProject(db, c.Params("id"))
		if err != nil {
			return err
		}
		docs := []models.ProjectDocument{}
		if err := db.Where("project_id = ?", p.ID).Order("created_at DESC, id").Find(&docs).Error; err != nil {
			return apperr.Store("loading documents", err)
		}
		return c.JSON(fiber.Map{"documents": docs})
	}
}

// POST /api/projects/:id/documents
// Multipart form: file (required) and name (defaults to the file name).
func UploadDocumentHandler(rec *audit.Recorder, store storage.Store, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return apperr.Invalid("file", "is required")
		}
		name := strings.TrimSpace(c.FormValue("name"))
		if name == "" {
			name = fh.Filename
		}
		if name == "" {
			return apperr.Invalid("name", "is required")
		}
		if len(name) > 255 {
			return apperr.Invalid("name", "is too long")
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		projectID := c.Params("id")
		if err := projectExists(database.DB.WithContext(c.UserContext()), projectID); err != nil {
			if errors.Is(err, apperr.ErrInvalidInput) {
				return apperr.NotFound("project")
			}
			return err
		}

		f, err := fh.Open()
		if err != nil {
			return apperr.Invalid("file", "could not be read")
		}
		defer f.Close()

		key := projectID + "/" + uuid.NewString() + fileExt(fh.Filename)
		if err := store.Put(c.UserContext(), key, f); err != nil {
			return apperr.Store("storing document", err)
		}

		doc := models.ProjectDocument{
			ProjectID:  projectID,
			Name:       name,
			Type:       contentType,
			Key:        key,
			URL:        FilesPrefix + "/" + key,
			Size:       fh.Size,
			UploadedBy: id.UserID,
		}
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			if err := tx.Create(&doc).Error; err != nil {
				return audit.Entry{}, apperr.Store("creating document", err)
			}
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityDocument,
				EntityID:   doc.ID,
				Changes:    audit.CreateChanges(doc),
			}, nil
		})
		if err != nil {
			// The row was not kept, so neither is the file.
			if delErr := store.Delete(context.Background(), key); delErr != nil {
				log.Warn("removing orphaned document file", "key", key, "error", delErr)
			}
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": doc})
	}
}

// DELETE /api/documents/:documentId
// The file is removed after the row; a failure there is only logged.
func DeleteDocumentHandler(rec *audit.Recorder, store storage.Store, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var before models.ProjectDocument
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			err := tx.First(&before, "id = ?", c.Params("documentId")).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return audit.Entry{}, apperr.NotFound("document")
			}
			if err != nil {
				return audit.Entry{}, apperr.Store("loading document", err)
			}
			if err := tx.Delete(&models.ProjectDocument{}, "id = ?", before.ID).Error; err != nil {
				return audit.Entry{}, apperr.Store("deleting document", err)
			}
			return audit.Entry{
				Action:     models.AuditActionDelete,
				EntityType: EntityDocument,
				EntityID:   before.ID,
				Changes:    audit.DeleteChanges(before),
			}, nil
		})
		if err != nil {
			return err
		}

		if err := store.Delete(c.UserContext(), before.Key); err != nil {
			log.Warn("removing document file", "key", before.Key, "error", err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// fileExt keeps a short alphanumeric extension and falls back to .bin.
func fileExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ".bin"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return ext
}
