package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/njbartlett/pfnext-backend/internal/repository"
)

type BackupHandler struct {
	backups backupExporter
}

type backupExporter interface {
	Export(ctx context.Context) (map[string]json.RawMessage, error)
}

func NewBackupHandler(backups *repository.BackupRepository) *BackupHandler {
	return &BackupHandler{backups: backups}
}

// Export dumps every table as JSON for offsite backup. Admin only; the
// route group enforces that.
func (h *BackupHandler) Export(c *fiber.Ctx) error {
	export, err := h.backups.Export(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export data"})
	}

	return c.JSON(fiber.Map{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"tables":      export,
	})
}
