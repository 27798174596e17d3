package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// UploadImage handles POST /v1/upload (seller or admin).
// It saves a product image under the upload dir and returns its public URL,
// which is then sent as imageUrl on product create/update.
func (h *Handlers) UploadImage(cfg config.UploadConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get the file from the request
		file, err := c.FormFile("file")
		if err != nil {
			h.respondError(c, apperrors.FieldError("file", "No file uploaded."))
			return
		}
		if file.Size > cfg.MaxSize {
			h.respondError(c, apperrors.FieldError("file", fmt.Sprintf("File is larger than %d bytes.", cfg.MaxSize)))
			return
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !imageExts[ext] {
			h.respondError(c, apperrors.FieldError("file", "Unsupported image type."))
			return
		}

		// 2. Create the upload directory if it doesn't exist
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			h.respondError(c, fmt.Errorf("create upload dir: %w", err))
			return
		}

		// 3. Save under a unique name
		name := uuid.NewString() + ext
		if err := c.SaveUploadedFile(file, filepath.Join(cfg.Dir, name)); err != nil {
			h.respondError(c, fmt.Errorf("save upload: %w", err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"url": strings.TrimRight(cfg.BaseURL, "/") + "/uploads/" + name,
		})
	}
}
