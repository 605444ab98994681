package httpgin

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxExtLen = 8

var errUploadsDisabled = errors.New("uploads are disabled")

// saveUpload stores fh under dir with a random name and returns its public
// path below /uploads.
func saveUpload(c *gin.Context, fh *multipart.FileHeader, dir string) (string, error) {
	const op = "httpgin.saveUpload"

	if dir == "" {
		return "", fmt.Errorf("%s: %w", op, errUploadsDisabled)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(fh.Filename)))
	if len(ext) > maxExtLen || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	name := uuid.NewString() + ext

	if err := c.SaveUploadedFile(fh, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return "/uploads/" + name, nil
}
