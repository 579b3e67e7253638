package gateway

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultUploadLimit = 5 << 20

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func (g *Gateway) uploadLimit() int64 {
	if g.config.Uploads.MaxBytes > 0 {
		return g.config.Uploads.MaxBytes
	}
	return defaultUploadLimit
}

func extOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// saveImage stores the "image" form file under <uploads dir>/<folder>
// with a random name and returns its public URL. The type is sniffed from
// the content, not taken from the filename.
func (g *Gateway) saveImage(c *gin.Context, folder string) (string, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		badRequest(c, fmt.Errorf("image is required: %w", err))
		return "", false
	}
	if header.Size > g.uploadLimit() {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("image exceeds %d MB", g.uploadLimit()>>20),
		})
		return "", false
	}

	f, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return "", false
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	f.Close()
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		badRequest(c, err)
		return "", false
	}
	ext, ok := imageTypes[http.DetectContentType(head[:n])]
	if !ok {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only jpg, png and webp images are accepted"})
		return "", false
	}

	dir := filepath.Join(g.config.Uploads.Dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		g.respondError(c, fmt.Errorf("failed to create upload dir: %w", err))
		return "", false
	}
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(header, filepath.Join(dir, name)); err != nil {
		g.respondError(c, fmt.Errorf("failed to save upload: %w", err))
		return "", false
	}
	g.logger.Info("Image uploaded",
		zap.String("folder", folder),
		zap.String("name", name),
		zap.Int64("size", header.Size))
	return path.Join(g.config.Uploads.PublicPath, folder, name), true
}
