// Package diagnostics stores screenshots of the screen a booking failed on.
package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw" // For high-quality resizing

	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
)

// Store writes failure screenshots into a directory.
type Store struct {
	dir      string
	maxWidth int
}

// NewStore creates a screenshot store. A non-positive MaxWidth keeps the
// device resolution.
func NewStore(cfg config.DiagnosticsConfig) *Store {
	return &Store{dir: cfg.ScreenshotDir, maxWidth: cfg.MaxWidth}
}

// Dir returns the directory screenshots are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save downscales a PNG screenshot and writes it as
// <runID>-<index>-<date>.png.
func (s *Store) Save(ctx context.Context, runID string, index int, date string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode screenshot: %w", err)
	}
	img = Downscale(img, s.maxWidth)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	path := filepath.Join(s.dir, fileName(runID, index, date))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return path, nil
}

// Downscale resizes img to maxWidth, keeping the aspect ratio. Images that
// already fit are returned unchanged.
func Downscale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxWidth <= 0 || width <= maxWidth {
		return img
	}

	newHeight := int(float64(height) * float64(maxWidth) / float64(width))
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

func fileName(runID string, index int, date string) string {
	clean := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_")
	return fmt.Sprintf("%s-%02d-%s.png", clean.Replace(runID), index, clean.Replace(date))
}
