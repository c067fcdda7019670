package finder

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/ytget/dit/internal/model"
)

// ImageExtensions are the raster formats the direct finder accepts
var ImageExtensions = []string{".jpg", ".jpeg", ".gif", ".png", ".tiff"}

// DirectImage matches URLs that already point at an image file
type DirectImage struct{}

// Name returns the finder name
func (DirectImage) Name() string { return "direct-image" }

// Match checks the path extension, case-insensitively
func (DirectImage) Match(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	for _, known := range ImageExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// Resolve returns the URL unchanged
func (DirectImage) Resolve(_ context.Context, u *url.URL) ([]model.DownloadTarget, error) {
	return []model.DownloadTarget{model.DownloadTarget(u.String())}, nil
}
