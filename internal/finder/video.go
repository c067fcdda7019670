package finder

import (
	"context"
	"net/url"
	"strings"

	"github.com/ytget/dit/internal/model"
	"github.com/ytget/dit/internal/platform"
)

// videoHosts are matched exactly or as a parent domain
var videoHosts = []string{"youtube.com", "youtu.be"}

// VideoSource is the yt-dlp surface the video finder needs
type VideoSource interface {
	PlaylistVideoURLs(ctx context.Context, rawURL string) ([]string, error)
	DirectURLs(ctx context.Context, videoURL string) ([]string, error)
}

// Video resolves video pages through yt-dlp
type Video struct {
	source VideoSource
}

// NewVideo creates a video finder backed by source
func NewVideo(source VideoSource) *Video {
	return &Video{source: source}
}

// Name returns the finder name
func (v *Video) Name() string { return "yt-dlp" }

// Match accepts known video hosts
func (v *Video) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, h := range videoHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Resolve returns direct media URLs; playlists expand to all of their videos
func (v *Video) Resolve(ctx context.Context, u *url.URL) ([]model.DownloadTarget, error) {
	pages := []string{u.String()}
	if platform.IsPlaylistURL(u.String()) && u.Query().Get("v") == "" {
		var err error
		pages, err = v.source.PlaylistVideoURLs(ctx, u.String())
		if err != nil {
			return nil, err
		}
	}

	var targets []model.DownloadTarget
	for _, page := range pages {
		urls, err := v.source.DirectURLs(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, direct := range urls {
			targets = append(targets, model.DownloadTarget(direct))
		}
	}
	return targets, nil
}
