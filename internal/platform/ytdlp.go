package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultYTDLPTimeout = 60 * time.Second
)

// Executable and URL constants
const (
	YTDLPCommand            = "yt-dlp"
	PlaylistParam           = "list="
	ParamSeparator          = "&"
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// PlaylistEntry is one video of a playlist
type PlaylistEntry struct {
	VideoID string
	Title   string
}

// YTDLPService bridges the yt-dlp binary and the ytdlp library
type YTDLPService struct {
	binary  string
	timeout time.Duration

	// replaced in tests
	getURL       func(ctx context.Context, binary, videoURL string) (string, error)
	listPlaylist func(ctx context.Context, playlistID string) ([]PlaylistEntry, error)
}

// NewYTDLPService creates a service that runs binary (yt-dlp when empty)
func NewYTDLPService(binary string) *YTDLPService {
	if binary == "" {
		binary = YTDLPCommand
	}
	return &YTDLPService{
		binary:       binary,
		timeout:      DefaultYTDLPTimeout,
		getURL:       runGetURL,
		listPlaylist: listPlaylistItems,
	}
}

// Available reports whether the yt-dlp binary can be found
func (y *YTDLPService) Available() bool {
	_, err := exec.LookPath(y.binary)
	return err == nil
}

// PlaylistVideoURLs expands a playlist URL into watch URLs of its videos
func (y *YTDLPService) PlaylistVideoURLs(ctx context.Context, rawURL string) ([]string, error) {
	playlistID := ExtractPlaylistID(rawURL)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist ID from URL: %s", rawURL)
	}

	ctx, cancel := y.withTimeout(ctx)
	defer cancel()

	items, err := y.listPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	urls := make([]string, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		urls = append(urls, fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID))
	}
	return urls, nil
}

// DirectURLs asks yt-dlp for the direct media URL(s) of a video page
func (y *YTDLPService) DirectURLs(ctx context.Context, videoURL string) ([]string, error) {
	ctx, cancel := y.withTimeout(ctx)
	defer cancel()

	out, err := y.getURL(ctx, y.binary, videoURL)
	if err != nil {
		return nil, fmt.Errorf("%s --get-url failed: %w", y.binary, err)
	}

	var urls []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

func (y *YTDLPService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if y.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, y.timeout)
}

// IsPlaylistURL checks if the URL carries a playlist parameter
func IsPlaylistURL(url string) bool {
	return strings.Contains(url, PlaylistParam)
}

// ExtractPlaylistID extracts the playlist ID from various URL formats
func ExtractPlaylistID(url string) string {
	if !strings.Contains(url, PlaylistParam) {
		return ""
	}
	parts := strings.SplitN(url, PlaylistParam, 2)
	playlistPart := parts[1]
	if strings.Contains(playlistPart, ParamSeparator) {
		playlistPart = strings.Split(playlistPart, ParamSeparator)[0]
	}
	return playlistPart
}

// runGetURL runs yt-dlp in simulate mode and returns the printed media URLs
func runGetURL(ctx context.Context, binary, videoURL string) (string, error) {
	res, err := goytdlp.New().
		SetExecutable(binary).
		NoWarnings().
		GetURL().
		Run(ctx, videoURL)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func listPlaylistItems(ctx context.Context, playlistID string) ([]PlaylistEntry, error) {
	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, PlaylistEntry{VideoID: it.VideoID, Title: it.Title})
	}
	return entries, nil
}
