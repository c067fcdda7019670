package finder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ytget/dit/internal/model"
	"github.com/ytget/dit/internal/platform"
)

// Imgur URL conventions
const (
	ImgurHost            = "imgur.com"
	ImgurDirectTemplate  = "https://i.imgur.com/%s.jpg"
	ImgurAlbumContainer  = "#image-container"
	imgurAlbumPagePrefix = "imgur-album-*.html"
)

var imgurIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Imgur resolves imgur photo and album pages. Photos are rewritten to the
// direct-content host; the ".jpg" suffix is arbitrary since imgur serves the
// real format with the matching content type. Albums are scraped.
type Imgur struct {
	client  *http.Client
	tempDir string
	// DirectTemplate formats an image ID into a direct URL
	DirectTemplate string
}

// NewImgur creates an imgur finder. tempDir may be empty for the OS default.
func NewImgur(client *http.Client, tempDir string) *Imgur {
	if client == nil {
		client = http.DefaultClient
	}
	return &Imgur{client: client, tempDir: tempDir, DirectTemplate: ImgurDirectTemplate}
}

// Name returns the finder name
func (i *Imgur) Name() string { return "imgur" }

// Match accepts imgur.com and its subdomains
func (i *Imgur) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == ImgurHost || strings.HasSuffix(host, "."+ImgurHost)
}

// Resolve turns a photo page into one direct URL and an album into one per image
func (i *Imgur) Resolve(ctx context.Context, u *url.URL) ([]model.DownloadTarget, error) {
	segments := splitPath(u.Path)
	if len(segments) == 0 {
		return nil, nil
	}

	if isAlbumPath(segments) {
		if len(segments) < 2 || segments[1] == "" {
			return nil, nil
		}
		return i.resolveAlbum(ctx, u)
	}

	id := strings.TrimSuffix(segments[0], path.Ext(segments[0]))
	if !imgurIDPattern.MatchString(id) {
		return nil, nil
	}
	return []model.DownloadTarget{i.direct(id)}, nil
}

func (i *Imgur) direct(id string) model.DownloadTarget {
	return model.DownloadTarget(fmt.Sprintf(i.DirectTemplate, id))
}

// resolveAlbum downloads the album markup to a temp file, then parses it
func (i *Imgur) resolveAlbum(ctx context.Context, u *url.URL) ([]model.DownloadTarget, error) {
	var ids []string
	err := platform.WithTempFile(i.tempDir, imgurAlbumPagePrefix, func(f *os.File) error {
		if err := i.fetchTo(ctx, u.String(), f); err != nil {
			return err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind album page: %w", err)
		}
		var err error
		ids, err = ExtractAlbumIDs(f)
		return err
	})
	if err != nil {
		return nil, err
	}

	targets := make([]model.DownloadTarget, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, i.direct(id))
	}
	return targets, nil
}

func (i *Imgur) fetchTo(ctx context.Context, pageURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("build album request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch album page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch album page: status %d", resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("store album page: %w", err)
	}
	return nil
}

// ExtractAlbumIDs returns every image ID embedded in the album container, in
// document order, without duplicates.
func ExtractAlbumIDs(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse album page: %w", err)
	}

	container := doc.Find(ImgurAlbumContainer)
	if container.Length() == 0 {
		return nil, fmt.Errorf("album page has no %s element", ImgurAlbumContainer)
	}

	seen := make(map[string]bool)
	var ids []string
	container.Find("[data-id], .post-image-container[id], .image[id]").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-id")
		if !ok {
			id, _ = s.Attr("id")
		}
		id = strings.TrimSpace(id)
		if !imgurIDPattern.MatchString(id) || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	return ids, nil
}

func isAlbumPath(segments []string) bool {
	return segments[0] == "a" || segments[0] == "gallery"
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
