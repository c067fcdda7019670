package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ytget/dit/internal/platform"
)

// sniffLen is how many leading body bytes are inspected when the declared
// content type is missing or unknown
const sniffLen = 3072

// DefaultExtension is used when nothing else identifies the payload
const DefaultExtension = ".bin"

// FetchError reports a failed target fetch or store
type FetchError struct {
	URL    string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// fetch streams target into dir/<base>.<ext> and returns the stored path.
// The file is removed again if anything fails after it was created.
func (d *Downloader) fetch(ctx context.Context, target, base string) (_ string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, sniffLen))
		return "", &FetchError{URL: target, Status: resp.StatusCode}
	}

	body := bufio.NewReaderSize(resp.Body, sniffLen)
	head, _ := body.Peek(sniffLen)
	dest := filepath.Join(d.dir, base+Extension(resp.Header.Get("Content-Type"), head, target))

	f, err := os.Create(dest)
	if err != nil {
		return "", &FetchError{URL: target, Status: resp.StatusCode, Err: err}
	}
	defer func() {
		if err != nil {
			_ = platform.RemoveIfExists(dest)
		}
	}()

	if _, err = io.Copy(f, body); err != nil {
		f.Close()
		return "", &FetchError{URL: target, Status: resp.StatusCode, Err: err}
	}
	if err = f.Close(); err != nil {
		return "", &FetchError{URL: target, Status: resp.StatusCode, Err: err}
	}
	return dest, nil
}

// Extension derives a file extension (with leading dot) for a payload. The
// declared content type wins, then the sniffed leading bytes, then the
// extension of the URL path, then DefaultExtension.
func Extension(contentType string, head []byte, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
			return m.Extension()
		}
	}

	if len(head) > 0 {
		if m := mimetype.Detect(head); m.Extension() != "" {
			return m.Extension()
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); len(ext) > 1 && isAlnum(ext[1:]) {
			return ext
		}
	}
	return DefaultExtension
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
