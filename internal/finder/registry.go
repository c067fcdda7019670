package finder

import (
	"log/slog"
	"net/http"

	"github.com/ytget/dit/internal/platform"
)

// Options selects and configures the built-in finders
type Options struct {
	HTTPClient  *http.Client
	TempDir     string
	EnableVideo bool
	YTDLPBinary string
	Logger      *slog.Logger
}

// Default builds the built-in registry: direct images, imgur, then yt-dlp video
// when enabled and the binary is installed.
func Default(opts Options) *Resolver {
	r := NewResolver(
		DirectImage{},
		NewImgur(opts.HTTPClient, opts.TempDir),
	)
	r.SetLogger(opts.Logger)

	if opts.EnableVideo {
		yt := platform.NewYTDLPService(opts.YTDLPBinary)
		if yt.Available() {
			r.Register(NewVideo(yt))
		} else if opts.Logger != nil {
			opts.Logger.Warn("video finder disabled: yt-dlp not found", slog.String("binary", opts.YTDLPBinary))
		}
	}
	return r
}
