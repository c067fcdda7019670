package finder

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/dit/internal/model"
)

type fakeVideoSource struct {
	playlist []string
	direct   map[string][]string
	err      error
}

func (f *fakeVideoSource) PlaylistVideoURLs(context.Context, string) ([]string, error) {
	return f.playlist, f.err
}

func (f *fakeVideoSource) DirectURLs(_ context.Context, page string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.direct[page], nil
}

func TestVideo_Match(t *testing.T) {
	v := NewVideo(&fakeVideoSource{})
	for raw, want := range map[string]bool{
		"https://www.youtube.com/watch?v=x": true,
		"https://youtu.be/x":                true,
		"https://m.youtube.com/watch?v=x":   true,
		"https://vimeo.com/1":               false,
	} {
		u, _ := url.Parse(raw)
		assert.Equal(t, want, v.Match(u), raw)
	}
}

func TestVideo_ResolveSingle(t *testing.T) {
	src := &fakeVideoSource{direct: map[string][]string{
		"https://youtu.be/abc": {"https://cdn/abc.mp4"},
	}}

	u, _ := url.Parse("https://youtu.be/abc")
	targets, err := NewVideo(src).Resolve(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, []model.DownloadTarget{"https://cdn/abc.mp4"}, targets)
}

func TestVideo_ResolvePlaylist(t *testing.T) {
	src := &fakeVideoSource{
		playlist: []string{"https://www.youtube.com/watch?v=a", "https://www.youtube.com/watch?v=b"},
		direct: map[string][]string{
			"https://www.youtube.com/watch?v=a": {"https://cdn/a.mp4"},
			"https://www.youtube.com/watch?v=b": {"https://cdn/b.mp4"},
		},
	}

	u, _ := url.Parse("https://www.youtube.com/playlist?list=PL1")
	targets, err := NewVideo(src).Resolve(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, []model.DownloadTarget{"https://cdn/a.mp4", "https://cdn/b.mp4"}, targets)
}

func TestVideo_ResolveError(t *testing.T) {
	src := &fakeVideoSource{err: errors.New("yt-dlp exploded")}
	u, _ := url.Parse("https://youtu.be/abc")

	_, err := NewVideo(src).Resolve(context.Background(), u)
	assert.Error(t, err)
}

func TestDefault_Order(t *testing.T) {
	r := Default(Options{YTDLPBinary: "definitely-not-installed-yt-dlp", EnableVideo: true})
	assert.Equal(t, []string{"direct-image", "imgur"}, r.Names())
}
