package finder

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/ytget/dit/internal/model"
)

// Finder recognizes a class of reference URLs and resolves them into targets.
// Resolve is only called after Match returned true for the same URL.
type Finder interface {
	Name() string
	Match(u *url.URL) bool
	Resolve(ctx context.Context, u *url.URL) ([]model.DownloadTarget, error)
}

// NoResolverError is returned when no registered Finder matches a URL
type NoResolverError struct {
	URL string
	Err error // set when the URL could not be parsed
}

func (e *NoResolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no resolver for %q: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("no resolver for %q", e.URL)
}

func (e *NoResolverError) Unwrap() error { return e.Err }

// Resolver dispatches URLs to the first matching Finder
type Resolver struct {
	mu      sync.RWMutex
	finders []Finder
	logger  *slog.Logger
}

// NewResolver creates a resolver with finders registered in the given order
func NewResolver(finders ...Finder) *Resolver {
	r := &Resolver{logger: slog.Default()}
	for _, f := range finders {
		r.Register(f)
	}
	return r
}

// SetLogger sets the logger used for dispatch tracing
func (r *Resolver) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Register appends f to the dispatch order
func (r *Resolver) Register(f Finder) {
	if f == nil {
		return
	}
	r.mu.Lock()
	r.finders = append(r.finders, f)
	r.mu.Unlock()
}

// Names returns registered finder names in dispatch order
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.finders))
	for _, f := range r.finders {
		names = append(names, f.Name())
	}
	return names
}

// Resolve returns the targets produced by the first Finder matching rawURL.
// The result may be empty.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) ([]model.DownloadTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &NoResolverError{URL: rawURL, Err: err}
	}
	if u.Host == "" {
		return nil, &NoResolverError{URL: rawURL, Err: fmt.Errorf("missing host")}
	}

	f := r.match(u)
	if f == nil {
		return nil, &NoResolverError{URL: rawURL}
	}

	r.logger.Debug("resolving", slog.String("finder", f.Name()), slog.String("url", rawURL))
	targets, err := f.Resolve(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	return targets, nil
}

func (r *Resolver) match(u *url.URL) Finder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.finders {
		if f.Match(u) {
			return f
		}
	}
	return nil
}

// Func adapts a match/resolve pair into a Finder
type Func struct {
	FinderName string
	MatchFunc  func(u *url.URL) bool
	ResolveFn  func(ctx context.Context, u *url.URL) ([]model.DownloadTarget, error)
}

// Name returns the finder name
func (f Func) Name() string { return f.FinderName }

// Match calls MatchFunc
func (f Func) Match(u *url.URL) bool { return f.MatchFunc(u) }

// Resolve calls ResolveFn
func (f Func) Resolve(ctx context.Context, u *url.URL) ([]model.DownloadTarget, error) {
	return f.ResolveFn(ctx, u)
}
