package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ytget/dit/internal/model"
	"github.com/ytget/dit/internal/platform"
)

// DefaultFetchTimeout bounds a single target fetch including the body transfer
const DefaultFetchTimeout = 60 * time.Second

// Stats are cumulative counters of a Downloader
type Stats struct {
	Items      int64 // items passed to Download
	Unresolved int64 // items whose resolution failed
	Started    int64 // targets whose fetch began
	Completed  int64 // targets stored on disk
	Failed     int64 // targets that failed
}

// Option configures a Downloader
type Option func(*Downloader)

// WithHTTPClient sets the client used for target fetches
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithFetchTimeout bounds every target fetch; 0 disables the bound
func WithFetchTimeout(timeout time.Duration) Option {
	return func(d *Downloader) { d.fetchTimeout = timeout }
}

// WithMaxParallel caps concurrent target fetches; 0 means unbounded
func WithMaxParallel(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.sem = semaphore.NewWeighted(int64(n))
		} else {
			d.sem = nil
		}
	}
}

// WithUserAgent sets the User-Agent header of target fetches
func WithUserAgent(ua string) Option {
	return func(d *Downloader) { d.userAgent = ua }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithBaseContext sets the context every unit of work derives from.
// Cancelling it aborts outstanding resolutions and fetches.
func WithBaseContext(ctx context.Context) Option {
	return func(d *Downloader) {
		if ctx != nil {
			d.baseCtx = ctx
		}
	}
}

// Downloader resolves saved items and stores their targets in a directory
type Downloader struct {
	dir          string
	resolver     Resolver
	client       *http.Client
	fetchTimeout time.Duration
	userAgent    string
	sem          *semaphore.Weighted
	logger       *slog.Logger
	baseCtx      context.Context

	listenersMu sync.RWMutex
	listeners   map[model.EventKind][]Listener
	anyListener []Listener
	emitMu      sync.Mutex // serializes delivery

	inflightMu sync.Mutex
	inflight   map[uint64]chan struct{}
	nextUnit   uint64

	items, unresolved, started, completed, failed atomic.Int64
}

// New creates a downloader storing into dir, which is created when missing
func New(dir string, resolver Resolver, opts ...Option) (*Downloader, error) {
	if resolver == nil {
		return nil, fmt.Errorf("download: resolver is required")
	}
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("download: prepare target directory: %w", err)
	}

	d := &Downloader{
		dir:          dir,
		resolver:     resolver,
		client:       http.DefaultClient,
		fetchTimeout: DefaultFetchTimeout,
		logger:       slog.Default(),
		baseCtx:      context.Background(),
		listeners:    make(map[model.EventKind][]Listener),
		inflight:     make(map[uint64]chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dir returns the target directory
func (d *Downloader) Dir() string {
	return d.dir
}

// On registers fn for events of one kind
func (d *Downloader) On(kind model.EventKind, fn Listener) {
	if fn == nil {
		return
	}
	d.listenersMu.Lock()
	d.listeners[kind] = append(d.listeners[kind], fn)
	d.listenersMu.Unlock()
}

// OnAny registers fn for every event
func (d *Downloader) OnAny(fn Listener) {
	if fn == nil {
		return
	}
	d.listenersMu.Lock()
	d.anyListener = append(d.anyListener, fn)
	d.listenersMu.Unlock()
}

// Download starts fetching item in the background and returns immediately
func (d *Downloader) Download(item model.SavedItem) {
	d.items.Add(1)
	id, done := d.track()

	go func() {
		defer d.untrack(id, done)
		defer d.recoverUnit(model.DownloadOutcome{Item: item})
		d.process(item)
	}()
}

// Done blocks until every unit started before the call has settled, or ctx
// ends. It can be called again for later batches.
func (d *Downloader) Done(ctx context.Context) error {
	d.inflightMu.Lock()
	pending := make([]chan struct{}, 0, len(d.inflight))
	for _, ch := range d.inflight {
		pending = append(pending, ch)
	}
	d.inflightMu.Unlock()

	for _, ch := range pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stats returns a snapshot of the counters
func (d *Downloader) Stats() Stats {
	return Stats{
		Items:      d.items.Load(),
		Unresolved: d.unresolved.Load(),
		Started:    d.started.Load(),
		Completed:  d.completed.Load(),
		Failed:     d.failed.Load(),
	}
}

func (d *Downloader) process(item model.SavedItem) {
	targets, err := d.resolver.Resolve(d.baseCtx, item.URL)
	if err != nil {
		d.unresolved.Add(1)
		d.emit(model.EventDownloadError, model.DownloadOutcome{Item: item, Err: err})
		return
	}
	if len(targets) == 0 {
		d.logger.Debug("item resolved to no targets", slog.String("url", item.URL))
		return
	}

	base := fileBase(item.Title, item.ID)
	var wg sync.WaitGroup
	for i, target := range targets {
		outcome := model.DownloadOutcome{Item: item, Target: target, Index: i, Total: len(targets)}
		name := base
		if len(targets) > 1 {
			name = fmt.Sprintf("%s%d", base, i)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer d.recoverUnit(outcome)
			d.fetchTarget(outcome, name)
		}()
	}
	wg.Wait()
}

// fetchTarget waits for a slot, then fetches under the per-target timeout.
// Queue time does not count against the timeout.
func (d *Downloader) fetchTarget(outcome model.DownloadOutcome, name string) {
	var acquireErr error
	if d.sem != nil {
		if acquireErr = d.sem.Acquire(d.baseCtx, 1); acquireErr == nil {
			defer d.sem.Release(1)
		}
	}

	d.started.Add(1)
	d.emit(model.EventDownloadNew, outcome)

	if acquireErr != nil {
		// cancelled while queued
		d.fail(outcome, &FetchError{URL: outcome.Target.String(), Err: acquireErr})
		return
	}

	ctx := d.baseCtx
	if d.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.fetchTimeout)
		defer cancel()
	}

	dest, err := d.fetch(ctx, outcome.Target.String(), name)
	if err != nil {
		d.fail(outcome, err)
		return
	}

	d.completed.Add(1)
	outcome.DestinationPath = dest
	d.emit(model.EventDownloadDone, outcome)
}

func (d *Downloader) fail(outcome model.DownloadOutcome, err error) {
	d.failed.Add(1)
	outcome.Err = err
	outcome.DestinationPath = ""
	d.emit(model.EventDownloadError, outcome)
}

// recoverUnit turns a panic inside a unit of work into a download.error
func (d *Downloader) recoverUnit(outcome model.DownloadOutcome) {
	if r := recover(); r != nil {
		d.logger.Error("download panicked", slog.String("url", outcome.Item.URL), slog.Any("panic", r))
		if outcome.Target != "" {
			d.failed.Add(1)
		}
		outcome.Err = fmt.Errorf("download panicked: %v", r)
		outcome.DestinationPath = ""
		d.emit(model.EventDownloadError, outcome)
	}
}

// emit delivers one event to the kind's listeners, then to catch-all listeners
func (d *Downloader) emit(kind model.EventKind, outcome model.DownloadOutcome) {
	ev := model.NewEvent(kind, outcome)

	d.listenersMu.RLock()
	fns := make([]Listener, 0, len(d.listeners[kind])+len(d.anyListener))
	fns = append(fns, d.listeners[kind]...)
	fns = append(fns, d.anyListener...)
	d.listenersMu.RUnlock()

	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	for _, fn := range fns {
		d.call(fn, ev)
	}
}

func (d *Downloader) call(fn Listener, ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panicked", slog.String("event", ev.Kind.String()), slog.Any("panic", r))
		}
	}()
	fn(ev)
}

func (d *Downloader) track() (uint64, chan struct{}) {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()
	d.nextUnit++
	ch := make(chan struct{})
	d.inflight[d.nextUnit] = ch
	return d.nextUnit, ch
}

func (d *Downloader) untrack(id uint64, done chan struct{}) {
	d.inflightMu.Lock()
	delete(d.inflight, id)
	d.inflightMu.Unlock()
	close(done)
}
