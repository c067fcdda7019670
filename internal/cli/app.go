package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ytget/dit/internal/config"
	"github.com/ytget/dit/internal/download"
	"github.com/ytget/dit/internal/finder"
	"github.com/ytget/dit/internal/history"
	"github.com/ytget/dit/internal/model"
	"github.com/ytget/dit/internal/reddit"
)

// drainTimeout bounds the wait for in-flight downloads after cancellation
const drainTimeout = 10 * time.Second

// Errors for rejected prompt input
var (
	ErrInvalidUser     = errors.New("invalid user")
	ErrInvalidPassword = errors.New("invalid password")
)

// App runs one dit invocation
type App struct {
	Settings   config.Settings
	Stdout     io.Writer
	Stderr     io.Writer
	Prompter   Prompter
	HTTPClient *http.Client // nil uses package defaults

	// ShowProgress renders the progress bar on Stderr
	ShowProgress bool

	// Version is printed by the version action
	Version string

	logger *slog.Logger
}

// New creates an App bound to the process streams
func New(settings config.Settings, version string) *App {
	return &App{
		Version:      version,
		Settings:     settings,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Prompter:     NewTerminalPrompter(os.Stdin, os.Stderr),
		ShowProgress: true,
	}
}

// Run executes args and returns the process exit code
func (a *App) Run(ctx context.Context, args []string) int {
	opts, err := ParseArgs(args, a.Settings)
	if err != nil {
		fmt.Fprintf(a.Stderr, "%v\nrun 'dit help' for usage\n", err)
		return 2
	}
	switch opts.Action {
	case ActionHelp:
		PrintUsage(a.Stdout, a.Settings)
		return 0
	case ActionVersion:
		fmt.Fprintf(a.Stdout, "dit %s\n", a.Version)
		return 0
	}

	a.logger = newLogger(a.Stderr, a.Settings, opts.Verbose)

	if err := a.run(ctx, opts); err != nil {
		printError(a.Stderr, err, opts.Debug)
		return ExitCode(err)
	}
	return 0
}

func (a *App) run(ctx context.Context, opts Options) error {
	if opts.Action == ActionHistory {
		return a.showHistory(ctx, opts)
	}

	store := config.NewSessionStore(opts.ConfigPath)

	session, err := a.authenticate(ctx, opts, store)
	if err != nil {
		return err
	}

	switch opts.Action {
	case ActionLogin:
		return nil
	case ActionSaved:
		return a.listSaved(ctx, session, opts)
	case ActionDownload:
		return a.downloadSaved(ctx, session, opts)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrUsage, opts.Action)
	}
}

// authenticate resumes the stored session when it belongs to the requested
// user, otherwise logs in and saves the new session. The login action always
// logs in.
func (a *App) authenticate(ctx context.Context, opts Options, store *config.SessionStore) (*reddit.Session, error) {
	sessionOpts := []reddit.Option{
		reddit.WithHost(a.Settings.Host),
		reddit.WithUserAgent(a.Settings.UserAgent),
		reddit.WithLogger(a.logger),
	}
	if a.HTTPClient != nil {
		sessionOpts = append(sessionOpts, reddit.WithHTTPClient(a.HTTPClient))
	}

	stored, err := store.LoadSession()
	if err != nil {
		a.logger.Warn("ignoring stored session", slog.String("path", store.Path()), slog.Any("error", err))
		stored = model.SessionConfig{}
	}

	if opts.Action != ActionLogin && stored.IsComplete() && (opts.User == "" || opts.User == stored.User) {
		a.logger.Debug("resuming stored session", slog.String("user", stored.User))
		session := reddit.NewSession(append(sessionOpts, reddit.WithSessionConfig(stored))...)
		if session.Expired(time.Now()) {
			a.logger.Warn("stored session has expired, run 'dit login' if requests are rejected",
				slog.String("user", stored.User), slog.Time("expires", *stored.TokenExpiry))
		}
		return session, nil
	}

	creds, err := a.credentials(opts)
	if err != nil {
		return nil, err
	}

	session := reddit.NewSession(sessionOpts...)
	cfg, err := session.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(a.Stderr, "Logged-in successfully")

	if err := store.Save(cfg); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (a *App) credentials(opts Options) (model.Credentials, error) {
	creds := model.Credentials{User: opts.User, Password: opts.Password}
	var err error

	if creds.User == "" {
		if creds.User, err = a.Prompter.ReadLine("User: "); err != nil {
			return creds, err
		}
		if creds.User == "" {
			return creds, ErrInvalidUser
		}
	}
	if creds.Password == "" {
		if creds.Password, err = a.Prompter.ReadPassword("Password: "); err != nil {
			return creds, err
		}
		if creds.Password == "" {
			return creds, ErrInvalidPassword
		}
	}
	return creds, nil
}

func (a *App) listSaved(ctx context.Context, session *reddit.Session, opts Options) error {
	p := reddit.NewPaginator(session,
		reddit.WithPageLimit(opts.Pages),
		reddit.WithItemListener(func(item model.SavedItem) {
			fmt.Fprintf(a.Stdout, "%s : %s\n", item.DisplayTitle(), item.URL)
		}),
	)

	items, err := p.All(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("listed saved items", slog.Int("count", len(items)))
	return nil
}

// downloadSaved streams items into the downloader as pages arrive, then waits
// for every download to settle. Per-item failures do not fail the command.
func (a *App) downloadSaved(ctx context.Context, session *reddit.Session, opts Options) error {
	resolver := finder.Default(finder.Options{
		HTTPClient:  a.HTTPClient,
		EnableVideo: opts.EnableVideo,
		YTDLPBinary: a.Settings.GetYTDLPPath(),
		Logger:      a.logger,
	})
	a.logger.Debug("finders registered", slog.Any("order", resolver.Names()))

	dlOpts := []download.Option{
		download.WithFetchTimeout(a.Settings.GetFetchTimeout()),
		download.WithMaxParallel(opts.MaxParallel),
		download.WithUserAgent(a.Settings.UserAgent),
		download.WithLogger(a.logger),
		download.WithBaseContext(ctx),
	}
	if a.HTTPClient != nil {
		dlOpts = append(dlOpts, download.WithHTTPClient(a.HTTPClient))
	}

	d, err := download.New(opts.DownloadDir, resolver, dlOpts...)
	if err != nil {
		return err
	}

	if opts.HistoryDB != "" {
		ledger, err := history.Open(ctx, opts.HistoryDB)
		if err != nil {
			return err
		}
		defer ledger.Close()
		ledger.SetLogger(a.logger)
		d.OnAny(ledger.Recorder())
	}

	logEvent := eventLogger(a.logger)
	d.OnAny(logEvent)

	bar := newProgress(a.Stderr, a.ShowProgress && !opts.Verbose)
	d.OnAny(bar.handle)

	p := reddit.NewPaginator(session,
		reddit.WithPageLimit(opts.Pages),
		reddit.WithItemListener(func(item model.SavedItem) {
			logEvent(model.NewEvent(model.EventPostNew, model.DownloadOutcome{Item: item}))
			d.Download(item)
		}),
	)

	_, pageErr := p.All(ctx)
	// items already handed over still settle before reporting
	doneErr := d.Done(ctx)
	if doneErr != nil {
		// cancelled units report their errors before the ledger closes
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		if err := d.Done(drainCtx); err != nil {
			a.logger.Warn("downloads still running at exit", slog.Any("error", err))
		}
		cancel()
	}
	bar.finish()

	stats := d.Stats()
	a.logger.Info("download finished",
		slog.String("dir", d.Dir()),
		slog.Int64("items", stats.Items),
		slog.Int64("completed", stats.Completed),
		slog.Int64("failed", stats.Failed+stats.Unresolved),
	)

	if pageErr != nil {
		return pageErr
	}
	return doneErr
}

// showHistory prints the most recent ledger entries, newest first
func (a *App) showHistory(ctx context.Context, opts Options) error {
	ledger, err := history.Open(ctx, opts.HistoryDB)
	if err != nil {
		return err
	}
	defer ledger.Close()

	entries, err := ledger.List(ctx, opts.Limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		detail := e.Path
		if e.Error != "" {
			detail = e.Error
		}
		fmt.Fprintf(a.Stdout, "%s %-14s %-11s %s : %s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Status, e.Title, detail)
	}
	return nil
}
