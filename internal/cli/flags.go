package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ytget/dit/internal/config"
)

// Actions
const (
	ActionHelp     = "help"
	ActionLogin    = "login"
	ActionSaved    = "saved"
	ActionDownload = "download"
	ActionHistory  = "history"
	ActionVersion  = "version"
)

// ErrUsage is returned for malformed command lines
var ErrUsage = errors.New("invalid usage")

// Options is the parsed command line layered over Settings
type Options struct {
	Action      string
	User        string
	Password    string
	DownloadDir string
	ConfigPath  string
	HistoryDB   string
	MaxParallel int
	Pages       int
	Limit       int
	EnableVideo bool
	Verbose     bool
	Debug       bool
}

const usage = `Usage: dit <action> [flags]

Actions:
  login              log in and store the session
  saved              list saved items as "title : url"
  download[=<dir>]   download the media of every saved item
  history            show recent entries of the --history database
  version            print the version
  help               show this message

Flags:
`

// ParseArgs parses args; flags may appear before and after the action.
// Defaults come from settings. Nothing is printed.
func ParseArgs(args []string, settings config.Settings) (Options, error) {
	opts := Options{
		DownloadDir: settings.GetDownloadDirectory(),
		ConfigPath:  settings.GetSessionPath(),
		HistoryDB:   settings.HistoryDB,
		MaxParallel: settings.GetMaxParallelDownloads(),
		Pages:       settings.PageLimit,
		EnableVideo: settings.EnableVideo,
		Verbose:     settings.GetLogLevel() <= slog.LevelDebug,
	}

	var downloadFlag string
	fs := newFlagSet(&opts, &downloadFlag, io.Discard)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			opts.Action = ActionHelp
			return opts, nil
		}
		return opts, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	rest := fs.Args()
	if len(rest) > 0 {
		opts.Action = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				opts.Action = ActionHelp
				return opts, nil
			}
			return opts, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if fs.NArg() > 0 {
			return opts, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
		}
	}

	if action, dir, ok := strings.Cut(opts.Action, "="); ok {
		if action != ActionDownload || dir == "" {
			return opts, fmt.Errorf("%w: unknown action %q", ErrUsage, opts.Action)
		}
		opts.Action = ActionDownload
		opts.DownloadDir = dir
	}
	if downloadFlag != "" {
		if opts.Action != "" && opts.Action != ActionDownload {
			return opts, fmt.Errorf("%w: --download conflicts with %q", ErrUsage, opts.Action)
		}
		opts.Action = ActionDownload
		opts.DownloadDir = downloadFlag
	}

	switch opts.Action {
	case "":
		opts.Action = ActionHelp
	case ActionHelp, ActionLogin, ActionSaved, ActionDownload, ActionHistory, ActionVersion:
	default:
		return opts, fmt.Errorf("%w: unknown action %q", ErrUsage, opts.Action)
	}
	if opts.MaxParallel < 0 || opts.Pages < 0 || opts.Limit < 0 {
		return opts, fmt.Errorf("%w: --max-parallel, --pages and --limit must not be negative", ErrUsage)
	}
	if opts.Action == ActionHistory && opts.HistoryDB == "" {
		return opts, fmt.Errorf("%w: history needs --history or DIT_HISTORY_DB", ErrUsage)
	}
	return opts, nil
}

func newFlagSet(opts *Options, downloadFlag *string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("dit", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.User, "user", "", "account name (prompted when missing)")
	fs.StringVar(&opts.Password, "passwd", "", "account password (prompted when missing)")
	fs.StringVar(downloadFlag, "download", "", "download into `dir`")
	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "session file `path`")
	fs.StringVar(&opts.HistoryDB, "history", opts.HistoryDB, "record downloads in the SQLite `db`")
	fs.IntVar(&opts.MaxParallel, "max-parallel", opts.MaxParallel, "concurrent fetches, 0 for unbounded")
	fs.IntVar(&opts.Pages, "pages", opts.Pages, "stop after `n` pages of saved items, 0 for all")
	fs.IntVar(&opts.Limit, "limit", 0, "history entries to show, 0 for the default")
	fs.BoolVar(&opts.EnableVideo, "video", opts.EnableVideo, "resolve video pages through yt-dlp")
	fs.BoolVar(&opts.Verbose, "verbose", opts.Verbose, "log every event")
	fs.BoolVar(&opts.Debug, "debug", false, "print error details")
	return fs
}

// PrintUsage writes the help text
func PrintUsage(out io.Writer, settings config.Settings) {
	opts := Options{ConfigPath: settings.GetSessionPath(), HistoryDB: settings.HistoryDB}
	var downloadFlag string
	newFlagSet(&opts, &downloadFlag, out).Usage()
}
