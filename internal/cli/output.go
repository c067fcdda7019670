package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"

	"github.com/ytget/dit/internal/config"
	"github.com/ytget/dit/internal/model"
)

// newLogger builds the process logger; verbose forces debug level
func newLogger(w io.Writer, settings config.Settings, verbose bool) *slog.Logger {
	level := settings.GetLogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if settings.GetLogFormat() == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// eventLogger renders download events as log lines
func eventLogger(logger *slog.Logger) func(model.Event) {
	return func(ev model.Event) {
		o := ev.Outcome
		attrs := []any{
			slog.String("title", o.Item.DisplayTitle()),
			slog.String("url", o.Item.URL),
		}
		if o.Target != "" {
			attrs = append(attrs, slog.String("target", o.Target.String()))
		}

		switch ev.Kind {
		case model.EventPostNew:
			logger.Debug("saved item", attrs...)
		case model.EventDownloadNew:
			logger.Debug("download started", attrs...)
		case model.EventDownloadDone:
			logger.Info("downloaded", append(attrs, slog.String("path", o.DestinationPath))...)
		case model.EventDownloadError:
			logger.Warn("download failed", append(attrs, slog.Any("error", o.Err))...)
		}
	}
}

// progress tracks finished targets on a spinner-style bar since the number of
// targets is unknown until pagination ends
type progress struct {
	bar          *progressbar.ProgressBar
	done, failed atomic.Int64
}

func newProgress(w io.Writer, visible bool) *progress {
	return &progress{
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetVisibility(visible),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetItsString("file"),
			progressbar.OptionShowIts(),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (p *progress) handle(ev model.Event) {
	if !ev.Status().IsFinished() {
		return
	}
	if ev.Outcome.Succeeded() {
		p.done.Add(1)
	} else {
		p.failed.Add(1)
	}
	p.bar.Describe(fmt.Sprintf("downloading (%d failed)", p.failed.Load()))
	_ = p.bar.Add(1)
}

func (p *progress) finish() {
	_ = p.bar.Finish()
}
