package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names a lifecycle notification
type EventKind string

const (
	// EventPostNew fires once per saved item surfaced by pagination
	EventPostNew EventKind = "post.new"

	// EventDownloadNew fires before a target is fetched
	EventDownloadNew EventKind = "download.new"

	// EventDownloadDone fires after a target was written to disk
	EventDownloadDone EventKind = "download.done"

	// EventDownloadError fires when resolving an item or fetching a target failed
	EventDownloadError EventKind = "download.error"
)

// String returns the string representation of EventKind
func (k EventKind) String() string {
	return string(k)
}

// Event is the payload delivered to listeners
type Event struct {
	ID      string
	Kind    EventKind
	Outcome DownloadOutcome
	At      time.Time
}

// NewEvent stamps a fresh event
func NewEvent(kind EventKind, outcome DownloadOutcome) Event {
	return Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		Outcome: outcome,
		At:      time.Now(),
	}
}

// Status maps the event to the state it moves its unit into
func (e Event) Status() DownloadStatus {
	switch e.Kind {
	case EventPostNew:
		return StatusResolving
	case EventDownloadNew:
		return StatusDownloading
	case EventDownloadDone:
		return StatusCompleted
	case EventDownloadError:
		return StatusError
	default:
		return StatusPending
	}
}
