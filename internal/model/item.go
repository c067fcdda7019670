package model

import (
	"time"
)

// Credentials are the login pair typed by the user. Never persisted.
type Credentials struct {
	User     string
	Password string
}

// SessionConfig is the authenticated state of a remote API session
type SessionConfig struct {
	User        string     `json:"user,omitempty"`
	AuthToken   string     `json:"cookie,omitempty"`
	AuthSecret  string     `json:"modhash,omitempty"`
	TokenExpiry *time.Time `json:"expires,omitempty"`
}

// IsComplete returns true when user, token and secret are all present.
// TokenExpiry is not consulted.
func (c SessionConfig) IsComplete() bool {
	return c.User != "" && c.AuthToken != "" && c.AuthSecret != ""
}

// SavedItem is a bookmarked post surfaced by the remote API
type SavedItem struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DisplayTitle returns title, ID, or URL in order of preference
func (i SavedItem) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	if i.ID != "" {
		return i.ID
	}
	return i.URL
}

// DownloadTarget is a concrete, directly fetchable media URL
type DownloadTarget string

// String returns the target URL
func (t DownloadTarget) String() string {
	return string(t)
}

// DownloadOutcome describes one unit of download work. On terminal events
// exactly one of DestinationPath and Err is set.
type DownloadOutcome struct {
	Item            SavedItem
	Target          DownloadTarget // empty when resolution itself failed
	Index           int            // position of Target among the item's targets
	Total           int            // number of targets the item resolved to
	DestinationPath string
	Err             error
}

// Succeeded returns true if the outcome carries a stored file
func (o DownloadOutcome) Succeeded() bool {
	return o.Err == nil && o.DestinationPath != ""
}
