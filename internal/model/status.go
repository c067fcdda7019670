package model

// DownloadStatus represents the state of a single download unit (an item or one
// of its targets)
type DownloadStatus string

const (
	// StatusPending is the state of a unit no event has touched yet
	StatusPending DownloadStatus = "Pending"

	// StatusResolving means the item was handed over and finders are turning
	// its URL into targets
	StatusResolving DownloadStatus = "Resolving"

	// StatusDownloading means a target is being fetched to disk
	StatusDownloading DownloadStatus = "Downloading"

	// StatusCompleted means the target was stored successfully
	StatusCompleted DownloadStatus = "Completed"

	// StatusError means resolution or fetching failed
	StatusError DownloadStatus = "Error"
)

// String returns the string representation of DownloadStatus
func (s DownloadStatus) String() string {
	return string(s)
}

// IsActive returns true if work is in progress
func (s DownloadStatus) IsActive() bool {
	return s == StatusResolving || s == StatusDownloading
}

// IsFinished returns true if the unit reached a terminal state
func (s DownloadStatus) IsFinished() bool {
	return s == StatusCompleted || s == StatusError
}
