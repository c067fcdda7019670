package model

// Package model defines domain data structures shared across the app: saved
// items, session state, download targets and outcomes, and the lifecycle
// events the downloader emits.
