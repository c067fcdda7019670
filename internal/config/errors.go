package config

import "errors"

// Package-specific errors
var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Settings
	ErrParsingConfig = errors.New("failed to parse environment variables into settings")

	// ErrCorruptSession is returned when the session file is not a JSON object
	ErrCorruptSession = errors.New("session file is not a JSON object")
)
