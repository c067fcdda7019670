package platform

// Package platform contains OS/platform integration and external tooling glue:
// filesystem helpers, default paths, scoped temp files, and the yt-dlp bridge
// used by the video finder.
