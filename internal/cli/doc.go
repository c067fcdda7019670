package cli

// Package cli wires settings, the session store, the reddit session, the
// resolver registry and the downloader behind the dit command line.
