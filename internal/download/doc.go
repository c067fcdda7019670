package download

// Package download implements the item download pipeline: every saved item is
// resolved into targets through a Resolver, each target is fetched concurrently
// and stored under a slugged file name, and progress is reported to listeners
// as download.* events. Failures stay isolated to their unit of work.
