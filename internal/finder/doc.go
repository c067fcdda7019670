// Package finder turns the reference URL of a saved item into zero or more
// directly downloadable targets.
//
// A Resolver holds an ordered list of Finders. For a given URL the first Finder
// whose Match returns true is asked to Resolve it; later Finders are never
// consulted, even if they would match too. New providers are supported by
// registering another Finder, nothing else needs to change.
package finder
