// Package config loads runtime settings from the environment (and an optional
// .env file) and persists the authenticated session as a JSON dotfile.
package config
