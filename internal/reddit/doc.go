// Package reddit talks to the reddit-compatible bookmark API: it logs a user in,
// keeps the session cookie and modhash, and drains the saved-items listing page
// by page.
package reddit
