package download

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s, collapses every run of characters outside [a-z0-9] into a
// single hyphen and trims hyphens from both ends. Slug(Slug(s)) == Slug(s).
func Slug(s string) string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// fileBase picks the file name stem for an item
func fileBase(title, id string) string {
	if s := Slug(title); s != "" {
		return s
	}
	if s := Slug(id); s != "" {
		return s
	}
	return "item"
}
