package download

import (
	"regexp"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Cat Pic!", "cat-pic"},
		{"  Hello,   World  ", "hello-world"},
		{"already-slugged", "already-slugged"},
		{"--Trim--Me--", "trim-me"},
		{"Ünïcödé Title 2024", "n-c-d-title-2024"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlug_IdempotentAndCharset(t *testing.T) {
	charset := regexp.MustCompile(`^[a-z0-9-]*$`)
	inputs := []string{
		"Cat Pic!", "[OC] My dog, Rex (2 yrs)", "日本語のタイトル", "a__b__c", "-x-", "MiXeD CaSe 123",
	}

	for _, in := range inputs {
		once := Slug(in)
		if !charset.MatchString(once) {
			t.Errorf("Slug(%q) = %q has characters outside [a-z0-9-]", in, once)
		}
		if twice := Slug(once); twice != once {
			t.Errorf("Slug not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestFileBase(t *testing.T) {
	if got := fileBase("Nice Title", "t3_abc"); got != "nice-title" {
		t.Errorf("expected title slug, got %q", got)
	}
	if got := fileBase("???", "t3_abc"); got != "t3-abc" {
		t.Errorf("expected ID fallback, got %q", got)
	}
	if got := fileBase("", ""); got != "item" {
		t.Errorf("expected item fallback, got %q", got)
	}
}
