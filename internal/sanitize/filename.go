// Package sanitize turns recording titles into portable file names.
package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxFilenameLength is the maximum allowed length in bytes of the filename base.
	MaxFilenameLength = 120
	// DefaultExt is the default extension used when none is provided.
	DefaultExt = "mp4"
	// DefaultName is the replacement name when the title is empty.
	DefaultName = "Smule_Recording"
)

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)
	spaceRuns   = regexp.MustCompile(`\s+`)
	// og:title ends with the site name
	siteSuffix = regexp.MustCompile(`\s*[|\-–]\s*Smule\s*$`)
)

// ToSafeFilename builds a cross-platform safe filename from title and extension (without dot in ext).
func ToSafeFilename(title, ext string) string {
	// titles arrive in mixed normalization forms from the page
	name := norm.NFC.String(strings.TrimSpace(title))
	name = siteSuffix.ReplaceAllString(name, "")
	name = spaceRuns.ReplaceAllString(name, " ")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" || strings.Trim(name, "_") == "" {
		name = DefaultName
	}
	if len(name) > MaxFilenameLength {
		name = truncate(name, MaxFilenameLength)
	}
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = DefaultExt
	}
	return filepath.Clean(name + "." + ext)
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimRight(s[:n], " .")
}
