// Package mimeext picks file extensions for downloaded recordings.
package mimeext

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

const (
	// DefaultExt is the extension used when nothing better is known.
	DefaultExt = "mp4"

	// ExtM4A is the file extension for MP4 audio.
	ExtM4A = "m4a"

	// MimeVideoMP4 is the MIME type for MP4 video.
	MimeVideoMP4 = "video/mp4"
	// MimeAudioMP4 is the MIME type for MP4 audio.
	MimeAudioMP4 = "audio/mp4"
	// MimeAudioM4A is the non-standard type some CDNs send for m4a files.
	MimeAudioM4A = "audio/x-m4a"
	// MimeAudioMPEG is the MIME type for MP3 audio.
	MimeAudioMPEG = "audio/mpeg"
)

// ExtFromMime returns file extension (without dot) for given mime type.
// Falls back to the subtype or mp4 if unknown.
func ExtFromMime(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return DefaultExt
	}
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		base = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	switch strings.ToLower(base) {
	case MimeVideoMP4:
		return DefaultExt
	case MimeAudioMP4, MimeAudioM4A:
		return ExtM4A
	case MimeAudioMPEG:
		return "mp3"
	case "application/octet-stream", "binary/octet-stream":
		return DefaultExt
	}
	if parts := strings.Split(base, "/"); len(parts) == 2 && parts[1] != "" {
		return strings.TrimPrefix(parts[1], "x-")
	}
	return DefaultExt
}

// ExtFor chooses an extension from the media URL's path, then its content type.
func ExtFor(mediaURL, contentType string) string {
	if u, err := url.Parse(mediaURL); err == nil {
		switch ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); ext {
		case "mp4", "m4a", "mp3", "webm":
			return ext
		}
	}
	return ExtFromMime(contentType)
}
