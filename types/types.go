package types

// Token is the encrypted media reference embedded in a recording page. It is
// kept exactly as found in the markup and escaped once more only when sent
// to the redirect endpoint.
type Token string

// MediaURL is a directly fetchable media location returned by the redirect endpoint.
type MediaURL struct {
	URL           string `json:"url"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length"` // -1 when unknown
}

// NewMediaURL returns a MediaURL with unknown type and length.
func NewMediaURL(u string) MediaURL {
	return MediaURL{URL: u, ContentLength: -1}
}

// RecordingInfo holds descriptive fields read from a recording page.
type RecordingInfo struct {
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	StreamURL       string `json:"stream_url,omitempty"`
	PerformanceType string `json:"performance_type,omitempty"`
}
