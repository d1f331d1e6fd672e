package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ytget/smuledl/types"
)

const recordingPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="Perfect - Ed Sheeran | Smule">
<meta property="og:description" content="Recorded by alice and bob">
<meta property="og:image" content="https://c-cdnet.cdn.smule.com/thumb.jpg">
<meta name="twitter:player:stream" content="https://www.smule.com/redir?e=1&amp;url=abc">
</head>
<body>
<script>DataStore.Pages.Recording = {"performance":{"type":"video","video_media_mp4_url":"ENC"}};</script>
</body>
</html>`

func TestExtractInfo(t *testing.T) {
	want := types.RecordingInfo{
		Title:           "Perfect - Ed Sheeran | Smule",
		Description:     "Recorded by alice and bob",
		Thumbnail:       "https://c-cdnet.cdn.smule.com/thumb.jpg",
		StreamURL:       "https://www.smule.com/redir?e=1&url=abc",
		PerformanceType: "video",
	}

	if diff := cmp.Diff(want, ExtractInfo(recordingPage)); diff != "" {
		t.Errorf("ExtractInfo mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractInfoFallbacks(t *testing.T) {
	markup := `<meta property="og:title" content="  "><meta name="twitter:title" content="Fallback">`

	info := ExtractInfo(markup)

	assert.Equal(t, "Fallback", info.Title)
	assert.Empty(t, info.StreamURL)
	assert.Empty(t, info.PerformanceType)
}

func TestExtractInfoIgnoresOddTypeValues(t *testing.T) {
	info := ExtractInfo(`{"type":"text/javascript"}`)

	assert.Empty(t, info.PerformanceType)
}
