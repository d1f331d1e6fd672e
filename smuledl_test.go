package smuledl

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/types"
)

const (
	testToken = "e:Zm9vYmFy%2Bx"
	testRef   = "1234_5678"
)

var mediaBody = bytes.Repeat([]byte("smule"), 2000)

type stubSite struct {
	*httptest.Server
	markup     string
	card       string
	mediaPath  string
	redirCode  int
	pageHits   atomic.Int32
	redirHits  atomic.Int32
	lastTParam atomic.Value
	stream     atomic.Value
}

func (s *stubSite) setStream(path string) { s.stream.Store(path) }

func recordingPage(fields, streamURL string) string {
	meta := `<meta property="og:title" content="Fly Me To The Moon | Smule">`
	if streamURL != "" {
		meta += `<meta name="twitter:player:stream" content="` + streamURL + `">`
	}
	return `<html><head>` + meta + `</head><body><script>window.DataStore = {"Pages":{"Recording":{"performance":{` +
		fields + `}}}};</script></body></html>`
}

var defaultMarkup = recordingPage(`"type":"audio","video_media_mp4_url":"","media_url":"`+testToken+`","visualizer_media_url":"nope"`, "")

// withCard serves card markup at <page>/twitter.
func withCard(card string) func(*stubSite) {
	return func(s *stubSite) { s.card = card }
}

// withMediaPath changes where the redirect endpoint points.
func withMediaPath(p string) func(*stubSite) {
	return func(s *stubSite) { s.mediaPath = p }
}

// newStubSite serves markup on both page templates and answers the redirect
// endpoint with redirCode. The media path supports ranges and HEAD.
func newStubSite(t *testing.T, markup string, redirCode int, opts ...func(*stubSite)) *stubSite {
	t.Helper()
	s := &stubSite{markup: markup, redirCode: redirCode, mediaPath: "/media/fly.m4a"}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	page := func(w http.ResponseWriter, r *http.Request) {
		s.pageHits.Add(1)
		markup := s.markup
		switch {
		case s.card != "" && strings.HasSuffix(r.URL.Path, "/"+testRef+"/twitter"):
			markup = s.card
		case !strings.HasSuffix(r.URL.Path, "/"+testRef):
			http.NotFound(w, r)
			return
		}
		if v, ok := s.stream.Load().(string); ok {
			markup = strings.Replace(markup, "STREAM", s.URL+v, 1)
		}
		_, _ = fmt.Fprint(w, markup)
	}
	mux.HandleFunc("/sing-recording/", page)
	mux.HandleFunc("/c/", page)
	mux.HandleFunc("/redir", func(w http.ResponseWriter, r *http.Request) {
		s.redirHits.Add(1)
		s.lastTParam.Store(r.URL.Query().Get("t"))
		if r.URL.Query().Get("url") != testToken || r.URL.Query().Get("e") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if s.redirCode == http.StatusFound {
			w.Header().Set("Location", s.URL+s.mediaPath)
		}
		w.WriteHeader(s.redirCode)
		_, _ = fmt.Fprint(w, "teapot says no")
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mp4")
		http.ServeContent(w, r, "fly.m4a", time.Time{}, bytes.NewReader(mediaBody))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newResolver(t *testing.T, s *stubSite) *Resolver {
	t.Helper()
	c := client.NewWith(client.Config{BaseURL: s.URL})
	t.Cleanup(c.Close)
	return New().WithClient(c)
}

func TestResolve(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusFound)
	fixed := time.Unix(1700000000, 0)

	res, err := newResolver(t, s).WithClock(func() time.Time { return fixed }).
		Resolve(context.Background(), testRef, types.KindSolo)
	require.NoError(t, err)

	assert.Equal(t, "media_url", res.Field)
	assert.Equal(t, types.Token(testToken), res.Token)
	assert.Equal(t, s.URL+"/media/fly.m4a", res.Media.URL)
	assert.EqualValues(t, -1, res.Media.ContentLength)
	assert.Equal(t, "Fly Me To The Moon | Smule", res.Info.Title)
	assert.Equal(t, "audio", res.Info.PerformanceType)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "1700000000.12345", s.lastTParam.Load())
	assert.EqualValues(t, 1, s.pageHits.Load())
	assert.EqualValues(t, 1, s.redirHits.Load())
}

func TestResolveURLEnsemble(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusFound)

	res, err := newResolver(t, s).ResolveURL(context.Background(), "www.smule.com/c/"+testRef+"?share=1")
	require.NoError(t, err)

	assert.Equal(t, "ensemble", res.Kind)
	assert.Equal(t, types.Reference(testRef), res.Reference)
}

func TestResolveURLInvalid(t *testing.T) {
	_, err := New().ResolveURL(context.Background(), "https://www.smule.com/user/someone")
	assert.ErrorIs(t, err, types.ErrInvalidReference)
}

func TestResolveBlocked(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusTeapot)

	_, err := newResolver(t, s).Resolve(context.Background(), testRef, types.KindSolo)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrBlocked)
	assert.True(t, errs.IsBlocked(err))
	assert.EqualValues(t, 1, s.redirHits.Load())
}

func TestResolveUnexpectedStatus(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusOK)

	_, err := newResolver(t, s).Resolve(context.Background(), testRef, types.KindSolo)

	assert.ErrorIs(t, err, errs.ErrUnexpectedStatus)
	assert.Equal(t, http.StatusOK, errs.StatusCode(err))
}

func TestResolveNoToken(t *testing.T) {
	s := newStubSite(t, recordingPage(`"video_media_mp4_url":"","visualizer_media_url":"v"`, ""), http.StatusFound)

	_, err := newResolver(t, s).Resolve(context.Background(), testRef, types.KindSolo)

	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, s.redirHits.Load())
}

func TestResolvePageMissing(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusFound)

	_, err := newResolver(t, s).Resolve(context.Background(), "1_1", types.KindSolo)

	assert.ErrorIs(t, err, errs.ErrHTTPStatus)
	assert.Equal(t, http.StatusNotFound, errs.StatusCode(err))
	assert.Zero(t, s.redirHits.Load())
}

func TestResolveStreamFallback(t *testing.T) {
	// the stream link is relative to the stub host, which is only known once it runs
	streamPath := "/redir?e=1&amp;t=1.12345&amp;url=" + strings.ReplaceAll(testToken, "%", "%25")
	s := newStubSite(t, recordingPage(`"video_media_mp4_url":""`, "STREAM"), http.StatusFound)
	s.setStream(streamPath)

	_, err := newResolver(t, s).Resolve(context.Background(), testRef, types.KindSolo)
	assert.ErrorIs(t, err, errs.ErrNotFound, "fallback is off by default")

	res, err := newResolver(t, s).WithStreamFallback(true).Resolve(context.Background(), testRef, types.KindSolo)
	require.NoError(t, err)
	assert.Equal(t, StreamField, res.Field)
	assert.Empty(t, res.Token)
	assert.Equal(t, s.URL+"/media/fly.m4a", res.Media.URL)
}

func TestResolveStreamFallbackFromTwitterCard(t *testing.T) {
	streamPath := "/redir?e=1&amp;t=1.12345&amp;url=" + strings.ReplaceAll(testToken, "%", "%25")
	card := `<html><head><meta property="og:image" content="https://img.example/cover.jpg">` +
		`<meta name="twitter:player:stream" content="STREAM"></head></html>`
	s := newStubSite(t, recordingPage(`"video_media_mp4_url":""`, ""), http.StatusFound, withCard(card))
	s.setStream(streamPath)

	res, err := newResolver(t, s).WithStreamFallback(true).Resolve(context.Background(), testRef, types.KindSolo)
	require.NoError(t, err)

	assert.Equal(t, StreamField, res.Field)
	assert.Equal(t, s.URL+"/media/fly.m4a", res.Media.URL)
	assert.Equal(t, "Fly Me To The Moon | Smule", res.Info.Title)
	assert.Equal(t, "https://img.example/cover.jpg", res.Info.Thumbnail)
	assert.EqualValues(t, 2, s.pageHits.Load())
}

func TestResolveStreamFallbackWithoutCard(t *testing.T) {
	s := newStubSite(t, recordingPage(`"video_media_mp4_url":""`, ""), http.StatusFound)

	_, err := newResolver(t, s).WithStreamFallback(true).Resolve(context.Background(), testRef, types.KindSolo)

	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.EqualValues(t, 2, s.pageHits.Load())
	assert.Zero(t, s.redirHits.Load())
}

func TestResolveProbeFailureKeepsURL(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusFound, withMediaPath("/gone/fly.m4a"))

	res, err := newResolver(t, s).WithProbe(true).Resolve(context.Background(), testRef, types.KindSolo)
	require.NoError(t, err)

	assert.Equal(t, s.URL+"/gone/fly.m4a", res.Media.URL)
	assert.EqualValues(t, -1, res.Media.ContentLength)
	assert.Empty(t, res.Media.ContentType)
}

func TestResolveWithProbe(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusFound)

	res, err := newResolver(t, s).WithProbe(true).Resolve(context.Background(), testRef, types.KindSolo)
	require.NoError(t, err)

	assert.Equal(t, "audio/mp4", res.Media.ContentType)
	assert.EqualValues(t, len(mediaBody), res.Media.ContentLength)
}

func TestDownloadIntoDirectory(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusFound)
	dir := t.TempDir()

	var last Progress
	res, out, err := newResolver(t, s).WithProgress(func(p Progress) { last = p }).
		Download(context.Background(), "https://www.smule.com/sing-recording/"+testRef, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Fly Me To The Moon.m4a"), out)
	assert.Equal(t, "media_url", res.Field)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, mediaBody, data)
	assert.EqualValues(t, len(mediaBody), last.DownloadedSize)
}

func TestDownloadExplicitPath(t *testing.T) {
	s := newStubSite(t, defaultMarkup, http.StatusFound)
	target := filepath.Join(t.TempDir(), "song.m4a")

	_, out, err := newResolver(t, s).Download(context.Background(), testRef, target)
	require.NoError(t, err)

	assert.Equal(t, target, out)
	assert.FileExists(t, target)
}

func TestWithBaseURL(t *testing.T) {
	r := New().WithBaseURL("https://mirror.example/ ")
	assert.Equal(t, "https://mirror.example", r.options.Client.BaseURL)

	r.WithBaseURL("")
	assert.Equal(t, client.DefaultBaseURL, r.options.Client.BaseURL)
}

func TestResolveLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newStubSite(t, defaultMarkup, http.StatusFound)
	c := client.NewWith(client.Config{BaseURL: s.URL})
	_, err := New().WithClient(c).Resolve(context.Background(), testRef, types.KindSolo)
	require.NoError(t, err)

	c.Close()
	s.Close()
}
