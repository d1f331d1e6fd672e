package smuledl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/downloader"
	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/internal/logger"
	"github.com/ytget/smuledl/internal/mimeext"
	"github.com/ytget/smuledl/internal/sanitize"
	"github.com/ytget/smuledl/smule/extract"
	"github.com/ytget/smuledl/smule/page"
	"github.com/ytget/smuledl/smule/probe"
	"github.com/ytget/smuledl/smule/redir"
	"github.com/ytget/smuledl/types"
)

// StreamField names the source of a media URL found through the
// twitter:player:stream meta tag instead of a marker field.
const StreamField = "twitter:player:stream"

// Progress describes current progress of an ongoing download.
type Progress = downloader.Progress

// Result is the outcome of one resolution.
type Result struct {
	ID        string              `json:"id"`
	Reference types.Reference     `json:"reference"`
	Kind      string              `json:"kind"`
	Field     string              `json:"field"`
	Token     types.Token         `json:"token,omitempty"`
	Media     types.MediaURL      `json:"media"`
	Info      types.RecordingInfo `json:"info"`
}

// Options contains configuration for resolutions and downloads.
//
// Use chainable setters on Resolver to populate these options.
type Options struct {
	Client         *client.Client
	Fields         []string
	Probe          bool
	StreamFallback bool
	ProgressFunc   func(Progress)
	RateLimitBps   int64
	Clock          func() time.Time
}

// Resolver provides the high-level API: fetch a recording page, extract the
// media token, exchange it at the redirect endpoint.
type Resolver struct {
	options Options
	log     *logger.ComponentLogger
}

// New creates a new Resolver with default options.
func New() *Resolver {
	return &Resolver{log: logger.WithComponent(logger.ComponentApp)}
}

// WithClient sets the session used for every request. The same client
// serves the page fetch and the redirect call so cookies carry over.
func (r *Resolver) WithClient(c *client.Client) *Resolver {
	r.options.Client = c
	return r
}

// WithBaseURL points the resolver at another host. It replaces the base URL
// of the current session, creating a default one if none was set.
func (r *Resolver) WithBaseURL(base string) *Resolver {
	c := r.session()
	c.BaseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	if c.BaseURL == "" {
		c.BaseURL = client.DefaultBaseURL
	}
	return r
}

// WithFields replaces the marker fields tried by the extractor, highest
// priority first. No names restores the defaults.
func (r *Resolver) WithFields(names ...string) *Resolver {
	r.options.Fields = names
	return r
}

// WithProbe enables a HEAD request on the resolved URL to fill in its
// content type and length. A failed probe is logged and leaves them unknown.
func (r *Resolver) WithProbe(enabled bool) *Resolver {
	r.options.Probe = enabled
	return r
}

// WithStreamFallback lets a page without marker fields resolve through its
// twitter:player:stream link, read from the page itself or from its
// /twitter card.
func (r *Resolver) WithStreamFallback(enabled bool) *Resolver {
	r.options.StreamFallback = enabled
	return r
}

// WithProgress registers a callback that receives download progress updates.
func (r *Resolver) WithProgress(f func(Progress)) *Resolver {
	r.options.ProgressFunc = f
	return r
}

// WithRateLimit sets a download rate limit in bytes per second. Zero disables limiting.
func (r *Resolver) WithRateLimit(bytesPerSecond int64) *Resolver {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	r.options.RateLimitBps = bytesPerSecond
	return r
}

// WithClock replaces the time source of the redirect timestamp.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.options.Clock = now
	return r
}

// WithLogger routes the resolver's own messages through l.
func (r *Resolver) WithLogger(l *logger.Logger) *Resolver {
	if l != nil {
		r.log = l.WithComponent(logger.ComponentApp)
	}
	return r
}

func (r *Resolver) session() *client.Client {
	if r.options.Client == nil {
		r.options.Client = client.New()
	}
	return r.options.Client
}

// Resolve fetches the page for ref, extracts its media token and exchanges
// it for the media URL. The token is exchanged right after extraction since
// the redirect timestamp must be fresh.
func (r *Resolver) Resolve(ctx context.Context, ref types.Reference, kind types.Kind) (*Result, error) {
	res := &Result{ID: uuid.NewString(), Reference: ref, Kind: kind.String()}
	fields := map[string]interface{}{"id": res.ID, "ref": ref.String(), "kind": res.Kind}
	r.log.Info("resolving recording", fields)

	c := r.session()
	fetcher := page.New(c)
	markup, err := fetcher.Fetch(ctx, ref, kind)
	if err != nil {
		r.log.Error("page fetch failed", fields, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	redirects := redir.New(c).WithClock(r.options.Clock)
	var media types.MediaURL
	m, err := extract.New(r.options.Fields...).Match(string(markup))
	switch {
	case err == nil:
		res.Field, res.Token = m.Field, m.Token
		media, err = redirects.Resolve(ctx, m.Token)
		res.Info = extract.ExtractInfo(string(markup))
	case errs.IsNotFound(err) && r.options.StreamFallback:
		res.Info = extract.ExtractInfo(string(markup))
		if res.Info.StreamURL == "" {
			res.Info = r.twitterCard(ctx, fetcher, fetcher.URL(ref, kind), res.Info, fields)
		}
		if res.Info.StreamURL == "" {
			r.log.Warn("no media token or stream link", fields)
			return nil, err
		}
		r.log.Debug("no marker field, following stream link", fields)
		res.Field = StreamField
		media, err = redirects.Follow(ctx, res.Info.StreamURL)
	default:
		r.log.Warn("no media token on page", fields)
		return nil, err
	}
	if err != nil {
		r.log.Error("redirect failed", fields, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if r.options.Probe {
		// the URL is already resolved; a failed probe only leaves type and size unknown
		if probed, perr := probe.New(c).Probe(ctx, media); perr == nil {
			media = probed
		} else {
			r.log.Warn("probe failed, keeping resolved url", fields, map[string]interface{}{"error": perr.Error()})
		}
	}
	res.Media = media
	r.log.Info("recording resolved", fields, map[string]interface{}{"field": res.Field})
	return res, nil
}

// twitterCard reads the recording's <page>/twitter card, which carries the
// stream link when the main page does not. Fields missing from info are
// filled from the card. Fetch failures leave info unchanged.
func (r *Resolver) twitterCard(ctx context.Context, f *page.Fetcher, pageURL string, info types.RecordingInfo, fields map[string]interface{}) types.RecordingInfo {
	markup, err := f.FetchURL(ctx, strings.TrimRight(pageURL, "/")+"/twitter")
	if err != nil {
		r.log.Debug("twitter card unavailable", fields, map[string]interface{}{"error": err.Error()})
		return info
	}
	card := extract.ExtractInfo(string(markup))
	info.StreamURL = card.StreamURL
	if info.Title == "" {
		info.Title = card.Title
	}
	if info.Thumbnail == "" {
		info.Thumbnail = card.Thumbnail
	}
	if info.Description == "" {
		info.Description = card.Description
	}
	return info
}

// ResolveURL accepts a recording URL as shared from the site or app, or a
// bare reference, and resolves it.
func (r *Resolver) ResolveURL(ctx context.Context, raw string) (*Result, error) {
	ref, kind, err := types.ParseRecordingURL(raw)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, ref, kind)
}

// Download resolves raw and saves the media. If outputPath is empty, a safe
// filename is derived from the title and media extension. If a directory
// path is provided, the derived filename is placed inside that directory.
// It returns the resolution result and the path written.
func (r *Resolver) Download(ctx context.Context, raw, outputPath string) (*Result, string, error) {
	res, err := r.ResolveURL(ctx, raw)
	if err != nil {
		return nil, "", err
	}

	if outputPath == "" {
		outputPath = filename(res)
	} else if fi, statErr := os.Stat(outputPath); statErr == nil && fi.IsDir() {
		outputPath = filepath.Join(outputPath, filename(res))
	}

	dl := downloader.New(r.session(), r.options.ProgressFunc, r.options.RateLimitBps)
	if err := dl.Download(ctx, res.Media, outputPath); err != nil {
		return res, "", fmt.Errorf("download failed: %w", err)
	}
	return res, outputPath, nil
}

func filename(res *Result) string {
	return sanitize.ToSafeFilename(res.Info.Title, mimeext.ExtFor(res.Media.URL, res.Media.ContentType))
}
