// Package probe inspects a resolved media URL for its content type and size.
// It is a follow-up step: resolution itself never validates the URL.
package probe

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/internal/logger"
	"github.com/ytget/smuledl/types"
)

const op = "probe media"

// Prober issues HEAD requests through the session, falling back to a one
// byte ranged GET for hosts that reject HEAD.
type Prober struct {
	client *client.Client
	log    *logger.ComponentLogger
}

// New returns a Prober using c. A nil c gets a private default session.
func New(c *client.Client) *Prober {
	if c == nil {
		c = client.New()
	}
	return &Prober{
		client: c,
		log:    logger.WithComponent(logger.ComponentProbe),
	}
}

// Probe returns media with ContentType and ContentLength filled in.
func (p *Prober) Probe(ctx context.Context, media types.MediaURL) (types.MediaURL, error) {
	resp, err := p.request(ctx, http.MethodHead, media.URL)
	if err != nil {
		return media, err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		p.log.Debug("HEAD rejected, trying ranged GET", map[string]interface{}{"status": resp.StatusCode})
		resp, err = p.request(ctx, http.MethodGet, media.URL)
		if err != nil {
			return media, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := client.ReadBody(resp)
		return media, errs.HTTPStatus(op, media.URL, resp.StatusCode, body)
	}
	_ = resp.Body.Close()

	out := media
	out.ContentType = resp.Header.Get("Content-Type")
	out.ContentLength = TotalSize(resp.Header)
	p.log.Debug("media probed", map[string]interface{}{
		"status":         resp.StatusCode,
		"content_type":   out.ContentType,
		"content_length": out.ContentLength,
	})
	return out, nil
}

func (p *Prober) request(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := p.client.NewRequest(ctx, method, rawURL)
	if err != nil {
		return nil, errs.Transport(op, rawURL, err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Range", "bytes=0-1")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errs.Transport(op, rawURL, err)
	}
	return resp, nil
}

// TotalSize reads the full object size from Content-Range ("bytes 0-1/N")
// or Content-Length. It returns -1 when neither is usable.
func TotalSize(h http.Header) int64 {
	if cr := h.Get("Content-Range"); cr != "" {
		if i := strings.LastIndex(cr, "/"); i >= 0 {
			if v, err := strconv.ParseInt(strings.TrimSpace(cr[i+1:]), 10, 64); err == nil {
				return v
			}
		}
	}
	if cl := h.Get("Content-Length"); cl != "" {
		if v, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return v
		}
	}
	return -1
}
