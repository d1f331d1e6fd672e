// Package page fetches the public markup of a recording.
package page

import (
	"context"
	"net/http"

	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/internal/logger"
	"github.com/ytget/smuledl/types"
)

const op = "fetch page"

// Markup is the raw body of a recording page. It only lives for one resolution.
type Markup string

// Fetcher retrieves recording pages through a caller-owned session.
type Fetcher struct {
	client *client.Client
	log    *logger.ComponentLogger
}

// New returns a Fetcher using c. A nil c gets a private default session.
func New(c *client.Client) *Fetcher {
	if c == nil {
		c = client.New()
	}
	return &Fetcher{
		client: c,
		log:    logger.WithComponent(logger.ComponentPage),
	}
}

// URL returns the page address of ref under kind's template.
func (f *Fetcher) URL(ref types.Reference, kind types.Kind) string {
	return f.client.URL(kind.PagePath(ref))
}

// Fetch issues a single GET for the recording page. Only HTTP 200 is
// accepted; any other status is an errs.CodeHTTPStatus error with a body
// snippet, and network failures are errs.CodeTransport.
func (f *Fetcher) Fetch(ctx context.Context, ref types.Reference, kind types.Kind) (Markup, error) {
	pageURL := f.URL(ref, kind)
	return f.FetchURL(ctx, pageURL)
}

// FetchURL fetches an arbitrary same-site page with the recording page headers.
func (f *Fetcher) FetchURL(ctx context.Context, pageURL string) (Markup, error) {
	req, err := f.client.NewRequest(ctx, http.MethodGet, pageURL)
	if err != nil {
		return "", errs.Transport(op, pageURL, err)
	}
	req.Header.Set("Referer", f.client.Referer())

	f.log.Debug("fetching page", map[string]interface{}{"url": pageURL})
	resp, err := f.client.Do(req)
	if err != nil {
		return "", errs.Transport(op, pageURL, err)
	}

	body, err := client.ReadBody(resp)
	if resp.StatusCode != http.StatusOK {
		f.log.Warn("page status", map[string]interface{}{"url": pageURL, "status": resp.StatusCode})
		return "", errs.HTTPStatus(op, pageURL, resp.StatusCode, body)
	}
	if err != nil {
		return "", errs.Transport(op, pageURL, err)
	}

	f.log.Debug("page fetched", map[string]interface{}{"url": pageURL, "bytes": len(body)})
	return Markup(body), nil
}
