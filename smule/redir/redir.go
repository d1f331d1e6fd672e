// Package redir exchanges an encrypted media token for the playable media
// URL through the site's signed redirect endpoint.
package redir

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/internal/logger"
	"github.com/ytget/smuledl/types"
)

const (
	op = "resolve redirect"

	// Path is the redirect endpoint path.
	Path = "/redir"
	// TimestampSuffix is appended to the Unix time in the t parameter. Its
	// meaning is unknown; working requests carry exactly this value.
	TimestampSuffix = "12345"
	// EncryptedFlag is the value of the e parameter selecting encrypted tokens.
	EncryptedFlag = "1"
)

// State is the lifecycle of one Resolve call.
type State int

const (
	StateInit State = iota
	StateRequested
	StateResolved
	StateBlocked
	StateUnexpectedStatus
	StateTransportError
)

var stateNames = map[State]string{
	StateInit:             "init",
	StateRequested:        "requested",
	StateResolved:         "resolved",
	StateBlocked:          "blocked",
	StateUnexpectedStatus: "unexpected_status",
	StateTransportError:   "transport_error",
}

func (s State) String() string {
	return stateNames[s]
}

// Terminal reports whether s ends a resolution.
func (s State) Terminal() bool {
	return s >= StateResolved
}

// Resolver talks to the redirect endpoint. It keeps no per-call state and is
// safe for concurrent use.
type Resolver struct {
	client *client.Client
	now    func() time.Time
	log    *logger.ComponentLogger
}

// New returns a Resolver using c. A nil c gets a private default session.
func New(c *client.Client) *Resolver {
	if c == nil {
		c = client.New()
	}
	return &Resolver{
		client: c,
		now:    time.Now,
		log:    logger.WithComponent(logger.ComponentRedir),
	}
}

// WithClock replaces the time source used for the t parameter.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	if now != nil {
		r.now = now
	}
	return r
}

// Timestamp formats the t parameter for instant ts.
func Timestamp(ts time.Time) string {
	return fmt.Sprintf("%d.%s", ts.Unix(), TimestampSuffix)
}

// RequestURL builds the redirect request for token at instant ts. The token
// is percent-encoded once as a query value on top of whatever escaping it
// already carries from the page.
func (r *Resolver) RequestURL(token types.Token, ts time.Time) string {
	q := url.Values{}
	q.Set("e", EncryptedFlag)
	q.Set("t", Timestamp(ts))
	q.Set("url", string(token))
	return r.client.URL(Path) + "?" + q.Encode()
}

// Resolve exchanges token for the media URL. The timestamp is taken when the
// request is built, so tokens should be resolved right after extraction.
//
// A 3xx answer yields its Location; 418 is errs.ErrBlocked and must not be
// retried without changing the request fingerprint; any other status is
// errs.ErrUnexpectedStatus. Nothing is retried here.
func (r *Resolver) Resolve(ctx context.Context, token types.Token) (types.MediaURL, error) {
	if strings.TrimSpace(string(token)) == "" {
		return types.MediaURL{}, errs.NotFound(op)
	}
	return r.Follow(ctx, r.RequestURL(token, r.now()))
}

// Follow issues one non-following GET against a redirect URL that is
// already fully formed, such as a twitter:player:stream link, and
// interprets the answer like Resolve.
func (r *Resolver) Follow(ctx context.Context, redirURL string) (types.MediaURL, error) {
	media, state, err := r.do(ctx, redirURL)
	r.log.Debug("redirect finished", map[string]interface{}{"state": state.String()})
	return media, err
}

func (r *Resolver) do(ctx context.Context, redirURL string) (types.MediaURL, State, error) {
	req, err := r.client.NewRequest(ctx, http.MethodGet, redirURL)
	if err != nil {
		return types.MediaURL{}, StateTransportError, errs.Transport(op, redirURL, err)
	}

	resp, err := r.client.DoNoRedirect(req)
	if err != nil {
		return types.MediaURL{}, StateTransportError, errs.Transport(op, redirURL, err)
	}

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		body, _ := client.ReadBody(resp)
		if location == "" {
			return types.MediaURL{}, StateUnexpectedStatus, errs.UnexpectedStatus(op, redirURL, resp.StatusCode, body)
		}
		if ref, perr := url.Parse(location); perr == nil && !ref.IsAbs() {
			location = resp.Request.URL.ResolveReference(ref).String()
		}
		r.log.Info("redirect resolved", map[string]interface{}{"status": resp.StatusCode})
		return types.NewMediaURL(location), StateResolved, nil

	case resp.StatusCode == http.StatusTeapot:
		body, _ := client.ReadBody(resp)
		r.log.Warn("redirect blocked", map[string]interface{}{"status": resp.StatusCode})
		return types.MediaURL{}, StateBlocked, errs.Blocked(op, redirURL, body)

	default:
		body, _ := client.ReadBody(resp)
		r.log.Warn("unexpected redirect status", map[string]interface{}{"status": resp.StatusCode})
		return types.MediaURL{}, StateUnexpectedStatus, errs.UnexpectedStatus(op, redirURL, resp.StatusCode, body)
	}
}
