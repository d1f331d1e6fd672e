// Package client holds the HTTP session shared by every request of a
// resolution: one tuned transport, one cookie jar and the browser-like
// headers the recording pages and the redirect endpoint expect.
//
// A Client is created by the caller, passed to the page fetcher and the
// redirect resolver, and released with Close when the caller is done.
package client

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/publicsuffix"

	"github.com/ytget/smuledl/internal/logger"
)

const (
	defaultTimeout = 30 * time.Second

	// DefaultBaseURL is the origin of recording pages and the redirect endpoint.
	DefaultBaseURL = "https://www.smule.com"
	// DefaultUserAgent mimics the Android WebView the pages are served to without challenge.
	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 14; Pixel 8 Pro Build/UD1A.230805.019; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/131.0.6778.135 Mobile Safari/537.36"
	// DefaultAccept is the HTML accept list sent with every request.
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	// DefaultAcceptLanguage is the Accept-Language header value.
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	acceptEncodingValue = "gzip, deflate, br"
)

// maxBodyBytes bounds how much of any single decoded response is read into memory.
var maxBodyBytes int64 = 16 << 20

// ErrBodyTooLarge is returned by ReadBody when a decoded body exceeds the
// read limit. The truncated prefix is returned with it.
var ErrBodyTooLarge = errors.New("response body too large")

// defaultTransport is a tuned HTTP transport cloned for each client.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
	ForceAttemptHTTP2:     true,
	// bodies are decoded by ReadBody so brotli is supported as well
	DisableCompression: true,
	ReadBufferSize:     16 * 1024,
	WriteBufferSize:    16 * 1024,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Config holds optional client parameters. Zero values use defaults.
type Config struct {
	Timeout        time.Duration
	BaseURL        string
	UserAgent      string
	AcceptLanguage string
	ProxyURL       string
}

// Client wraps http.Client with the session's cookie jar and default headers.
type Client struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Accept         string
	AcceptLanguage string

	log *logger.ComponentLogger
}

// New creates a new Client with a tuned Transport, a cookie jar and default timeout.
func New() *Client {
	return NewWith(Config{})
}

// NewWith creates a new client with provided config. Zero values use defaults.
// An unparsable proxy URL is logged and ignored.
func NewWith(cfg Config) *Client {
	log := logger.WithComponent(logger.ComponentClient)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	lang := strings.TrimSpace(cfg.AcceptLanguage)
	if lang == "" {
		lang = DefaultAcceptLanguage
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	tr := defaultTransport.Clone()
	if cfg.ProxyURL != "" {
		if proxyFunc, err := proxyFromURLString(cfg.ProxyURL); err == nil {
			tr.Proxy = proxyFunc
		} else {
			log.Warn("ignoring invalid proxy url", map[string]interface{}{"proxy": cfg.ProxyURL, "error": err.Error()})
		}
	}

	// cookiejar.New never returns a non-nil error
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &Client{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: tr,
			Jar:       jar,
		},
		BaseURL:        base,
		UserAgent:      ua,
		Accept:         DefaultAccept,
		AcceptLanguage: lang,
		log:            log,
	}
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Referer returns the same-site referer sent with page requests.
func (c *Client) Referer() string {
	return c.URL("/")
}

// NewRequest builds a request carrying the session's browser headers.
func (c *Client) NewRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}

	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	accept := c.Accept
	if accept == "" {
		accept = DefaultAccept
	}
	lang := c.AcceptLanguage
	if lang == "" {
		lang = DefaultAcceptLanguage
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", lang)
	req.Header.Set("Accept-Encoding", acceptEncodingValue)
	return req, nil
}

// Do sends req once. There is no retry policy.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(c.httpClient(), req)
}

// DoNoRedirect sends req once and returns 3xx responses instead of following them.
func (c *Client) DoNoRedirect(req *http.Request) (*http.Response, error) {
	return c.do(c.NoRedirect(), req)
}

func (c *Client) do(hc *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	fields := map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.Redacted(),
		"elapsed": time.Since(start).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		c.logger().Debug("request failed", fields)
		return nil, err
	}
	fields["status"] = resp.StatusCode
	c.logger().Debug("request done", fields)
	return resp, nil
}

// NoRedirect returns a copy of the underlying http.Client that shares its
// transport and cookie jar but never follows redirects.
func (c *Client) NoRedirect() *http.Client {
	hc := *c.httpClient()
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &hc
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return c.HTTPClient
}

func (c *Client) logger() *logger.ComponentLogger {
	if c.log == nil {
		c.log = logger.WithComponent(logger.ComponentClient)
	}
	return c.log
}

// ReadBody reads resp's body, decoding gzip, deflate and brotli content
// encodings, and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes+1))
	if err != nil {
		return body, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxBodyBytes {
		return body[:maxBodyBytes], fmt.Errorf("read body: %w (limit %d bytes)", ErrBodyTooLarge, maxBodyBytes)
	}
	return body, nil
}

// proxyFromURLString parses a proxy URL and returns a Proxy function.
func proxyFromURLString(raw string) (func(*http.Request) (*url.URL, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy url %q needs scheme and host", raw)
	}
	return http.ProxyURL(u), nil
}
