// Package ingress turns transport payloads into raw document bytes: base64
// strings from tool calls and documents fetched from remote URLs.
package ingress

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/HendryAvila/docsmith/internal/docerr"
)

// Upload is a document payload with its declared filename.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Config bounds remote fetching.
type Config struct {
	Timeout       time.Duration
	RatePerMinute int
	MaxBytes      int64
}

// DefaultConfig returns conservative fetch limits.
func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second, RatePerMinute: 30, MaxBytes: 20 << 20}
}

// Fetcher downloads documents over HTTP(S). Safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
}

// NewFetcher creates a Fetcher. A nil client uses a fresh http.Client with
// cfg.Timeout.
func NewFetcher(cfg Config, client *http.Client) *Fetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = def.RatePerMinute
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	burst := cfg.RatePerMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60), burst),
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch downloads rawURL. The filename comes from Content-Disposition when
// present, else from the last path segment. Fails with ErrInvalidArgument
// for unusable URLs, non-2xx responses and oversize bodies, and with
// ErrBusy when the fetch rate limit is exhausted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Upload, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Upload{}, docerr.Invalid("url must be an absolute http or https URL")
	}

	if !f.limiter.Allow() {
		return Upload{}, fmt.Errorf("%w: remote fetch rate limit reached, retry shortly", docerr.ErrBusy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Upload{}, fmt.Errorf("building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Upload{}, docerr.Invalid("fetching %s: %v", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Upload{}, docerr.Invalid("fetching %s: status %d", u.Redacted(), resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return Upload{}, docerr.Invalid("remote document is %d bytes, limit is %d", resp.ContentLength, f.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Upload{}, docerr.Invalid("reading %s: %v", u.Redacted(), err)
	}
	if int64(len(body)) > f.maxBytes {
		return Upload{}, docerr.Invalid("remote document exceeds %d bytes", f.maxBytes)
	}

	return Upload{
		Filename:    filenameFor(resp, u),
		ContentType: resp.Header.Get("Content-Type"),
		Content:     body,
	}, nil
}

func filenameFor(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := path.Base(params["filename"]); name != "." && name != "/" && name != "" {
				return name
			}
		}
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// DecodeBase64 decodes a tool-call payload. Standard and URL-safe alphabets
// are accepted, padded or not, as is a "data:...;base64," prefix.
func DecodeBase64(content string, maxBytes int64) ([]byte, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, docerr.Invalid("content is empty")
	}
	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(s))) > maxBytes+2 {
		return nil, docerr.Invalid("content exceeds %d bytes", maxBytes)
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		raw, err := enc.DecodeString(s)
		if err == nil {
			if maxBytes > 0 && int64(len(raw)) > maxBytes {
				return nil, docerr.Invalid("content exceeds %d bytes", maxBytes)
			}
			return raw, nil
		}
		lastErr = err
	}
	return nil, docerr.Invalid("content is not valid base64: %v", lastErr)
}
