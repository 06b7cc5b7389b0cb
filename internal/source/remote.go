package source

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RemoteOptions configures downloads of http(s) and ftp inputs.
type RemoteOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RatePerHost limits requests per second to a single host.
	RatePerHost float64
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
}

func (o RemoteOptions) withDefaults() RemoteOptions {
	if o.UserAgent == "" {
		o.UserAgent = "citymap/1.0"
	}
	if o.Timeout == 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RatePerHost == 0 {
		o.RatePerHost = 5
	}
	if o.BaseBackoff == 0 {
		o.BaseBackoff = time.Second
	}
	return o
}

// Resolver turns an input location into a local file path. A location is a
// local path or an http(s)/ftp URL, optionally naming a zip member after
// "#", e.g. "archive.zip#apartments_rent_pl_2023_11.csv". Downloads and
// extracted members are written under dir.
type Resolver struct {
	dir    string
	opts   RemoteOptions
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewResolver creates a Resolver writing into dir.
func NewResolver(dir string, opts RemoteOptions) *Resolver {
	opts = opts.withDefaults()
	return &Resolver{
		dir:  dir,
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiters: make(map[string]*rate.Limiter),
	}
}

// Resolve returns a local path for location. An empty location resolves to
// the empty path.
func (r *Resolver) Resolve(ctx context.Context, location string) (string, error) {
	if location == "" {
		return "", nil
	}
	base, member := splitMember(location)

	local := base
	if u, err := url.Parse(base); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		name := path.Base(u.Path)
		if name == "." || name == "/" || name == "" {
			name = "download"
		}
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return "", eris.Wrap(err, "source: create download dir")
		}
		local = filepath.Join(r.dir, name)

		switch u.Scheme {
		case "http", "https":
			err = r.downloadHTTP(ctx, base, local)
		case "ftp":
			err = r.downloadFTP(ctx, base, local)
		default:
			return "", eris.Wrapf(ErrUnsupportedFormat, "source: scheme %q", u.Scheme)
		}
		if err != nil {
			return "", err
		}
	}

	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		if member != "" {
			return "", eris.Errorf("source: %s is not a zip archive", base)
		}
		return local, nil
	}
	return extractInput(local, member, filepath.Join(r.dir, strings.TrimSuffix(filepath.Base(local), filepath.Ext(local))))
}

// splitMember splits "archive.zip#member" into its parts. Other locations
// are returned unchanged.
func splitMember(location string) (string, string) {
	i := strings.LastIndex(location, "#")
	if i < 0 || i == len(location)-1 {
		return location, ""
	}
	base := location[:i]
	if !strings.EqualFold(path.Ext(base), ".zip") {
		return location, ""
	}
	return base, location[i+1:]
}

func (r *Resolver) limiterFor(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.opts.RatePerHost), 1)
		r.limiters[host] = lim
	}
	return lim
}

func (r *Resolver) downloadHTTP(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "source: create request")
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)

	resp, err := r.doWithRetry(ctx, req)
	if err != nil {
		return eris.Wrapf(err, "source: download %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("source: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	n, err := writeTo(dst, resp.Body)
	if err != nil {
		return err
	}
	zap.L().Info("source: downloaded",
		zap.String("url", rawURL),
		zap.String("path", dst),
		zap.Int64("bytes", n),
	)
	return nil
}

func (r *Resolver) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := r.limiterFor(req.URL.Host)

	var lastErr error
	for attempt := range r.opts.MaxRetries {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := r.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			r.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			r.backoff(ctx, attempt)
			continue
		}
		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (r *Resolver) backoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(r.opts.BaseBackoff) * math.Pow(2, float64(attempt)))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, p string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return "", "", eris.New("empty path in ftp url")
	}
	return host, u.Path, nil
}

func (r *Resolver) downloadFTP(ctx context.Context, rawURL, dst string) error {
	host, p, err := parseFTPURL(rawURL)
	if err != nil {
		return eris.Wrap(err, "source")
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", p))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(r.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "source: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return eris.Wrap(err, "source: ftp login")
	}

	resp, err := conn.Retr(p)
	if err != nil {
		return eris.Wrap(err, "source: ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	n, err := writeTo(dst, resp)
	if err != nil {
		return err
	}
	zap.L().Info("source: downloaded",
		zap.String("url", rawURL),
		zap.String("path", dst),
		zap.Int64("bytes", n),
	)
	return nil
}

func writeTo(dst string, r io.Reader) (int64, error) {
	file, err := os.Create(dst)
	if err != nil {
		return 0, eris.Wrap(err, "source: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, r)
	if err != nil {
		return n, eris.Wrap(err, "source: write file")
	}
	return n, nil
}
