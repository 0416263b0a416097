package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

type Kind int

const (
	KindFeed Kind = iota
	KindArticle
)

func (k Kind) String() string {
	if k == KindArticle {
		return "article"
	}
	return "feed"
}

// DefaultUserAgents is the desktop browser pool used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
}

const maxBodyBytes = 16 << 20

type Options struct {
	UserAgents     []string
	FeedTimeout    time.Duration
	ArticleTimeout time.Duration
	// Referer is prewarmed once before the first article request and sent
	// with every article request.
	Referer string
	// MaxRPS caps outgoing requests per second across the fetcher; 0 disables.
	MaxRPS float64
	// RetryInitial and RetryMultiplier shape the transient-failure backoff
	// (0.5s then 1.5s by default).
	RetryInitial    time.Duration
	RetryMultiplier float64
	MaxRetries      uint64
	Transport       http.RoundTripper
}

func (o *Options) setDefaults() {
	if len(o.UserAgents) == 0 {
		o.UserAgents = DefaultUserAgents
	}
	if o.FeedTimeout <= 0 {
		o.FeedTimeout = 15 * time.Second
	}
	if o.ArticleTimeout <= 0 {
		o.ArticleTimeout = 20 * time.Second
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = 500 * time.Millisecond
	}
	if o.RetryMultiplier <= 0 {
		o.RetryMultiplier = 3
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 2
	}
}

type Result struct {
	Body        []byte
	Encoding    string
	StatusCode  int
	ContentType string
	URL         string
}

// Fetcher owns the per-run HTTP session: cookie jar, pooled connections,
// user-agent pool and referer prewarm state. It is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter

	mu  sync.Mutex
	rnd *rand.Rand

	prewarm sync.Once
}

func New(opts Options) (*Fetcher, error) {
	opts.setDefaults()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	f := &Fetcher{
		client: &http.Client{Jar: jar, Transport: transport},
		opts:   opts,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if opts.MaxRPS > 0 {
		burst := int(opts.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), burst)
	}
	return f, nil
}

// Close releases pooled connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// Fetch issues a GET for url, retrying transient failures with exponential
// backoff. Non-2xx responses fail permanently.
func (f *Fetcher) Fetch(ctx context.Context, url string, kind Kind) (*Result, error) {
	if kind == KindArticle && f.opts.Referer != "" {
		f.prewarm.Do(func() { f.prewarmReferer(ctx) })
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.opts.RetryInitial
	policy.Multiplier = f.opts.RetryMultiplier
	policy.RandomizationFactor = 0
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0

	attempt := 0
	var result *Result
	operation := func() error {
		attempt++
		res, err := f.do(ctx, url, kind)
		if err != nil {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) && fetchErr.Transient && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}
	notify := func(err error, delay time.Duration) {
		slog.Debug("Retrying request", "url", url, "kind", kind.String(), "attempt", attempt, "delay", delay, "error", err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, f.opts.MaxRetries), ctx), notify)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			err = &FetchError{URL: url, Transient: true, Err: err}
		}
		return nil, err
	}
	return result, nil
}

func (f *Fetcher) do(ctx context.Context, url string, kind Kind) (*Result, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: url, Transient: true, Err: err}
		}
	}

	timeout := f.opts.FeedTimeout
	if kind == KindArticle {
		timeout = f.opts.ArticleTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	f.setHeaders(req, kind)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Transient: isTransient(err), Err: fmt.Errorf("failed to fetch URL: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Transient: true, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	return &Result{
		Body:        data,
		Encoding:    DetectEncoding(data, contentType),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		URL:         resp.Request.URL.String(),
	}, nil
}

func (f *Fetcher) setHeaders(req *http.Request, kind Kind) {
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	if kind == KindArticle {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		if f.opts.Referer != "" {
			req.Header.Set("Referer", f.opts.Referer)
		}
	} else {
		req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.9,*/*;q=0.8")
	}
}

func (f *Fetcher) userAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.UserAgents[f.rnd.Intn(len(f.opts.UserAgents))]
}

// prewarmReferer visits the referer once so the session picks up the
// cookies some publishers require on article pages.
func (f *Fetcher) prewarmReferer(ctx context.Context) {
	res, err := f.do(ctx, f.opts.Referer, KindArticle)
	if err != nil {
		slog.Debug("Referer prewarm failed", "referer", f.opts.Referer, "error", err)
		return
	}
	slog.Debug("Referer prewarmed", "referer", f.opts.Referer, "status", res.StatusCode)
}

// isTransient reports whether a transport error is worth retrying. Redirect
// loops, unsupported schemes and certificate failures are permanent.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// client.Do wraps everything in *url.Error, which is itself a net.Error.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// TLS alerts from the peer arrive as "remote error" OpErrors.
		return opErr.Op == "dial" || opErr.Op == "read" || opErr.Op == "write"
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
