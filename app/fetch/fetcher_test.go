package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, opts Options) *Fetcher {
	t.Helper()
	if opts.RetryInitial == 0 {
		opts.RetryInitial = time.Millisecond
	}
	f, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Close)
	return f
}

func TestFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=EUC-KR")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	f := newTestFetcher(t, Options{})
	result, err := f.Fetch(context.Background(), server.URL, KindArticle)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", result.StatusCode)
	}
	if result.Encoding != "euc-kr" {
		t.Errorf("Expected encoding 'euc-kr', got '%s'", result.Encoding)
	}
	if !strings.Contains(string(result.Body), "ok") {
		t.Errorf("Expected body to be returned, got '%s'", result.Body)
	}
}

func TestFetcher_Fetch_RotatesUserAgentFromPool(t *testing.T) {
	pool := []string{"agent-a", "agent-b"}
	var mu sync.Mutex
	seen := map[string]int{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.UserAgent()]++
		mu.Unlock()
	}))
	defer server.Close()

	f := newTestFetcher(t, Options{UserAgents: pool})
	for i := 0; i < 40; i++ {
		if _, err := f.Fetch(context.Background(), server.URL, KindFeed); err != nil {
			t.Fatal(err)
		}
	}

	for agent := range seen {
		if agent != "agent-a" && agent != "agent-b" {
			t.Errorf("Unexpected user agent '%s'", agent)
		}
	}
	if len(seen) != 2 {
		t.Errorf("Expected both agents to be used over 40 requests, got %v", seen)
	}
}

func TestFetcher_Fetch_PermanentErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(t, Options{})
	_, err := f.Fetch(context.Background(), server.URL, KindArticle)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %T", err)
	}
	if fetchErr.Transient {
		t.Error("Expected 404 to be a permanent error")
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fetchErr.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 request, got %d", calls)
	}
}

func TestFetcher_Fetch_TransientErrorRetriedTwice(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	f := newTestFetcher(t, Options{FeedTimeout: 20 * time.Millisecond})
	_, err := f.Fetch(context.Background(), server.URL, KindFeed)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !IsTransient(err) {
		t.Errorf("Expected transient error, got: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestFetcher_Fetch_RecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(100 * time.Millisecond)
			return
		}
		w.Write([]byte("second time lucky"))
	}))
	defer server.Close()

	f := newTestFetcher(t, Options{FeedTimeout: 30 * time.Millisecond})
	result, err := f.Fetch(context.Background(), server.URL, KindFeed)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if string(result.Body) != "second time lucky" {
		t.Errorf("Expected body from second attempt, got '%s'", result.Body)
	}
}

func TestFetcher_Fetch_RefererPrewarmedOnce(t *testing.T) {
	var prewarms int32
	var mu sync.Mutex
	var referers []string

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&prewarms, 1)
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "warm"})
	})
	mux.HandleFunc("/article/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		referers = append(referers, r.Referer())
		mu.Unlock()
		if _, err := r.Cookie("session"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("article"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t, Options{Referer: server.URL + "/"})
	for _, path := range []string{"/article/1", "/article/2", "/article/3"} {
		if _, err := f.Fetch(context.Background(), server.URL+path, KindArticle); err != nil {
			t.Fatalf("Expected article fetch to succeed after prewarm, got: %v", err)
		}
	}

	if atomic.LoadInt32(&prewarms) != 1 {
		t.Errorf("Expected exactly one prewarm request, got %d", prewarms)
	}
	for i, ref := range referers {
		if ref != server.URL+"/" {
			t.Errorf("Request %d: expected referer '%s', got '%s'", i, server.URL+"/", ref)
		}
	}
}

func TestFetcher_Fetch_FeedSkipsPrewarm(t *testing.T) {
	var prewarms int32
	mux := http.NewServeMux()
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&prewarms, 1)
	})
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		if r.Referer() != "" {
			t.Errorf("Expected no referer on feed request, got '%s'", r.Referer())
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t, Options{Referer: server.URL + "/home"})
	if _, err := f.Fetch(context.Background(), server.URL+"/rss", KindFeed); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&prewarms) != 0 {
		t.Errorf("Expected no prewarm for feed requests, got %d", prewarms)
	}
}

func TestFetcher_Fetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, Options{})
	if _, err := f.Fetch(ctx, server.URL, KindFeed); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestFetcher_Fetch_RedirectLoopNotRetried(t *testing.T) {
	var hits int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Redirect(w, r, server.URL+r.URL.Path, http.StatusFound)
	}))
	defer server.Close()

	f := newTestFetcher(t, Options{})
	_, err := f.Fetch(context.Background(), server.URL+"/loop", KindArticle)
	if err == nil {
		t.Fatal("Expected redirect loop error")
	}
	if IsTransient(err) {
		t.Errorf("Expected permanent error for redirect loop, got: %v", err)
	}
	// The client gives up after 10 redirects; a retry would double that.
	if got := atomic.LoadInt32(&hits); got != 10 {
		t.Errorf("Expected a single attempt of 10 requests, got %d", got)
	}
}

func TestFetcher_Fetch_UnsupportedSchemeNotRetried(t *testing.T) {
	f := newTestFetcher(t, Options{})
	_, err := f.Fetch(context.Background(), "ftp://example.invalid/feed.xml", KindFeed)
	if err == nil {
		t.Fatal("Expected unsupported scheme error")
	}
	if IsTransient(err) {
		t.Errorf("Expected permanent error for ftp URL, got: %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", &url.Error{Op: "Get", URL: "u", Err: context.DeadlineExceeded}, true},
		{"cancelled", &url.Error{Op: "Get", URL: "u", Err: context.Canceled}, false},
		{"connection refused", &url.Error{Op: "Get", URL: "u", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}, true},
		{"connection reset", &url.Error{Op: "Get", URL: "u", Err: &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}}, true},
		{"unexpected eof", &url.Error{Op: "Get", URL: "u", Err: io.ErrUnexpectedEOF}, true},
		{"redirect loop", &url.Error{Op: "Get", URL: "u", Err: errors.New("stopped after 10 redirects")}, false},
		{"certificate", &url.Error{Op: "Get", URL: "u", Err: &tls.CertificateVerificationError{Err: errors.New("unknown authority")}}, false},
		{"tls alert", &url.Error{Op: "Get", URL: "u", Err: &net.OpError{Op: "remote error", Err: errors.New("tls: handshake failure")}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("Expected isTransient=%v, got %v for %v", tt.want, got, tt.err)
			}
		})
	}
}
