package sigv4

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.AccessKeyID == "" && opts.Provider == nil {
		opts.AccessKeyID = "AKIA_TEST"
		opts.SecretAccessKey = "SECRET"
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{SecretAccessKey: "b"}); err == nil {
		t.Fatal("expected error for missing access key id")
	}
	if _, err := New(Options{AccessKeyID: "a"}); err == nil {
		t.Fatal("expected error for missing secret access key")
	}
	if _, err := New(Options{Retries: Retries(-1), AccessKeyID: "a", SecretAccessKey: "b"}); err == nil {
		t.Fatal("expected error for negative retries")
	}
	provider := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{AccessKeyID: "p", SecretAccessKey: "q"}, nil
	})
	if _, err := New(Options{Provider: provider}); err != nil {
		t.Fatalf("provider-only options rejected: %v", err)
	}
}

func TestDoSignsRequest(t *testing.T) {
	t.Parallel()
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{
		AccessKeyID:     "AKIA_TEST",
		SecretAccessKey: "SECRET",
		SessionToken:    "TOKEN",
		Region:          "eu-central-1",
	})
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/readme.txt", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	resp.Body.Close()

	got := <-headers
	auth := got.Get("Authorization")
	if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 Credential=AKIA_TEST/") {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
	if !strings.Contains(auth, "/eu-central-1/s3/aws4_request") {
		t.Fatalf("authorization header missing credential scope: %q", auth)
	}
	if got.Get("X-Amz-Date") == "" {
		t.Fatal("missing X-Amz-Date")
	}
	if got.Get("X-Amz-Security-Token") != "TOKEN" {
		t.Fatalf("session token not forwarded: %q", got.Get("X-Amz-Security-Token"))
	}
	if got.Get(headerContentSHA256) != EmptyPayloadHash {
		t.Fatalf("unexpected payload hash %q", got.Get(headerContentSHA256))
	}
	if got.Get(headerInvocationID) == "" {
		t.Fatal("missing invocation id")
	}
}

func TestDoHashesReplayableBody(t *testing.T) {
	t.Parallel()
	type seen struct{ body, hash string }
	requests := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		requests <- seen{body: string(b), hash: r.Header.Get(headerContentSHA256)}
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/upload.bin", strings.NewReader("abc123"))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	resp.Body.Close()

	got := <-requests
	sum := sha256.Sum256([]byte("abc123"))
	if got.hash != hex.EncodeToString(sum[:]) {
		t.Fatalf("payload hash = %q", got.hash)
	}
	if got.body != "abc123" {
		t.Fatalf("body = %q", got.body)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	bodies := make(chan string, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- string(b)
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/k", strings.NewReader("payload"))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || calls.Load() != 3 {
		t.Fatalf("status=%d calls=%d", resp.StatusCode, calls.Load())
	}
	for i := 0; i < 3; i++ {
		if b := <-bodies; b != "payload" {
			t.Fatalf("attempt %d sent body %q", i+1, b)
		}
	}
}

func TestDoStopsAtRetryLimit(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{Retries: Retries(2)})
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/k", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})
	req, _ := http.NewRequest(http.MethodHead, srv.URL+"/missing", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || calls.Load() != 1 {
		t.Fatalf("status=%d calls=%d", resp.StatusCode, calls.Load())
	}
}

func TestDoDoesNotRetryTransportErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection refused")
	var calls atomic.Int32
	c := newTestClient(t, Options{HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, boom
	})}})

	req, _ := http.NewRequest(http.MethodGet, "https://bucket.s3.amazonaws.com/k", nil)
	_, err := c.Do(req)
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single attempt, got %d", calls.Load())
	}
}

func TestDoSendsStreamingBodyOnce(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	hashes := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hashes <- r.Header.Get(headerContentSHA256)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/stream", io.MultiReader(strings.NewReader("chunk")))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	resp.Body.Close()

	if calls.Load() != 1 {
		t.Fatalf("expected single attempt, got %d", calls.Load())
	}
	if hash := <-hashes; hash != UnsignedPayload {
		t.Fatalf("payload hash = %q", hash)
	}
}

func TestDoHonorsContextDuringBackoff(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(Options{AccessKeyID: "a", SecretAccessKey: "b", InitRetry: time.Hour})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/k", nil)
	if _, err := c.Do(req); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPresign(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, Options{Region: "us-west-2"})
	req, _ := http.NewRequest(http.MethodGet, "https://bucket.s3.us-west-2.amazonaws.com/a%20b.txt", nil)
	signed, err := c.Presign(context.Background(), req, time.Minute)
	if err != nil {
		t.Fatalf("Presign error: %v", err)
	}
	for _, want := range []string{
		"https://bucket.s3.us-west-2.amazonaws.com/a%20b.txt?",
		"X-Amz-Expires=60",
		"X-Amz-Signature=",
		"us-west-2%2Fs3%2Faws4_request",
	} {
		if !strings.Contains(signed, want) {
			t.Fatalf("presigned url %q missing %q", signed, want)
		}
	}
}

func TestPresignRejectsShortExpiry(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, Options{Region: "us-west-2"})
	for _, expires := range []time.Duration{0, -time.Minute, 500 * time.Millisecond} {
		req, _ := http.NewRequest(http.MethodGet, "https://bucket.s3.us-west-2.amazonaws.com/k", nil)
		if signed, err := c.Presign(context.Background(), req, expires); err == nil {
			t.Fatalf("expires %s: expected error, got %q", expires, signed)
		}
	}
}

func TestBackoffBound(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, Options{InitRetry: 10 * time.Millisecond})
	for attempt := 0; attempt < 5; attempt++ {
		bound := (10 * time.Millisecond) << attempt
		for i := 0; i < 20; i++ {
			if d := c.backoff(attempt); d < 0 || d >= bound {
				t.Fatalf("attempt %d: delay %s outside [0,%s)", attempt, d, bound)
			}
		}
	}
	if d := c.backoff(1000); d < 0 {
		t.Fatalf("overflowed backoff: %s", d)
	}
}
