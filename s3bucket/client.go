package s3bucket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/objectkit/s3bucket-go/sigv4"
)

// Signer signs and sends a request. The response, or the error, is handed
// back to the caller untouched. *sigv4.Client is the default
// implementation; a plain *http.Client also satisfies Signer for public
// buckets that need no authentication.
type Signer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Presigner is implemented by signers that can produce query-signed URLs.
type Presigner interface {
	Presign(ctx context.Context, req *http.Request, expires time.Duration) (string, error)
}

// Bucket performs object operations against a single bucket.
//
// Use [New] to create a Bucket:
//
//	bucket, err := s3bucket.New(&s3bucket.Options{
//	    BaseURL:   "https://s3.example.com",
//	    Bucket:    "my-bucket",
//	    PathStyle: true,
//	    Credentials: sigv4.Options{
//	        AccessKeyID:     "my-key",
//	        SecretAccessKey: "my-secret",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := bucket.Get(ctx, "readme.txt")
//
// A Bucket holds no mutable state and is safe for concurrent use.
type Bucket struct {
	config Configuration
	signer Signer
}

// New validates opts and creates a Bucket. Configuration problems are
// reported as [*ValidationError]; a rejected credential bundle is reported
// by the signing client.
func New(opts *Options) (*Bucket, error) {
	cfg, err := NewConfiguration(opts)
	if err != nil {
		return nil, err
	}

	signer := opts.Signer
	if signer == nil {
		c, err := sigv4.New(opts.Credentials)
		if err != nil {
			return nil, fmt.Errorf("s3bucket: creating signer: %w", err)
		}
		signer = c
	}
	return &Bucket{config: cfg, signer: signer}, nil
}

// Config returns the bucket's configuration.
func (b *Bucket) Config() Configuration { return b.config }

// URLFor resolves key to the request URL used by the object operations.
func (b *Bucket) URLFor(key string) string { return b.config.URLFor(key) }

// Head sends a HEAD request for the object at key.
func (b *Bucket) Head(ctx context.Context, key string) (*http.Response, error) {
	return b.send(ctx, http.MethodHead, key, nil, nil)
}

// Get retrieves the object at key. The caller must close the response body.
func (b *Bucket) Get(ctx context.Context, key string) (*http.Response, error) {
	return b.send(ctx, http.MethodGet, key, nil, nil)
}

// Delete removes the object at key.
func (b *Bucket) Delete(ctx context.Context, key string) (*http.Response, error) {
	return b.send(ctx, http.MethodDelete, key, nil, nil)
}

// Put uploads payload to key. A nil payload uploads an empty object.
// Seekable payloads such as *os.File or *bytes.Reader are signed with their
// content hash and may be re-sent by the signer; the caller keeps ownership
// of them and must close files itself. Optional [RequestOption] values add
// headers; they cannot change the method or the body.
func (b *Bucket) Put(ctx context.Context, key string, payload io.Reader, opts ...RequestOption) (*http.Response, error) {
	return b.send(ctx, http.MethodPut, key, payload, opts)
}

// Presign returns a URL that grants method on key for the given duration
// without further credentials. The signer must implement [Presigner].
func (b *Bucket) Presign(ctx context.Context, method, key string, expires time.Duration) (string, error) {
	p, ok := b.signer.(Presigner)
	if !ok {
		return "", ErrPresignUnsupported
	}
	req, err := b.newRequest(ctx, method, key, nil, nil)
	if err != nil {
		return "", err
	}
	return p.Presign(ctx, req, expires)
}

func (b *Bucket) send(ctx context.Context, method, key string, payload io.Reader, opts []RequestOption) (*http.Response, error) {
	req, err := b.newRequest(ctx, method, key, payload, opts)
	if err != nil {
		return nil, err
	}
	return b.signer.Do(req)
}

func (b *Bucket) newRequest(ctx context.Context, method, key string, payload io.Reader, opts []RequestOption) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.config.URLFor(key), payload)
	if err != nil {
		return nil, &ValidationError{Field: "key", Message: fmt.Sprintf("cannot build %s request for %q", method, key), Err: err}
	}
	if err := makeReplayable(req, payload); err != nil {
		return nil, &ValidationError{Field: "payload", Message: "cannot measure payload", Err: err}
	}

	if len(opts) > 0 {
		ro := RequestOptions{Header: make(http.Header)}
		for _, opt := range opts {
			opt(&ro)
		}
		for k, vs := range ro.Header {
			req.Header.Del(k)
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	return req, nil
}

// makeReplayable gives requests with a seekable payload a GetBody so the
// signer can hash the payload and re-send it. Bodies that net/http already
// snapshots (bytes.Buffer, bytes.Reader, strings.Reader) are left alone, as
// are readers that only look seekable: an *os.File over a pipe or socket
// fails its first Seek and is streamed once.
func makeReplayable(req *http.Request, payload io.Reader) error {
	rs, ok := payload.(io.ReadSeeker)
	if !ok || req.GetBody != nil {
		return nil
	}

	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return err
	}

	req.ContentLength = end - start
	if req.ContentLength == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return nil
	}
	req.Body = io.NopCloser(rs)
	req.GetBody = func() (io.ReadCloser, error) {
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, err
		}
		return io.NopCloser(rs), nil
	}
	return nil
}
