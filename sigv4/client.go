// Package sigv4 is the signing client used by s3bucket. It signs outbound
// requests with AWS Signature Version 4 for the s3 service, performs the
// HTTP exchange and re-sends throttled or failed requests with jittered
// exponential backoff.
package sigv4

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	serviceName = "s3"

	// EmptyPayloadHash is the hex SHA-256 of an empty body.
	EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	// UnsignedPayload is sent in place of a hash when the body cannot be
	// read ahead of the request.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	headerContentSHA256 = "X-Amz-Content-Sha256"
	headerInvocationID  = "Amz-Sdk-Invocation-Id"
	headerAttempt       = "Amz-Sdk-Request"

	// Caps the backoff exponent so the delay bound cannot overflow.
	maxBackoffShift = 20
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Client signs and sends requests to an S3-compatible endpoint. It is safe
// for concurrent use.
type Client struct {
	creds     aws.CredentialsProvider
	signer    *v4.Signer
	http      *http.Client
	logger    logging.Logger
	region    string
	retries   int
	initRetry time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a signing client from opts.
func New(opts Options) (*Client, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("sigv4: invalid options: %w", err)
	}

	var provider aws.CredentialsProvider = opts.Provider
	if provider == nil {
		provider = credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
	}
	if !opts.DisableCache {
		if _, cached := provider.(*aws.CredentialsCache); !cached {
			provider = aws.NewCredentialsCache(provider)
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop{}
	}

	return &Client{
		creds: provider,
		signer: v4.NewSigner(func(o *v4.SignerOptions) {
			// Paths arrive already percent-encoded per segment.
			o.DisableURIPathEscaping = true
			o.Logger = logger
		}),
		http:      httpClient,
		logger:    logger,
		region:    opts.Region,
		retries:   opts.retries(),
		initRetry: opts.initRetry(),
		now:       time.Now,
		sleep:     sleepContext,
	}, nil
}

// Do signs req and sends it, re-sending on 5xx and 429 responses up to the
// configured retry limit. Transport errors are returned as-is and are not
// retried. A request whose body cannot be replayed through GetBody is sent
// exactly once. The final response is returned without inspecting its body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("sigv4: retrieve credentials: %w", err)
	}

	payloadHash, replayable, err := hashPayload(req)
	if err != nil {
		return nil, err
	}

	maxRetries := c.retries
	if !replayable {
		maxRetries = 0
	}
	invocationID := uuid.NewString()
	region := c.regionFor(req)

	for attempt := 0; ; attempt++ {
		r, err := cloneForAttempt(ctx, req)
		if err != nil {
			return nil, err
		}
		r.Header.Set(headerContentSHA256, payloadHash)
		r.Header.Set(headerInvocationID, invocationID)
		r.Header.Set(headerAttempt, "attempt="+strconv.Itoa(attempt+1)+"; max="+strconv.Itoa(maxRetries+1))

		if err := c.signer.SignHTTP(ctx, creds, r, payloadHash, serviceName, region, c.now().UTC()); err != nil {
			return nil, fmt.Errorf("sigv4: sign %s %s: %w", r.Method, r.URL.Redacted(), err)
		}

		resp, err := c.http.Do(r)
		if err != nil || attempt >= maxRetries || !retryableStatus(resp.StatusCode) {
			return resp, err
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		delay := c.backoff(attempt)
		c.logger.Logf(logging.Debug, "sigv4: %s %s returned %d, retrying in %s (attempt %d of %d)",
			r.Method, r.URL.Redacted(), resp.StatusCode, delay, attempt+1, maxRetries)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// Presign returns a query-signed URL for req that stays valid for expires,
// which must be at least one second. The request body is not part of the
// signature.
func (c *Client) Presign(ctx context.Context, req *http.Request, expires time.Duration) (string, error) {
	if expires < time.Second {
		return "", fmt.Errorf("sigv4: presign expiry %s is shorter than 1s", expires)
	}
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("sigv4: retrieve credentials: %w", err)
	}

	r := req.Clone(ctx)
	q := r.URL.Query()
	q.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	r.URL.RawQuery = q.Encode()

	signed, _, err := c.signer.PresignHTTP(ctx, creds, r, UnsignedPayload, serviceName, c.regionFor(r), c.now().UTC())
	if err != nil {
		return "", fmt.Errorf("sigv4: presign %s %s: %w", r.Method, r.URL.Redacted(), err)
	}
	return signed, nil
}

func (c *Client) regionFor(req *http.Request) string {
	if c.region != "" {
		return c.region
	}
	if guessed := GuessRegion(req.URL.Hostname()); guessed != "" {
		return guessed
	}
	return DefaultRegion
}

// backoff picks a uniformly random delay in [0, initRetry*2^attempt).
func (c *Client) backoff(attempt int) time.Duration {
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	bound := int64(c.initRetry) << attempt
	if bound <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(bound))
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// hashPayload returns the payload hash to sign and whether the body can be
// sent more than once.
func hashPayload(req *http.Request) (string, bool, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return EmptyPayloadHash, true, nil
	}
	if req.GetBody == nil {
		return UnsignedPayload, false, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return "", false, fmt.Errorf("sigv4: read payload: %w", err)
	}
	defer body.Close()

	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", false, fmt.Errorf("sigv4: hash payload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), true, nil
}

// cloneForAttempt copies req with a fresh body so that every attempt, the
// first included, starts reading the payload from the beginning.
func cloneForAttempt(ctx context.Context, req *http.Request) (*http.Request, error) {
	r := req.Clone(ctx)
	if req.GetBody != nil && req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("sigv4: rewind payload: %w", err)
		}
		r.Body = body
	}
	return r, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
