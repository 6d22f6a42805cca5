package sigv4

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go/logging"
)

const (
	// DefaultRetries is the number of re-sends attempted after a retryable
	// response when Options.Retries is nil.
	DefaultRetries = 10

	// DefaultInitRetry is the upper bound of the first retry delay.
	DefaultInitRetry = 50 * time.Millisecond

	// DefaultRegion is used when no region is configured and none can be
	// guessed from the request host.
	DefaultRegion = "us-east-1"
)

// Options holds the credentials and transport tuning for a [Client]. The
// s3bucket package passes it through verbatim; only this package looks
// inside.
type Options struct {
	// AccessKeyID is the S3 access key ID. Required unless Provider is set.
	AccessKeyID string `validate:"required_without=Provider"`

	// SecretAccessKey is the S3 secret access key. Required unless Provider is set.
	SecretAccessKey string `validate:"required_without=Provider"`

	// SessionToken is the optional token for temporary credentials. When set
	// it is sent as X-Amz-Security-Token.
	SessionToken string

	// Region is the signing region. When empty the region is guessed from
	// the request host, falling back to DefaultRegion.
	Region string

	// Provider supplies credentials instead of the static keys above.
	Provider aws.CredentialsProvider

	// DisableCache turns off the credentials cache wrapped around the
	// provider. The cache avoids re-resolving credentials on every request.
	DisableCache bool

	// Retries is the maximum number of re-sends after a 5xx or 429 response.
	// Nil means DefaultRetries; a pointer to zero disables retrying.
	Retries *int `validate:"omitempty,gte=0"`

	// InitRetry bounds the first retry delay; each further attempt doubles
	// the bound. Zero means DefaultInitRetry.
	InitRetry time.Duration `validate:"gte=0"`

	// HTTPClient performs the exchange. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives retry diagnostics. Defaults to logging.Nop{}.
	Logger logging.Logger
}

// Retries returns a pointer to n, for use with Options.Retries.
func Retries(n int) *int {
	return &n
}

func (o Options) retries() int {
	if o.Retries == nil {
		return DefaultRetries
	}
	return *o.Retries
}

func (o Options) initRetry() time.Duration {
	if o.InitRetry <= 0 {
		return DefaultInitRetry
	}
	return o.InitRetry
}
