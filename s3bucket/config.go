package s3bucket

import (
	"net/url"
	"strings"

	"github.com/objectkit/s3bucket-go/sigv4"
)

// Options is the construction bundle accepted by [New] and
// [NewConfiguration].
type Options struct {
	// BaseURL is the storage endpoint: scheme, host and an optional path
	// prefix. It may be a string, a *url.URL or a url.URL. Under
	// virtual-hosted addressing the bucket is expected to be part of the
	// host, e.g. "https://my-bucket.s3.amazonaws.com".
	BaseURL any

	// Bucket is the bucket name. Required when PathStyle is true; ignored
	// otherwise.
	Bucket string

	// PathStyle selects path-style addressing (base/bucket/key) instead of
	// virtual-hosted addressing (base/key).
	PathStyle bool

	// Credentials is handed to the signing client unchanged. It is ignored
	// when Signer is set.
	Credentials sigv4.Options

	// Signer overrides the default signing client built from Credentials.
	Signer Signer
}

// Addressing selects how an object key maps onto a request URL. It is
// either [VirtualHosted] or [PathStyle].
type Addressing interface {
	resolve(base, encodedKey string) string
}

// VirtualHosted addressing assumes the bucket is already part of the base
// URL's host name.
type VirtualHosted struct{}

func (VirtualHosted) resolve(base, encodedKey string) string {
	return base + "/" + encodedKey
}

// PathStyle addressing places the bucket as the first path segment.
type PathStyle struct {
	Bucket string
}

func (p PathStyle) resolve(base, encodedKey string) string {
	return base + "/" + escapeSegment(p.Bucket) + "/" + encodedKey
}

// Configuration is a validated, immutable bucket configuration. The zero
// value is not usable; obtain one from [NewConfiguration].
type Configuration struct {
	base       string
	bucket     string
	addressing Addressing
}

// NewConfiguration validates opts and returns the resulting configuration.
// Every failure is a [*ValidationError].
func NewConfiguration(opts *Options) (Configuration, error) {
	if opts == nil {
		return Configuration{}, invalidArgument("options", "options object required")
	}

	base, err := normalizeBaseURL(opts.BaseURL)
	if err != nil {
		return Configuration{}, err
	}

	if opts.PathStyle {
		if opts.Bucket == "" {
			return Configuration{}, invalidArgument("bucket", "bucket required for path-style addressing")
		}
		return Configuration{base: base, bucket: opts.Bucket, addressing: PathStyle{Bucket: opts.Bucket}}, nil
	}
	return Configuration{base: base, bucket: opts.Bucket, addressing: VirtualHosted{}}, nil
}

// BaseURL returns the endpoint with trailing slashes removed.
func (c Configuration) BaseURL() string { return c.base }

// Bucket returns the configured bucket name, which may be empty under
// virtual-hosted addressing.
func (c Configuration) Bucket() string { return c.bucket }

// PathStyle reports whether path-style addressing is in use.
func (c Configuration) PathStyle() bool {
	_, ok := c.addressing.(PathStyle)
	return ok
}

// Addressing returns the addressing mode.
func (c Configuration) Addressing() Addressing { return c.addressing }

// URLFor resolves key to an absolute request URL.
func (c Configuration) URLFor(key string) string {
	return Resolve(c.addressing, c.base, key)
}

func normalizeBaseURL(v any) (string, error) {
	var raw string
	switch b := v.(type) {
	case nil:
		return "", invalidArgument("baseUrl", "baseUrl required")
	case string:
		if b == "" {
			return "", invalidArgument("baseUrl", "baseUrl required")
		}
		raw = b
	case *url.URL:
		if b == nil {
			return "", invalidArgument("baseUrl", "baseUrl required")
		}
		raw = b.String()
	case url.URL:
		if b == (url.URL{}) {
			return "", invalidArgument("baseUrl", "baseUrl required")
		}
		raw = b.String()
	default:
		return "", invalidArgument("baseUrl", "baseUrl must be string or URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &ValidationError{Field: "baseUrl", Message: "baseUrl must be an absolute URL", Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", invalidArgument("baseUrl", "baseUrl must be an absolute URL")
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return "", invalidArgument("baseUrl", "baseUrl must not contain a query or fragment")
	}
	return strings.TrimRight(raw, "/"), nil
}
