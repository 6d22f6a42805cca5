package s3bucket

import (
	"net/http"
	"strings"
)

// RequestOptions holds caller-supplied additions to a request. Values set
// here replace any header of the same name on the outgoing request.
type RequestOptions struct {
	Header http.Header
}

// RequestOption configures optional parameters on a Put request.
type RequestOption func(*RequestOptions)

// WithHeader sets a single request header.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		o.Header.Set(key, value)
	}
}

// WithHeaders copies every value of h onto the request.
func WithHeaders(h http.Header) RequestOption {
	return func(o *RequestOptions) {
		for k, vs := range h {
			o.Header.Del(k)
			for _, v := range vs {
				o.Header.Add(k, v)
			}
		}
	}
}

// WithContentType sets the content type of the uploaded object.
func WithContentType(ct string) RequestOption {
	return WithHeader("Content-Type", ct)
}

// WithMetadata sets user-defined metadata, sent as x-amz-meta-* headers.
func WithMetadata(m map[string]string) RequestOption {
	return func(o *RequestOptions) {
		for k, v := range m {
			o.Header.Set(metadataPrefix+strings.ToLower(k), v)
		}
	}
}
