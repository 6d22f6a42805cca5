package s3bucket

import (
	"strings"

	"github.com/aws/smithy-go/encoding/httpbinding"
)

// Resolve maps an object key onto an absolute URL under the given
// addressing mode. Trailing slashes on base and a single leading slash on
// key are ignored, so "key" and "/key" resolve identically. Each
// slash-separated segment of the key is percent-encoded, leaving only the
// unreserved characters A-Z a-z 0-9 - . _ ~ as-is; the separators are kept.
// This is the form S3 servers rebuild when they verify a signature. An
// empty key addresses the bucket root.
func Resolve(a Addressing, base, key string) string {
	if a == nil {
		a = VirtualHosted{}
	}
	base = strings.TrimRight(base, "/")
	key = strings.TrimPrefix(key, "/")
	return a.resolve(base, encodeKey(key))
}

func encodeKey(key string) string {
	if key == "" {
		return ""
	}
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = escapeSegment(s)
	}
	return strings.Join(segments, "/")
}

func escapeSegment(s string) string {
	return httpbinding.EscapePath(s, true)
}
