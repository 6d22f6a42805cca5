package s3bucket

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const metadataPrefix = "X-Amz-Meta-"

// ObjectInfo describes an object as reported by the headers of a HEAD or GET
// response.
type ObjectInfo struct {
	// Key is the object key (path within the bucket).
	Key string

	// Size is the object size in bytes, or -1 when the server did not say.
	Size int64

	// LastModified is the timestamp when the object was last modified.
	LastModified time.Time

	// ETag is the entity tag (typically an MD5 hash of the object content).
	ETag string

	// VersionID is the object version (empty if versioning is disabled).
	VersionID string

	// ContentType is the MIME type of the object content.
	ContentType string

	// Metadata contains user-defined key-value metadata pairs, keyed by the
	// lower-cased name without the x-amz-meta- prefix.
	Metadata map[string]string
}

// ObjectInfoFromResponse decodes the object headers of resp. It does not
// look at the status code or the body; callers decide whether resp
// describes an object at all.
func ObjectInfoFromResponse(key string, resp *http.Response) ObjectInfo {
	info := ObjectInfo{
		Key:         key,
		Size:        resp.ContentLength,
		ETag:        resp.Header.Get("ETag"),
		VersionID:   resp.Header.Get("X-Amz-Version-Id"),
		ContentType: resp.Header.Get("Content-Type"),
	}

	// HEAD responses carry the length only in the header.
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.Size = n
		}
	}
	if v := resp.Header.Get("Last-Modified"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			info.LastModified = t
		}
	}

	for k, vs := range resp.Header {
		if len(vs) == 0 || !strings.HasPrefix(k, metadataPrefix) {
			continue
		}
		if info.Metadata == nil {
			info.Metadata = make(map[string]string)
		}
		info.Metadata[strings.ToLower(strings.TrimPrefix(k, metadataPrefix))] = vs[0]
	}
	return info
}
