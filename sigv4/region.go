package sigv4

import (
	"regexp"
	"strings"
)

// Matches s3.<region>.amazonaws.com, s3-<region>.amazonaws.com and the
// virtual-hosted and dualstack forms of both.
var awsHostRegion = regexp.MustCompile(`(?:^|\.)s3[.-](?:dualstack\.)?([a-z0-9-]+)\.amazonaws\.com(?:\.cn)?$`)

// GuessRegion infers the signing region from an endpoint host name (without
// port). It returns the empty string when the host carries no region.
func GuessRegion(host string) string {
	host = strings.ToLower(host)

	if strings.HasSuffix(host, ".r2.cloudflarestorage.com") {
		return "auto"
	}

	m := awsHostRegion.FindStringSubmatch(host)
	if m == nil {
		return ""
	}
	switch m[1] {
	case "external-1", "accelerate":
		return DefaultRegion
	}
	return m[1]
}
