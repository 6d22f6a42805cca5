// Package s3bucket performs object operations (HEAD, GET, PUT, DELETE)
// against a single bucket of an S3-compatible HTTP API.
//
// The package decides how an object key maps onto a request URL and hands
// the request to a [Signer], which authenticates it and performs the
// exchange. Responses are returned exactly as the signer produced them:
// status codes are not interpreted and bodies are not parsed.
//
// # Quick Start
//
//	import (
//	    "github.com/objectkit/s3bucket-go/s3bucket"
//	    "github.com/objectkit/s3bucket-go/sigv4"
//	)
//
//	bucket, err := s3bucket.New(&s3bucket.Options{
//	    BaseURL: "https://my-bucket.s3.amazonaws.com",
//	    Credentials: sigv4.Options{
//	        AccessKeyID:     "my-access-key",
//	        SecretAccessKey: "my-secret-key",
//	        Region:          "us-east-1",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Upload
//	resp, err := bucket.Put(ctx, "data.json",
//	    strings.NewReader(`{"hello":"world"}`),
//	    s3bucket.WithContentType("application/json"),
//	)
//
//	// Download
//	resp, err = bucket.Get(ctx, "data.json")
//	defer resp.Body.Close()
//
// # Addressing
//
// Two addressing styles are supported:
//
//	virtual-hosted (default)   https://my-bucket.s3.amazonaws.com/<key>
//	path-style (PathStyle)     https://s3.example.com/my-bucket/<key>
//
// Under virtual-hosted addressing the bucket must already be part of the
// base URL's host; Options.Bucket is only required for path-style
// addressing. Keys may be given with or without a leading slash, and base
// URLs with or without a trailing slash; both produce the same URL.
package s3bucket
