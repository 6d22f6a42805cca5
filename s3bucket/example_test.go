package s3bucket_test

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/objectkit/s3bucket-go/s3bucket"
	"github.com/objectkit/s3bucket-go/sigv4"
)

func ExampleResolve() {
	fmt.Println(s3bucket.Resolve(s3bucket.VirtualHosted{}, "https://my-bucket.s3.amazonaws.com/", "/docs/read me.txt"))
	fmt.Println(s3bucket.Resolve(s3bucket.PathStyle{Bucket: "my-bucket"}, "https://s3.example.com", "file.bin"))
	// Output:
	// https://my-bucket.s3.amazonaws.com/docs/read%20me.txt
	// https://s3.example.com/my-bucket/file.bin
}

func ExampleBucket_Put() {
	bucket, err := s3bucket.New(&s3bucket.Options{
		BaseURL:   "http://localhost:9000",
		Bucket:    "my-bucket",
		PathStyle: true,
		Credentials: sigv4.Options{
			AccessKeyID:     "my-access-key",
			SecretAccessKey: "my-secret-key",
		},
	})
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return
	}

	resp, err := bucket.Put(context.Background(), "upload.txt",
		strings.NewReader("hello"),
		s3bucket.WithContentType("text/plain"),
	)
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Upload finished with status %d\n", resp.StatusCode)
}

func ExampleBucket_Get() {
	bucket, err := s3bucket.New(&s3bucket.Options{
		BaseURL: "https://my-bucket.s3.amazonaws.com",
		Credentials: sigv4.Options{
			AccessKeyID:     "my-access-key",
			SecretAccessKey: "my-secret-key",
			Region:          "us-east-1",
		},
	})
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return
	}

	resp, err := bucket.Get(context.Background(), "readme.txt")
	if err != nil {
		fmt.Printf("Download failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("%d: %s\n", resp.StatusCode, body)
}
