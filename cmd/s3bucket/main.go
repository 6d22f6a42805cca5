package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/objectkit/s3bucket-go/internal/config"
	"github.com/objectkit/s3bucket-go/internal/metrics"
	"github.com/objectkit/s3bucket-go/s3bucket"
)

const usage = `usage: s3bucket [flags] <command> <key> [file]

commands:
  head      print the object's status and headers
  get       write the object to file, or stdout when file is omitted
  put       upload file, or stdin when file is omitted
  delete    remove the object
  presign   print a presigned GET URL for the object

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("s3bucket", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML); S3BUCKET_* variables override it")
	contentType := fs.String("content-type", "", "content type for put")
	expires := fs.Duration("expires", 15*time.Minute, "validity of presigned URLs")
	metricsFile := fs.String("metrics-file", "", "write request metrics to this file in Prometheus text format")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 2 || fs.NArg() > 3 {
		fs.Usage()
		return 2
	}
	command, key, file := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "s3bucket: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "s3bucket: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	opts, err := cfg.Options(ctx)
	if err != nil {
		logger.Error("load credentials", zap.Error(err))
		return 1
	}
	m := metrics.New()
	opts.Credentials.HTTPClient = &http.Client{Transport: m.RoundTripper(nil)}
	opts.Credentials.Logger = smithyLogger(logger)

	bucket, err := s3bucket.New(opts)
	if err != nil {
		logger.Error("invalid bucket configuration", zap.Error(err))
		return 1
	}

	code := execute(ctx, bucket, command, key, file, *contentType, *expires, stdin, stdout, logger)

	if *metricsFile != "" {
		if err := m.WriteTextfile(*metricsFile); err != nil {
			logger.Warn("write metrics", zap.String("file", *metricsFile), zap.Error(err))
		}
	}
	return code
}

func execute(ctx context.Context, bucket *s3bucket.Bucket, command, key, file, contentType string, expires time.Duration, stdin io.Reader, stdout io.Writer, logger *zap.Logger) int {
	logger = logger.With(zap.String("command", command), zap.String("url", bucket.URLFor(key)))

	var (
		resp *http.Response
		err  error
	)
	switch command {
	case "head":
		resp, err = bucket.Head(ctx, key)
	case "get":
		resp, err = bucket.Get(ctx, key)
	case "delete":
		resp, err = bucket.Delete(ctx, key)
	case "put":
		var opts []s3bucket.RequestOption
		if contentType != "" {
			opts = append(opts, s3bucket.WithContentType(contentType))
		}
		payload := stdin
		if file != "" {
			f, openErr := os.Open(file)
			if openErr != nil {
				logger.Error("open payload", zap.Error(openErr))
				return 1
			}
			defer f.Close()
			payload = f
		}
		resp, err = bucket.Put(ctx, key, payload, opts...)
	case "presign":
		u, presignErr := bucket.Presign(ctx, http.MethodGet, key, expires)
		if presignErr != nil {
			logger.Error("presign", zap.Error(presignErr))
			return 1
		}
		fmt.Fprintln(stdout, u)
		return 0
	default:
		logger.Error("unknown command")
		return 2
	}
	if err != nil {
		var verr *s3bucket.ValidationError
		if errors.As(err, &verr) {
			logger.Error("invalid request", zap.String("field", verr.Field), zap.Error(err))
		} else {
			logger.Error("request failed", zap.Error(err))
		}
		return 1
	}
	defer resp.Body.Close()

	logger.Debug("response", zap.Int("status", resp.StatusCode))

	switch command {
	case "head":
		printHead(stdout, key, resp)
	case "get":
		if resp.StatusCode < 300 {
			if err := writeBody(resp.Body, file, stdout); err != nil {
				logger.Error("write object", zap.Error(err))
				return 1
			}
		}
	}

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Error("unexpected status", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return 1
	}
	return 0
}

func printHead(w io.Writer, key string, resp *http.Response) {
	fmt.Fprintln(w, resp.Status)
	if resp.StatusCode >= 300 {
		return
	}
	info := s3bucket.ObjectInfoFromResponse(key, resp)
	fmt.Fprintf(w, "size: %d\n", info.Size)
	if info.ETag != "" {
		fmt.Fprintf(w, "etag: %s\n", info.ETag)
	}
	if info.ContentType != "" {
		fmt.Fprintf(w, "content-type: %s\n", info.ContentType)
	}
	if !info.LastModified.IsZero() {
		fmt.Fprintf(w, "last-modified: %s\n", info.LastModified.Format(time.RFC3339))
	}
	names := make([]string, 0, len(info.Metadata))
	for k := range info.Metadata {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "meta-%s: %s\n", k, info.Metadata[k])
	}
}

func writeBody(body io.Reader, file string, stdout io.Writer) error {
	if file == "" {
		_, err := io.Copy(stdout, body)
		return err
	}
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
