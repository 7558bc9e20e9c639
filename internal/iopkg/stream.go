package iopkg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3iface is the minimal subset of s3 client methods we use; allows test fakes.
type s3iface interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// newS3Client constructs an s3 client; overridden in tests.
var newS3Client = func(ctx context.Context) (s3iface, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// Open returns a ReadCloser and (if known) size for a file:// path, a bare
// local path, or an s3:// URI.
func Open(uri string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, 0, err
	}
	switch u.Scheme {
	case "file", "":
		p := strings.TrimPrefix(uri, "file://")
		f, err := os.Open(p)
		if err != nil {
			return nil, 0, err
		}
		var sz int64
		if st, err := f.Stat(); err == nil {
			sz = st.Size()
		}
		return f, sz, nil
	case "s3":
		ctx := context.Background()
		cl, err := newS3Client(ctx)
		if err != nil {
			return nil, 0, err
		}
		resp, err := cl.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(u.Host),
			Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
		})
		if err != nil {
			return nil, 0, err
		}
		var sz int64
		if resp.ContentLength != nil {
			sz = *resp.ContentLength
		}
		return resp.Body, sz, nil
	default:
		return nil, 0, errors.New("unsupported scheme: " + u.Scheme)
	}
}

// OpenReader is Open without the size.
func OpenReader(uri string) (io.ReadCloser, error) {
	rc, _, err := Open(uri)
	return rc, err
}

// CreateWriter creates a writer for file:// (or bare) paths and s3:// URIs.
// Local parent directories are created as needed. For s3 the payload is
// buffered in memory and uploaded when the closer runs.
func CreateWriter(uri string) (io.Writer, io.Closer, error) {
	if strings.HasPrefix(uri, "file://") || !strings.Contains(uri, "://") {
		p := strings.TrimPrefix(uri, "file://")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.Create(p)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, nil, err
	}
	if u.Scheme != "s3" {
		return nil, nil, errors.New("unsupported scheme for CreateWriter: " + u.Scheme)
	}
	buf := &bytes.Buffer{}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	done := false
	cl := closerFunc(func() error {
		if done {
			return nil
		}
		done = true
		ctx := context.Background()
		cl, err := newS3Client(ctx)
		if err != nil {
			return err
		}
		_, err = cl.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(buf.Bytes()),
		})
		return err
	})
	return buf, cl, nil
}

// Join appends name to a local directory or an s3:// prefix.
func Join(prefix, name string) string {
	if strings.HasPrefix(prefix, "s3://") {
		return strings.TrimSuffix(prefix, "/") + "/" + name
	}
	return filepath.Join(strings.TrimPrefix(prefix, "file://"), name)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
