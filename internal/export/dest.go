package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Dest stores an exported file.
type Dest interface {
	Write(ctx context.Context, name string, data []byte) error
}

// LocalDir writes files into a directory.
type LocalDir struct{ Path string }

func (l LocalDir) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(l.Path, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.Path, name), data, 0o644)
}

// PutObjectAPI is the subset of the S3 client used by S3.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads files to a bucket.
type S3 struct {
	Bucket      string
	Prefix      string
	ContentType string
	Client      PutObjectAPI
}

// NewS3 returns an S3 destination using the default AWS configuration.
func NewS3(ctx context.Context, bucket, prefix string) (S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return S3{}, err
	}
	return S3{Bucket: bucket, Prefix: prefix, Client: s3.NewFromConfig(cfg)}, nil
}

func (s S3) Write(ctx context.Context, name string, data []byte) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(path.Join(s.Prefix, name)),
		Body:   bytes.NewReader(data),
	}
	if s.ContentType != "" {
		in.ContentType = aws.String(s.ContentType)
	}
	_, err := s.Client.PutObject(ctx, in)
	return err
}

// ParseDest maps s3://bucket/prefix to an S3 destination and anything else
// to a local directory.
func ParseDest(ctx context.Context, target string) (Dest, error) {
	if !strings.HasPrefix(target, "s3://") {
		if target == "" {
			target = "."
		}
		return LocalDir{Path: target}, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("s3 destination %q has no bucket", target)
	}
	return NewS3(ctx, u.Host, strings.Trim(u.Path, "/"))
}
