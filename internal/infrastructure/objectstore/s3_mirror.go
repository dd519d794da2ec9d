package objectstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"image-pipeline/internal/domain"
)

const immutableCacheControl = "public, max-age=31536000, immutable"

// s3API is the subset of the S3 client the mirror uses.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3MirrorConfig holds configuration for S3Mirror.
type S3MirrorConfig struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack)
	Prefix   string
}

// S3Mirror uploads variants to a bucket under the same
// {format}/{hash}_{suffix}.{format} layout used on disk.
// Implements domain.VariantMirror.
type S3Mirror struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Mirror creates a mirror using the default AWS credential chain.
func NewS3Mirror(ctx context.Context, cfg S3MirrorConfig) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 mirror: bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Mirror(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Mirror(client s3API, bucket, prefix string) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key returns the object key for a variant.
func (m *S3Mirror) Key(v domain.Variant) string {
	name := path.Base(v.URL)
	if m.prefix == "" {
		return path.Join(string(v.Format), name)
	}
	return path.Join(m.prefix, string(v.Format), name)
}

// Mirror uploads the file at localPath unless the key already exists.
func (m *S3Mirror) Mirror(ctx context.Context, v domain.Variant, localPath string) error {
	key := m.Key(v)

	// Variant files are content addressed, so an existing key holds the same bytes.
	if _, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}); err == nil {
		return nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open variant: %w", err)
	}
	defer f.Close()

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(v.ByteSize),
		ContentType:   aws.String(ContentType(v.Format)),
		CacheControl:  aws.String(immutableCacheControl),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed for %s: %w", key, err)
	}
	return nil
}

// ContentType returns the MIME type of a variant format.
func ContentType(format domain.Format) string {
	switch format {
	case domain.FormatWebP:
		return "image/webp"
	case domain.FormatJPEG:
		return "image/jpeg"
	case domain.FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
