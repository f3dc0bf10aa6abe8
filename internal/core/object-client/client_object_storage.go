package objectclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/markdave123-py/Shopvora/internal/config"
	"github.com/markdave123-py/Shopvora/internal/core"
)

// mediaCacheControl applies to every upload; keys are never reused.
const mediaCacheControl = "public, max-age=31536000, immutable"

// ErrForeignURL is returned for URLs that do not point into the bucket.
var ErrForeignURL = errors.New("url is not an object in the media bucket")

// S3Client stores admin-uploaded media (product shots, cover images).
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	region   string
	bucket   string
}

var _ core.ObjectClient = (*S3Client)(nil)

func NewS3Client(ctx context.Context, cfg *cfg.Config) (*S3Client, error) {
	switch {
	case cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "":
		return nil, fmt.Errorf("AWS credentials not set")
	case cfg.AwsRegion == "":
		return nil, fmt.Errorf("AWS_REGION not set")
	case cfg.BucketName == "":
		return nil, fmt.Errorf("S3 bucket name not set")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Client{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 2
		}),
		region: cfg.AwsRegion,
		bucket: cfg.BucketName,
	}, nil
}

// UploadFile stores the object and returns its public URL.
func (c *S3Client) UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := c.uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(key),
		Body:         data,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(mediaCacheControl),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %q: %w", key, err)
	}
	return PublicURL(c.bucket, c.region, key), nil
}

// DeleteFile removes the object at key. Deleting a missing key succeeds.
func (c *S3Client) DeleteFile(ctx context.Context, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

// PublicURL is the virtual-hosted style URL of an object.
func PublicURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// Key resolves one of this bucket's public URLs back to its object key.
func (c *S3Client) Key(publicURL string) (string, error) {
	return KeyFromURL(c.bucket, c.region, publicURL)
}

// KeyFromURL is the inverse of PublicURL.
func KeyFromURL(bucket, region, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host != fmt.Sprintf("%s.s3.%s.amazonaws.com", bucket, region) {
		return "", ErrForeignURL
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", ErrForeignURL
	}
	return key, nil
}
