package storageadapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of the AWS SDK's S3 surface the remote adapter
// drives; narrowed to ease substituting a fake in tests.
type S3Client interface {
	manager.UploadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 is the remote Storage Adapter variant: upload reads the local file
// fully and PUTs it to bucket/{prefix?}/{remote_key} via the SDK's managed
// uploader (transparent multipart for large assets); delete issues a
// DELETE; get_url derives the CDN/public URL without any network call.
type S3 struct {
	client    S3Client
	uploader  *manager.Uploader
	bucket    string
	prefix    string
	publicURL string
	logger    *slog.Logger
}

// Config bundles the credentials and endpoint shape a profile-agnostic
// bucket needs.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketPrefix    string
	PublicURL       string
	UsePathStyle    bool
}

// New constructs an S3-compatible remote adapter from static credentials,
// mirroring the setup pattern used for Cloudflare R2 and other S3-compatible
// backends: a static credentials provider plus an optional custom endpoint.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(orDefault(cfg.Region, "auto")),
	)
	if err != nil {
		return nil, fmt.Errorf("storageadapter: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.BucketPrefix, "/"),
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		logger:    logger,
	}, nil
}

// NewWithClient builds an S3 adapter around a pre-constructed client, used
// by tests to substitute a fake.
func NewWithClient(client S3Client, bucket, prefix, publicURL string) *S3 {
	return &S3{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (s *S3) objectKey(remoteKey string) string {
	key := filepath.ToSlash(remoteKey)
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3) Upload(ctx context.Context, localPath, remoteKey string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", &UploadError{RemoteKey: remoteKey, Err: err}
	}

	key := s.objectKey(remoteKey)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", &UploadError{RemoteKey: remoteKey, Err: err}
	}

	if s.logger != nil {
		s.logger.Debug("uploaded object", "key", key, "bytes", len(data))
	}
	return s.GetURL(remoteKey), nil
}

func (s *S3) Delete(ctx context.Context, remoteKey string) error {
	key := s.objectKey(remoteKey)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &DeleteError{RemoteKey: remoteKey, Err: err}
	}
	return nil
}

func (s *S3) GetURL(remoteKey string) string {
	return s.publicURL + "/" + s.objectKey(remoteKey)
}

func (s *S3) IsRemote() bool { return true }
