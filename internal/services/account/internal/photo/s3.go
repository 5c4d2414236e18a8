package photo

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 keeps photos as objects in a bucket of an S3 compatible store. References are
// publicBase joined with the object key.
type S3 struct {
	client     objectAPI
	bucket     string
	prefix     string
	publicBase *url.URL
}

type S3Config struct {
	Client     objectAPI
	Bucket     string
	Prefix     string
	PublicBase *url.URL
}

func NewS3(cfg S3Config) *S3 {
	if cfg.Client == nil {
		panic("s3 client is required")
	}

	if cfg.PublicBase == nil {
		panic("public base url is required")
	}

	return &S3{
		client:     cfg.Client,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		publicBase: cfg.PublicBase,
	}
}

type S3ClientConfig struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// NewS3Client creates a client for AWS or an S3 compatible endpoint such as MinIO.
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func (s *S3) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.publicBase.JoinPath(key).String(), nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	key, ok := s.keyOf(ref)
	if !ok {
		return fmt.Errorf("foreign photo reference %q", ref)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

func (s *S3) Owns(ref string) bool {
	_, ok := s.keyOf(ref)
	return ok
}

func (s *S3) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3) keyOf(ref string) (string, bool) {
	base := strings.TrimSuffix(s.publicBase.String(), "/") + "/"
	key, ok := strings.CutPrefix(ref, base)
	if !ok || key == "" {
		return "", false
	}
	if s.prefix != "" && !strings.HasPrefix(key, s.prefix+"/") {
		return "", false
	}
	return key, true
}
