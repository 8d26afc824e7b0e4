package keyexchange

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxKeyObjectSize bounds how much of the S3 object is read.
const maxKeyObjectSize = 64 << 10

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3GetObjectAPI is the part of *s3.Client the S3 source needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Settings describe an S3-compatible endpoint (MinIO in development).
type S3Settings struct {
	User         string
	Password     string
	Region       string
	BaseEndpoint string
}

// NewS3Client builds a path-style client with static credentials.
func NewS3Client(ctx context.Context, st S3Settings) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(st.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(st.User, st.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if st.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(st.BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Source reads the PEM private key from an object, so several server
// replicas share one keypair.
type S3Source struct {
	Client S3GetObjectAPI
	Bucket string
	Key    string
}

func (s S3Source) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	if s.Client == nil {
		return nil, errors.New("s3 client is not configured")
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxKeyObjectSize))
	if err != nil {
		return nil, fmt.Errorf("read key object: %w", err)
	}
	return ParsePrivateKeyPEM(b)
}
