package library

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// putObjectAPI is the part of the S3 client the sink needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads photos to a bucket under Prefix.
type S3Sink struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Sink builds a sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, bucket, prefix string) (*S3Sink, error) {
	if bucket == "" {
		return nil, wrapSave("open s3", fmt.Errorf("bucket name must be set"))
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, wrapSave("load aws config", err)
	}
	return &S3Sink{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

func (s *S3Sink) key() string {
	return path.Join(s.prefix, newName())
}

func (s *S3Sink) Save(ctx context.Context, data []byte) (Location, error) {
	key := s.key()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return Location{}, wrapSave("upload", err)
	}
	return Location{Backend: "s3", Ref: "s3://" + s.bucket + "/" + key}, nil
}
