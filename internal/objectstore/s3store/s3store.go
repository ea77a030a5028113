// Package s3store implements objectstore.Store on top of Amazon S3.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"catalogstore/internal/logging"
	"catalogstore/internal/objectstore"
)

// Client is the subset of the S3 API the store depends on, satisfied by
// *s3.Client. Tests substitute a fake to avoid touching real AWS.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store is an S3-backed objectstore.Store. All objects live under a single
// bucket; Path segments are joined with "/" to form the S3 object key.
type Store struct {
	client Client
	bucket string
	logger *slog.Logger
}

// New creates a Store using ambient AWS credential resolution (environment,
// shared config, IMDS) via the default config loader.
func New(ctx context.Context, bucket string, logger *slog.Logger) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}
	return &Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		logger: logging.Default(logger).With("component", "s3store"),
	}, nil
}

// NewWithClient constructs a Store around a caller-supplied client, for
// testing against a fake or a non-default endpoint.
func NewWithClient(client Client, bucket string, logger *slog.Logger) *Store {
	return &Store{client: client, bucket: bucket, logger: logging.Default(logger).With("component", "s3store")}
}

func objectKey(location objectstore.Path) string {
	return strings.Join(location, "/")
}

func (s *Store) Put(ctx context.Context, location objectstore.Path, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("s3store: read payload for %s: %w", location, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(location)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3store: put %s: %w", location, err)
	}
	s.logger.Debug("put object", "key", objectKey(location), "bytes", len(data))
	return nil
}

func (s *Store) Get(ctx context.Context, location objectstore.Path) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(location)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, objectstore.ErrNotFound
		}
		return nil, fmt.Errorf("s3store: get %s: %w", location, err)
	}
	return out.Body, nil
}

// Delete removes the object at location. Deleting a missing key succeeds:
// S3 reports no error for it, so Delete never returns objectstore.ErrNotFound.
func (s *Store) Delete(ctx context.Context, location objectstore.Path) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(location)),
	})
	if err != nil {
		return fmt.Errorf("s3store: delete %s: %w", location, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix objectstore.Path, fn func(objectstore.ObjectMeta) error) error {
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(objectKey(prefix)),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("s3store: list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			loc := objectstore.Path(strings.Split(aws.ToString(obj.Key), "/"))
			if err := fn(objectstore.ObjectMeta{Location: loc, Size: aws.ToInt64(obj.Size)}); err != nil {
				return err
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		token = out.NextContinuationToken
	}
}
