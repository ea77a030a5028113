package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"catalogstore/internal/objectstore"
)

// fakeClient is an in-memory stand-in for the AWS SDK client, scoped to the
// handful of calls Store makes.
type fakeClient struct {
	objects map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)
	var contents []types.Object
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			contents = append(contents, types.Object{Key: aws.String(key), Size: aws.Int64(int64(len(data)))})
		}
	}
	return &s3.ListObjectsV2Output{Contents: contents, IsTruncated: aws.Bool(false)}, nil
}

func TestPutGetDelete(t *testing.T) {
	client := newFakeClient()
	s := NewWithClient(client, "bucket", nil)
	ctx := context.Background()
	loc := objectstore.Path{"1", "db", "data", "p1", "42", "t.parquet"}

	if err := s.Put(ctx, loc, strings.NewReader("hi")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	r, err := s.Get(ctx, loc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(r)
	r.Close()
	if string(data) != "hi" {
		t.Errorf("got %q", data)
	}

	if err := s.Delete(ctx, loc); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, loc); !errors.Is(err, objectstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetMissingMapsToErrNotFound(t *testing.T) {
	s := NewWithClient(newFakeClient(), "bucket", nil)
	_, err := s.Get(context.Background(), objectstore.Path{"missing"})
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListUnderPrefix(t *testing.T) {
	client := newFakeClient()
	s := NewWithClient(client, "bucket", nil)
	ctx := context.Background()
	for _, p := range []objectstore.Path{
		{"1", "db", "data", "p1", "1", "t.parquet"},
		{"1", "db", "transactions", "1", "u.txn"},
	} {
		if err := s.Put(ctx, p, strings.NewReader("x")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	var count int
	err := s.List(ctx, objectstore.Path{"1", "db", "data"}, func(objectstore.ObjectMeta) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 object under data/, got %d", count)
	}
}
