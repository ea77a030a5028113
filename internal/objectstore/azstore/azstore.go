// Package azstore implements objectstore.Store on top of Azure Blob
// Storage.
package azstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"catalogstore/internal/logging"
	"catalogstore/internal/objectstore"
)

// Store is an Azure Blob Storage backed objectstore.Store. Path segments
// are joined with "/" to form the blob name within a single container.
type Store struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// New creates a Store against the given container using the supplied
// credential (e.g. azidentity.NewDefaultAzureCredential).
func New(serviceURL, container string, cred azcore.TokenCredential, logger *slog.Logger) (*Store, error) {
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azstore: new client: %w", err)
	}
	return &Store{
		client:    client,
		container: container,
		logger:    logging.Default(logger).With("component", "azstore"),
	}, nil
}

// NewFromConnectionString creates a Store from a storage account connection
// string, for callers (such as a CLI backend registry) that would rather not
// resolve an azcore.TokenCredential themselves.
func NewFromConnectionString(connectionString, container string, logger *slog.Logger) (*Store, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("azstore: new client from connection string: %w", err)
	}
	return &Store{
		client:    client,
		container: container,
		logger:    logging.Default(logger).With("component", "azstore"),
	}, nil
}

func blobName(location objectstore.Path) string {
	return strings.Join(location, "/")
}

func (s *Store) Put(ctx context.Context, location objectstore.Path, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("azstore: read payload for %s: %w", location, err)
	}
	_, err = s.client.UploadBuffer(ctx, s.container, blobName(location), data, nil)
	if err != nil {
		return fmt.Errorf("azstore: upload %s: %w", location, err)
	}
	s.logger.Debug("put blob", "name", blobName(location), "bytes", len(data))
	return nil
}

func (s *Store) Get(ctx context.Context, location objectstore.Path) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, blobName(location), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, objectstore.ErrNotFound
		}
		return nil, fmt.Errorf("azstore: download %s: %w", location, err)
	}
	return resp.Body, nil
}

func (s *Store) Delete(ctx context.Context, location objectstore.Path) error {
	_, err := s.client.DeleteBlob(ctx, s.container, blobName(location), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return objectstore.ErrNotFound
		}
		return fmt.Errorf("azstore: delete %s: %w", location, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix objectstore.Path, fn func(objectstore.ObjectMeta) error) error {
	prefixStr := blobName(prefix)
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefixStr})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("azstore: list %s: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			var size int64
			if item.Properties != nil && item.Properties.ContentLength != nil {
				size = *item.Properties.ContentLength
			}
			loc := objectstore.Path(strings.Split(*item.Name, "/"))
			if err := fn(objectstore.ObjectMeta{Location: loc, Size: size}); err != nil {
				return err
			}
		}
	}
	return nil
}

