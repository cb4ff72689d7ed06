package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/multierr"
)

// ErrUnsupportedPhoto is returned for content types the bucket does not
// accept.
var ErrUnsupportedPhoto = errors.New("unsupported photo type")

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// PhotoExtension maps a sniffed content type to the object suffix used
// for it.
func PhotoExtension(contentType string) (string, bool) {
	ext, ok := photoExtensions[contentType]
	return ext, ok
}

// PhotoPrefix is the key prefix every photo of a listing lives under.
func PhotoPrefix(listingID string) string {
	return "listings/" + listingID + "/"
}

// PhotoKey is the object key of the named photo of a listing. The name is
// reduced to its last path element so it cannot escape the prefix.
func PhotoKey(listingID, name string) string {
	return PhotoPrefix(listingID) + path.Base("/"+name)
}

// PhotoStore keeps listing photos in a MinIO bucket, one prefix per listing.
type PhotoStore struct {
	client *minio.Client
	bucket string
}

// MinioConfig describes how to reach the photo bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewPhotoStore(ctx context.Context, cfg MinioConfig) (*PhotoStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &PhotoStore{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores a photo of the listing under a fresh key and returns it.
func (s *PhotoStore) Upload(ctx context.Context, listingID string, data []byte, contentType string) (string, error) {
	ext, ok := PhotoExtension(contentType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPhoto, contentType)
	}
	key := PhotoKey(listingID, uuid.NewString()+ext)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
		UserMetadata: map[string]string{"listing-id": listingID},
	})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

// Download returns the photo bytes and their content type.
func (s *PhotoStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("minio get %s: %w", key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("minio stat %s: %w", key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("minio read %s: %w", key, err)
	}
	return data, info.ContentType, nil
}

// Remove deletes a single photo. Removing a missing key is not an error.
func (s *PhotoStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// RemoveListing deletes every object under the listing's prefix, including
// photos the listing document no longer references. Failures are
// collected rather than stopping the sweep.
func (s *PhotoStore) RemoveListing(ctx context.Context, listingID string) error {
	listed := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    PhotoPrefix(listingID),
		Recursive: true,
	})

	var listErr error
	objects := make(chan minio.ObjectInfo)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(objects)
		for obj := range listed {
			if obj.Err != nil {
				listErr = multierr.Append(listErr, fmt.Errorf("minio list %s: %w", listingID, obj.Err))
				continue
			}
			select {
			case objects <- obj:
			case <-ctx.Done():
				listErr = multierr.Append(listErr, ctx.Err())
				return
			}
		}
	}()

	var errs error
	for rmErr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = multierr.Append(errs, fmt.Errorf("minio remove %s: %w", rmErr.ObjectName, rmErr.Err))
	}
	<-done
	return multierr.Append(listErr, errs)
}
