package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSBucket is a Bucket on Google Cloud Storage (the Firebase default bucket
// included). Credentials come from the application-default chain.
type GCSBucket struct {
	client *gcs.Client
	bucket string
}

func NewGCSBucket(ctx context.Context, bucket string) (*GCSBucket, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket name is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSBucket{client: client, bucket: bucket}, nil
}

func (b *GCSBucket) object(key string) *gcs.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(key)
}

func (b *GCSBucket) Attrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	attrs, err := b.object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("gcs attrs %s: %w", key, err)
	}
	return &ObjectAttrs{
		Key:         key,
		Bucket:      attrs.Bucket,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
		ETag:        attrs.Etag,
	}, nil
}

func (b *GCSBucket) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	r, err := b.object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return 0, ErrNotExist
	}
	if err != nil {
		return 0, fmt.Errorf("gcs read %s: %w", key, err)
	}
	defer r.Close()
	return io.Copy(w, r)
}

func (b *GCSBucket) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		// Cancelling before Close aborts the upload.
		cancel()
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	return nil
}

func (b *GCSBucket) Delete(ctx context.Context, key string) error {
	err := b.object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotExist
	}
	if err != nil {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

func (b *GCSBucket) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := b.client.Bucket(b.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("gcs sign %s: %w", key, err)
	}
	return u, nil
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}
