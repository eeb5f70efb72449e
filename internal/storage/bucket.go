package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// ErrNotExist is returned when an object key has no object behind it.
var ErrNotExist = errors.New("object does not exist")

// ObjectAttrs is the metadata of a stored object.
type ObjectAttrs struct {
	Key         string    `json:"name"`
	Bucket      string    `json:"bucket"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Updated     time.Time `json:"updated"`
	ETag        string    `json:"etag,omitempty"`
}

// Bucket is the object storage the media services read from and write to.
type Bucket interface {
	Attrs(ctx context.Context, key string) (*ObjectAttrs, error)
	// Download streams the object into w and returns the bytes copied.
	Download(ctx context.Context, key string, w io.Writer) (int64, error)
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Exists reports whether key names a stored object.
func Exists(ctx context.Context, b Bucket, key string) (bool, error) {
	_, err := b.Attrs(ctx, key)
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// KeyFromURL turns a video location reference into an object key. It
// accepts gs:// and s3:// URIs, Firebase/GCS download URLs, plain https
// URLs whose path is the key, and bare keys.
func KeyFromURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty location reference")
	}
	if !strings.Contains(ref, "://") {
		return strings.TrimPrefix(ref, "/"), nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse location reference: %w", err)
	}

	var key string
	switch u.Scheme {
	case "gs", "s3":
		key = strings.TrimPrefix(u.Path, "/")
	case "http", "https":
		// Firebase download URLs carry the escaped key after /o/.
		if _, after, ok := strings.Cut(u.EscapedPath(), "/o/"); ok {
			key, err = url.PathUnescape(after)
			if err != nil {
				return "", fmt.Errorf("unescape object path: %w", err)
			}
			break
		}
		key = strings.TrimPrefix(u.Path, "/")
		if host, _, ok := strings.Cut(u.Host, "."); ok && host == "storage" {
			// storage.googleapis.com/<bucket>/<key>
			_, key, _ = strings.Cut(key, "/")
		}
	default:
		return "", fmt.Errorf("unsupported location scheme %q", u.Scheme)
	}

	if key == "" {
		return "", fmt.Errorf("location reference %q has no object path", ref)
	}
	return key, nil
}
