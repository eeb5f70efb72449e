package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
)

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"videos/abc.mp4", "videos/abc.mp4"},
		{"/videos/abc.mp4", "videos/abc.mp4"},
		{"gs://reelai.appspot.com/videos/abc.mp4", "videos/abc.mp4"},
		{"s3://media/videos/abc.mp4", "videos/abc.mp4"},
		{"https://firebasestorage.googleapis.com/v0/b/reelai.appspot.com/o/videos%2Fabc%20def.mp4?alt=media&token=t", "videos/abc def.mp4"},
		{"https://storage.googleapis.com/reelai.appspot.com/videos/abc.mp4", "videos/abc.mp4"},
		{"https://cdn.example.com/videos/abc.mp4?sig=1", "videos/abc.mp4"},
	}
	for _, tt := range tests {
		got, err := KeyFromURL(tt.ref)
		if err != nil {
			t.Fatalf("KeyFromURL(%q) error = %v", tt.ref, err)
		}
		if got != tt.want {
			t.Fatalf("KeyFromURL(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestKeyFromURLRejects(t *testing.T) {
	for _, ref := range []string{"", "   ", "ftp://host/file.mp4", "gs://bucket-only", "https://cdn.example.com/"} {
		if key, err := KeyFromURL(ref); err == nil {
			t.Fatalf("KeyFromURL(%q) = %q, want error", ref, key)
		}
	}
}

func TestDirBucketLifecycle(t *testing.T) {
	ctx := context.Background()
	b, err := NewDirBucket(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirBucket() error = %v", err)
	}

	if _, err := b.Attrs(ctx, "audio/v1.mp3"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Attrs(missing) error = %v, want ErrNotExist", err)
	}
	exists, err := Exists(ctx, b, "audio/v1.mp3")
	if err != nil || exists {
		t.Fatalf("Exists() = %v, %v", exists, err)
	}

	payload := []byte("ID3 fake mp3 payload")
	if err := b.Upload(ctx, "audio/v1.mp3", bytes.NewReader(payload), "audio/mpeg"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	attrs, err := b.Attrs(ctx, "audio/v1.mp3")
	if err != nil {
		t.Fatalf("Attrs() error = %v", err)
	}
	if attrs.Size != int64(len(payload)) || attrs.ContentType != "audio/mpeg" || attrs.ETag == "" {
		t.Fatalf("attrs = %+v", attrs)
	}

	var buf bytes.Buffer
	n, err := b.Download(ctx, "audio/v1.mp3", &buf)
	if err != nil || n != int64(len(payload)) || !bytes.Equal(buf.Bytes(), payload) {
		t.Fatalf("Download() = %d, %v, %q", n, err, buf.String())
	}

	u, err := b.SignedURL(ctx, "audio/v1.mp3", time.Hour)
	if err != nil || !strings.HasPrefix(u, "file://") {
		t.Fatalf("SignedURL() = %q, %v", u, err)
	}

	if err := b.Delete(ctx, "audio/v1.mp3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := b.Delete(ctx, "audio/v1.mp3"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := b.Download(ctx, "audio/v1.mp3", &buf); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Download(deleted) error = %v", err)
	}
}

func TestDirBucketRefusesTraversal(t *testing.T) {
	b, err := NewDirBucket(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Attrs(context.Background(), "../../etc/passwd"); !errors.Is(err, os.ErrPermission) {
		t.Fatalf("Attrs(traversal) error = %v", err)
	}
}

func TestIsS3NotFound(t *testing.T) {
	if !isS3NotFound(fmt.Errorf("op: %w", &smithy.GenericAPIError{Code: "NotFound"})) {
		t.Fatal("NotFound code should map to not found")
	}
	if isS3NotFound(&smithy.GenericAPIError{Code: "AccessDenied"}) {
		t.Fatal("AccessDenied is not a missing object")
	}
}
