package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirBucket stores objects as files under a root directory. It backs local
// development and tests.
type DirBucket struct {
	root string
}

func NewDirBucket(root string) (*DirBucket, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &DirBucket{root: abs}, nil
}

// resolve maps a key onto a path under root, refusing traversal.
func (b *DirBucket) resolve(key string) (string, error) {
	full := filepath.Join(b.root, filepath.FromSlash(key))
	if full != b.root && !strings.HasPrefix(full, b.root+string(os.PathSeparator)) {
		return "", os.ErrPermission
	}
	return full, nil
}

func (b *DirBucket) Attrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	path, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotExist
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if data, err := os.ReadFile(path + ".content-type"); err == nil {
		contentType = strings.TrimSpace(string(data))
	}
	attrs := &ObjectAttrs{
		Key:         key,
		Bucket:      filepath.Base(b.root),
		Size:        info.Size(),
		ContentType: contentType,
		Updated:     info.ModTime().UTC(),
	}
	if data, err := os.ReadFile(path + ".md5"); err == nil {
		attrs.ETag = string(data)
	}
	return attrs, nil
}

func (b *DirBucket) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	path, err := b.resolve(key)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNotExist
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

func (b *DirBucket) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	path, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// Write to a sibling temp file so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	hash := md5.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hash), r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	if contentType != "" {
		if err := os.WriteFile(path+".content-type", []byte(contentType), 0o644); err != nil {
			return err
		}
	}
	return os.WriteFile(path+".md5", []byte(hex.EncodeToString(hash.Sum(nil))), 0o644)
}

func (b *DirBucket) Delete(ctx context.Context, key string) error {
	path, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	os.Remove(path + ".content-type")
	os.Remove(path + ".md5")
	return nil
}

// SignedURL returns a file:// URL. Local objects need no signature.
func (b *DirBucket) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := b.Attrs(ctx, key); err != nil {
		return "", err
	}
	path, err := b.resolve(key)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	q := u.Query()
	q.Set("expires", fmt.Sprint(time.Now().Add(ttl).Unix()))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
