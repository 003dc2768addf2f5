package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"closetfit/internal/blob/core"
)

// ImagePrefix is the key prefix processed item images live under.
const ImagePrefix = "images/"

// Images resolves item image references to blobs.
type Images struct {
	store Store
}

// NewImages wraps store.
func NewImages(store Store) *Images {
	return &Images{store: store}
}

// Key maps an item image reference such as "/uploads/processed/a.png" or an
// absolute URL to its blob key under images/.
func Key(ref string) (string, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		ref = u.Path
	}
	clean := strings.TrimPrefix(path.Clean("/"+ref), "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("%w: empty image reference", core.ErrNotFound)
	}
	if strings.HasPrefix(clean, ImagePrefix) {
		return clean, nil
	}
	return ImagePrefix + clean, nil
}

// Open returns the image bytes for ref.
func (i *Images) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key, err := Key(ref)
	if err != nil {
		return nil, err
	}
	_, rc, err := i.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", ref, err)
	}
	return rc, nil
}

// Put stores an image for ref. catalog.Import uses it through catalog.ImageSink.
func (i *Images) Put(ctx context.Context, ref string, r io.Reader, contentType string) (string, error) {
	key, err := Key(ref)
	if err != nil {
		return "", err
	}
	// Blob stores are create-only; re-importing an item replaces its image.
	if _, err := i.store.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("replace image %s: %w", ref, err)
	}
	if _, err := i.store.Put(ctx, key, r, PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("store image %s: %w", ref, err)
	}
	return key, nil
}
