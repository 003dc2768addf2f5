package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"closetfit/internal/blob/core"
)

// ExportPrefix is the key prefix rendered outfits are stored under.
const ExportPrefix = "exports/"

// maxNameAttempts bounds the suffixes tried when an export name is taken.
const maxNameAttempts = 20

// Archive stores rendered outfit exports.
type Archive struct {
	store Store
}

// NewArchive wraps store.
func NewArchive(store Store) *Archive {
	return &Archive{store: store}
}

// SaveExport stores image under exports/name. Two exports in the same second
// share a timestamp name, so a taken name gets a numeric suffix.
func (a *Archive) SaveExport(ctx context.Context, name string, image []byte) (string, error) {
	base := strings.TrimSuffix(path.Base(name), ".png")
	for i := 0; i < maxNameAttempts; i++ {
		candidate := base + ".png"
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d.png", base, i)
		}
		key := ExportPrefix + candidate
		_, err := a.store.Put(ctx, key, bytes.NewReader(image), PutOptions{
			ContentType: "image/png",
			Metadata:    map[string]string{"kind": "outfit-export"},
		})
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, core.ErrExists) {
			return "", fmt.Errorf("store export %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("store export %s: %w", name, core.ErrExists)
}

// Open returns a stored export by file name.
func (a *Archive) Open(ctx context.Context, name string) (Info, io.ReadCloser, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Info{}, nil, fmt.Errorf("%w: %q", core.ErrNotFound, name)
	}
	return a.store.Get(ctx, ExportPrefix+name)
}

// List returns stored exports ordered by key.
func (a *Archive) List(ctx context.Context) ([]Info, error) {
	return a.store.List(ctx, ExportPrefix)
}

// SignedURL returns a direct download URL when the backend can sign one.
func (a *Archive) SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error) {
	return a.store.PresignURL(ctx, ExportPrefix+name, core.SignedURLOptions{Expiry: ttl})
}
