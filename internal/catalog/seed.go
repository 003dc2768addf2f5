package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"closetfit/pkg/domain"
)

// Seed is the YAML document accepted by Import.
//
//	items:
//	  - id: tee-01
//	    name: White tee
//	    category: top
//	    processed_url: /uploads/processed/tee-01.png
type Seed struct {
	Items []domain.Item `yaml:"items"`
}

// DecodeSeed parses and validates a seed document. Categories are normalized;
// an unrecognized category is kept verbatim since the slot router reports it
// at assignment time.
func DecodeSeed(r io.Reader) ([]domain.Item, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	seen := make(map[string]struct{}, len(seed.Items))
	var errs []error
	for i := range seed.Items {
		it := &seed.Items[i]
		it.ID = strings.TrimSpace(it.ID)
		if it.ID == "" {
			errs = append(errs, fmt.Errorf("item %d: id required", i))
			continue
		}
		if _, dup := seen[it.ID]; dup {
			errs = append(errs, fmt.Errorf("item %d: duplicate id %q", i, it.ID))
		}
		seen[it.ID] = struct{}{}
		if c, ok := domain.ParseCategory(string(it.Category)); ok {
			it.Category = c
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return seed.Items, nil
}

// ImageSink stores item images under their catalog reference.
type ImageSink interface {
	Put(ctx context.Context, ref string, r io.Reader, contentType string) (string, error)
}

// ImportOption adjusts Import.
type ImportOption func(*importOptions)

type importOptions struct {
	imageDir string
	images   ImageSink
}

// WithImages uploads each item's display image from dir into sink. The file
// is looked up by the base name of the item's processed_url, or original_url
// when no processed image exists.
func WithImages(dir string, sink ImageSink) ImportOption {
	return func(o *importOptions) {
		o.imageDir = dir
		o.images = sink
	}
}

// ImportStats counts what Import wrote.
type ImportStats struct {
	Items  int
	Images int
}

// Import writes every seed item into store. Items without an upload time get now.
func Import(ctx context.Context, store Store, r io.Reader, now time.Time, opts ...ImportOption) (ImportStats, error) {
	var cfg importOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	items, err := DecodeSeed(r)
	if err != nil {
		return ImportStats{}, err
	}
	var stats ImportStats
	for i, it := range items {
		if it.UploadedAt.IsZero() {
			it.UploadedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		if cfg.images != nil {
			uploaded, err := uploadImage(ctx, cfg, it)
			if err != nil {
				return stats, err
			}
			if uploaded {
				stats.Images++
			}
		}
		if err := store.Put(ctx, it); err != nil {
			return stats, err
		}
		stats.Items++
	}
	return stats, nil
}

func uploadImage(ctx context.Context, cfg importOptions, it domain.Item) (bool, error) {
	ref := it.ProcessedURL
	if ref == "" {
		ref = it.OriginalURL
	}
	if ref == "" {
		return false, nil
	}
	name := path.Base(ref)
	f, err := os.Open(filepath.Join(cfg.imageDir, name))
	if err != nil {
		return false, fmt.Errorf("item %s: image %s: %w", it.ID, name, err)
	}
	defer func() { _ = f.Close() }()
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := cfg.images.Put(ctx, ref, f, contentType); err != nil {
		return false, fmt.Errorf("item %s: upload image: %w", it.ID, err)
	}
	return true, nil
}
