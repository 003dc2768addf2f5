package catalog

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"closetfit/internal/blob"
	"closetfit/internal/core"
	"closetfit/internal/infra/blob/memory"
	"closetfit/pkg/domain"
)

const seedYAML = `
items:
  - id: tee-01
    name: White tee
    category: Top
    processed_url: /uploads/processed/tee-01.png
  - id: cap-01
    name: Red cap
    category: hat
    tags: [summer]
  - id: cape-01
    category: cape
`

func TestImportSeedIntoSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	stats, err := Import(ctx, store, strings.NewReader(seedYAML), now)
	if err != nil || stats.Items != 3 || stats.Images != 0 {
		t.Fatalf("import: %+v %v", stats, err)
	}
	tee, err := store.FetchItem(ctx, "tee-01")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if tee.Category != domain.CategoryTop || !tee.UploadedAt.Equal(now) {
		t.Fatalf("unexpected tee %+v", tee)
	}
	cape, _ := store.FetchItem(ctx, "cape-01")
	if cape.Category != "cape" {
		t.Fatalf("unknown category should be kept verbatim, got %q", cape.Category)
	}
	hats, _ := store.FetchAllItems(ctx, core.Filter{Category: domain.CategoryHat})
	if len(hats) != 1 || hats[0].Tags[0] != "summer" {
		t.Fatalf("unexpected hats %+v", hats)
	}
}

func TestDecodeSeedRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"missing id":    "items:\n  - name: x\n",
		"duplicate id":  "items:\n  - id: a\n  - id: a\n",
		"unknown field": "items:\n  - id: a\n    colour: red\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeSeed(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	items, err := DecodeSeed(strings.NewReader(""))
	if err != nil || len(items) != 0 {
		t.Fatalf("empty document: %v %v", items, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mongo"}); err == nil {
		t.Fatalf("expected error")
	}
	s, err := Open(context.Background(), Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	_ = s.Close()
}

func TestImportUploadsDisplayImages(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tee-01.png"), []byte("png-bytes"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := Open(ctx, Config{Driver: string(DriverMemory)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	blobs := memory.New()
	images := blob.NewImages(blobs)

	stats, err := Import(ctx, store, strings.NewReader(seedYAML), time.Now(), WithImages(dir, images))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Items != 3 || stats.Images != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	rc, err := images.Open(ctx, "/uploads/processed/tee-01.png")
	if err != nil {
		t.Fatalf("uploaded image should be readable by the rasterizer source: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "png-bytes" {
		t.Fatalf("unexpected image body %q", body)
	}
	info, err := blobs.Head(ctx, "images/uploads/processed/tee-01.png")
	if err != nil || info.ContentType != "image/png" {
		t.Fatalf("unexpected blob info %+v %v", info, err)
	}
}

func TestImportFailsOnMissingImage(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{Driver: string(DriverMemory)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stats, err := Import(ctx, store, strings.NewReader(seedYAML), time.Now(), WithImages(t.TempDir(), blob.NewImages(memory.New())))
	if !errors.Is(err, fs.ErrNotExist) || !strings.Contains(err.Error(), "tee-01") {
		t.Fatalf("expected missing image error naming the item, got %v", err)
	}
	if stats.Items != 0 {
		t.Fatalf("nothing should be written before the failing item, got %+v", stats)
	}
}
