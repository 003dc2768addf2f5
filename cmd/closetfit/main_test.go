package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"closetfit/pkg/domain"
)

const seedYAML = `items:
  - id: tee
    name: White tee
    category: top
  - id: jeans
    name: Blue jeans
    category: Bottom
  - id: cap
    name: Cap
    category: hat
  - id: scarf
    name: Scarf
    category: accessory
`

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLOSETFIT_CONFIG", "")
	t.Setenv("CLOSETFIT_LOG_LEVEL", "error")
	t.Setenv("CLOSETFIT_STORAGE_DRIVER", "sqlite")
	t.Setenv("CLOSETFIT_SQLITE_PATH", filepath.Join(dir, "catalog.db"))
	t.Setenv("CLOSETFIT_BLOB_DRIVER", "fs")
	t.Setenv("CLOSETFIT_BLOB_FS_ROOT", filepath.Join(dir, "blobs"))
	rootFlags.configPath = ""
	catalogImportFlags.images = ""
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func seedCatalog(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	out, _, err := execute(t, "catalog", "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 4 items into sqlite catalog") {
		t.Fatalf("unexpected import output %q", out)
	}
}

func TestCatalogImportAndList(t *testing.T) {
	dir := isolate(t)
	seedCatalog(t, dir)

	out, _, err := execute(t, "catalog", "list", "--sort", "name", "--category", "", "--search", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header plus 4 rows, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "jeans") || !strings.HasPrefix(lines[4], "tee") {
		t.Fatalf("expected name order, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "bottom") {
		t.Fatalf("category should be normalized: %q", lines[1])
	}
}

func TestRandomizePrintsOutfit(t *testing.T) {
	dir := isolate(t)
	seedCatalog(t, dir)

	out, _, err := execute(t, "randomize", "--seed", "7")
	if err != nil {
		t.Fatalf("randomize: %v", err)
	}
	var o domain.Outfit
	if err := json.Unmarshal([]byte(out), &o); err != nil {
		t.Fatalf("decode outfit: %v\n%s", err, out)
	}
	if o.Top == nil || o.Top.ID != "tee" || o.Bottom == nil || o.Shoes != nil {
		t.Fatalf("unexpected outfit %+v", o)
	}
	if len(o.Flexible) != 2 {
		t.Fatalf("expected hat and accessory, got %d", len(o.Flexible))
	}
}

func TestRandomizeEmptyCatalog(t *testing.T) {
	isolate(t)
	_, stderr, err := execute(t, "randomize", "--seed", "1")
	if err == nil || err.Error() != "No items available to randomize!" {
		t.Fatalf("expected empty catalog error, got %v", err)
	}
	if !strings.Contains(stderr, "[error] No items available to randomize!") {
		t.Fatalf("expected toast on stderr, got %q", stderr)
	}
}

func TestExportWritesPNG(t *testing.T) {
	dir := isolate(t)
	seedCatalog(t, dir)
	outPath := filepath.Join(dir, "look.png")

	out, stderr, err := execute(t, "export", "--items", "tee,cap", "--out", outPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "exports/outfit-") {
		t.Fatalf("expected stored location, got %q", out)
	}
	if !strings.Contains(stderr, "Outfit exported successfully!") {
		t.Fatalf("expected success toast, got %q", stderr)
	}
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("export is not a png: %v", err)
	}
	stored, err := filepath.Glob(filepath.Join(dir, "blobs", "exports", "outfit-*.png"))
	if err != nil || len(stored) != 1 {
		t.Fatalf("expected one stored export, got %v %v", stored, err)
	}
}

func TestExportUnknownItem(t *testing.T) {
	dir := isolate(t)
	seedCatalog(t, dir)
	_, _, err := execute(t, "export", "--items", "ghost", "--out", "")
	if err == nil || err.Error() != "ghost: Failed to add item" {
		t.Fatalf("expected add failure, got %v", err)
	}
}

func TestCatalogImportUploadsImagesAndDelete(t *testing.T) {
	dir := isolate(t)
	imgDir := filepath.Join(dir, "img")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(imgDir, "tee.png"), []byte("not really a png"), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	seed := "items:\n  - id: tee\n    category: top\n    processed_url: /uploads/processed/tee.png\n  - id: cap\n    category: hat\n"
	seedPath := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(seed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	out, _, err := execute(t, "catalog", "import", "--images", imgDir, seedPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 2 items") || !strings.Contains(out, "Uploaded 1 images to fs blob store") {
		t.Fatalf("unexpected import output %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "blobs", "images", "uploads", "processed", "tee.png")); err != nil {
		t.Fatalf("image should land under the blob root: %v", err)
	}

	out, _, err = execute(t, "catalog", "delete", "tee", "ghost")
	if !errors.Is(err, domain.ErrItemNotFound) || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected not-found error for ghost, got %v", err)
	}
	if !strings.Contains(out, "Deleted tee") {
		t.Fatalf("unexpected delete output %q", out)
	}
	out, _, err = execute(t, "catalog", "list", "--sort", "name", "--category", "", "--search", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out, "tee") || !strings.Contains(out, "cap") {
		t.Fatalf("tee should be gone:\n%s", out)
	}
}
