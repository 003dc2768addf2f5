package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"closetfit/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	md := map[string]string{"items": "a,b"}
	info, err := s.Put(ctx, "exports/one.png", strings.NewReader("img"), core.PutOptions{ContentType: "image/png", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["items"] = "mutated"
	if info.Size != 3 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "exports/one.png", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "exports/one.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "img" || got.Metadata["items"] != "a,b" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}

	_, _ = s.Put(ctx, "images/x.png", strings.NewReader("y"), core.PutOptions{})
	list, _ := s.List(ctx, "exports/")
	if len(list) != 1 || list[0].Key != "exports/one.png" {
		t.Fatalf("unexpected list %+v", list)
	}

	if ok, _ := s.Delete(ctx, "exports/one.png"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if _, err := s.Head(ctx, "exports/one.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.PresignURL(ctx, "images/x.png", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
