package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"closetfit/pkg/domain"
)

type fakeRaster struct {
	composer *Composer
	err      error
	calls    int
	seen     SurfaceDescriptor
	during   View
}

func (r *fakeRaster) RenderToImage(_ context.Context, s SurfaceDescriptor) ([]byte, error) {
	r.calls++
	r.seen = s
	if r.composer != nil {
		r.during = r.composer.View()
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png"), nil
}

type memArtifacts struct {
	saved map[string][]byte
	err   error
}

func (m *memArtifacts) SaveExport(_ context.Context, name string, img []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[name] = img
	return "exports/" + name, nil
}

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) })
}

func TestExportEmptyOutfitSkipsRasterizer(t *testing.T) {
	raster := &fakeRaster{}
	c, n := newTestComposer(t, WithRasterizer(raster))
	_, err := c.Export(context.Background())
	var exp domain.ExportError
	if !errors.As(err, &exp) || !errors.Is(err, domain.ErrEmptyOutfit) {
		t.Fatalf("expected empty-outfit ExportError, got %v", err)
	}
	if raster.calls != 0 {
		t.Fatalf("rasterizer called for empty outfit")
	}
	if diff := cmp.Diff([]string{"Add some items to your outfit first!"}, n.errors()); diff != "" {
		t.Fatalf("notifications (-want +got):\n%s", diff)
	}
}

func TestExportSuppressesAffordancesDuringRender(t *testing.T) {
	ctx := context.Background()
	raster := &fakeRaster{}
	store := &memArtifacts{}
	c, n := newTestComposer(t, WithRasterizer(raster), WithClock(fixedClock()), WithArtifactStore(store))
	raster.composer = c
	if err := c.Assign(ctx, itemPtr("t", domain.CategoryTop)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	seedFlexible(t, c, "A", "B", "C")

	res, err := c.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if raster.during.ShowControls {
		t.Fatalf("remove buttons visible during render")
	}
	if !c.View().ShowControls {
		t.Fatalf("affordances not restored")
	}
	if res.FileName != "outfit-2024-03-09T14-05-07.png" {
		t.Fatalf("unexpected file name %q", res.FileName)
	}
	if res.Location != "exports/outfit-2024-03-09T14-05-07.png" || !bytes.Equal(store.saved[res.FileName], []byte("png")) {
		t.Fatalf("export not stored: %+v", res)
	}

	s := raster.seen
	if s.ShowControls || s.Highlights || s.Background != "#ffffff" || s.Scale != 2 {
		t.Fatalf("unexpected surface flags %+v", s)
	}
	if s.Grid != (GridShape{Cols: 2, Rows: 2}) {
		t.Fatalf("unexpected grid %+v", s.Grid)
	}
	var order []string
	for _, img := range append(s.Fixed, s.Flexible...) {
		order = append(order, img.ItemID)
	}
	if diff := cmp.Diff([]string{"t", "A", "B", "C"}, order); diff != "" {
		t.Fatalf("surface order (-want +got):\n%s", diff)
	}
	last := n.notices[len(n.notices)-1]
	if last.msg != "Outfit exported successfully!" {
		t.Fatalf("unexpected notice %+v", last)
	}
}

func TestExportFailureRestoresAffordances(t *testing.T) {
	ctx := context.Background()
	raster := &fakeRaster{err: errBoom}
	var restoredBeforeNotify bool
	var c *Composer
	notifier := NotifierFunc(func(msg string, level NoticeLevel) {
		if level == NoticeError {
			restoredBeforeNotify = c.View().ShowControls
		}
	})
	c = NewComposer(WithRasterizer(raster), WithNotifier(notifier))
	if err := c.Assign(ctx, itemPtr("h", domain.CategoryHat)); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := c.Export(ctx)
	if err == nil || !strings.Contains(domain.UserMessage(err), "Failed to export outfit: boom") {
		t.Fatalf("unexpected error %v", err)
	}
	if !restoredBeforeNotify {
		t.Fatalf("affordances still suppressed when the failure was reported")
	}
	if diff := cmp.Diff([]string{"h"}, flexibleIDs(c.Outfit())); diff != "" {
		t.Fatalf("outfit changed by export (-want +got):\n%s", diff)
	}
}

func TestExportStoreFailure(t *testing.T) {
	ctx := context.Background()
	c, n := newTestComposer(t, WithRasterizer(&fakeRaster{}), WithArtifactStore(&memArtifacts{err: errBoom}))
	seedFlexible(t, c, "A")
	if _, err := c.Export(ctx); err == nil {
		t.Fatalf("expected store failure")
	}
	if diff := cmp.Diff([]string{"Failed to export outfit: store export: boom"}, n.errors()); diff != "" {
		t.Fatalf("notifications (-want +got):\n%s", diff)
	}
}
