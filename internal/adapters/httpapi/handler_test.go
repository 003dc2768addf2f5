package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"closetfit/internal/blob"
	"closetfit/internal/core"
	blobmemory "closetfit/internal/infra/blob/memory"
	"closetfit/internal/infra/blob/s3"
	"closetfit/internal/infra/catalog/memory"
	"closetfit/internal/metrics"
	"closetfit/internal/render"
	"closetfit/internal/session"
	"closetfit/pkg/domain"
)

var exportClock = core.ClockFunc(func() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
})

type fixture struct {
	srv     *httptest.Server
	reg     *session.Registry
	archive *blob.Archive
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func newFixture(t *testing.T, store blob.Store) *fixture {
	t.Helper()
	cat := memory.New(
		domain.Item{ID: "tee", Name: "Tee", Category: domain.CategoryTop, ProcessedURL: "/processed/tee.png", UploadedAt: time.Unix(200, 0)},
		domain.Item{ID: "jeans", Name: "Jeans", Category: domain.CategoryBottom, UploadedAt: time.Unix(100, 0)},
		domain.Item{ID: "cap", Name: "Cap", Category: domain.CategoryHat, UploadedAt: time.Unix(300, 0)},
		domain.Item{ID: "mystery", Name: "Mystery", Category: "cape"},
	)
	images := blob.NewImages(store)
	if _, err := images.Put(context.Background(), "/processed/tee.png", bytes.NewReader(pngBytes(t)), "image/png"); err != nil {
		t.Fatalf("seed image: %v", err)
	}
	archive := blob.NewArchive(store)

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	sessions := session.NewRegistry(cat,
		session.WithGauge(rec),
		session.WithComposerOptions(
			core.WithClock(exportClock),
			core.WithMetricsRecorder(rec),
			core.WithRasterizer(render.New(images)),
			core.WithArtifactStore(archive),
		),
	)
	h := NewHandler(sessions, cat)
	h.Exports = archive
	h.Metrics = metrics.Handler(reg)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(func() {
		srv.Close()
		sessions.CloseAll()
	})
	return &fixture{srv: srv, reg: sessions, archive: archive}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func (f *fixture) open(t *testing.T) string {
	t.Helper()
	status, body := f.do(t, http.MethodPost, "/api/v1/sessions", nil)
	if status != http.StatusCreated {
		t.Fatalf("open session: %d %v", status, body)
	}
	return body["id"].(string)
}

func flexibleIDs(t *testing.T, body map[string]any) []string {
	t.Helper()
	view := body["view"].(map[string]any)
	outfit := view["outfit"].(map[string]any)
	raw, _ := outfit["flexible"].([]any)
	ids := []string{}
	for _, e := range raw {
		ids = append(ids, e.(map[string]any)["id"].(string))
	}
	return ids
}

func TestHealth(t *testing.T) {
	f := newFixture(t, blobmemory.New())
	status, body := f.do(t, http.MethodGet, "/health", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response: %d %v", status, body)
	}
}

func TestComposeExportAndDownload(t *testing.T) {
	f := newFixture(t, blobmemory.New())
	id := f.open(t)
	base := "/api/v1/sessions/" + id

	for _, item := range []string{"tee", "cap"} {
		if status, body := f.do(t, http.MethodPost, base+"/items", map[string]string{"item_id": item}); status != http.StatusOK {
			t.Fatalf("add %s: %d %v", item, status, body)
		}
	}

	status, body := f.do(t, http.MethodGet, base+"/catalog?sort=oldest", nil)
	if status != http.StatusOK {
		t.Fatalf("catalog: %d %v", status, body)
	}
	badges := map[string]bool{}
	for _, raw := range body["items"].([]any) {
		e := raw.(map[string]any)
		badges[e["id"].(string)] = e["in_outfit"].(bool)
	}
	want := map[string]bool{"tee": true, "cap": true, "jeans": false, "mystery": false}
	if diff := cmp.Diff(want, badges); diff != "" {
		t.Fatalf("badges mismatch (-want +got):\n%s", diff)
	}

	status, body = f.do(t, http.MethodPost, base+"/export", nil)
	if status != http.StatusCreated {
		t.Fatalf("export: %d %v", status, body)
	}
	if body["file_name"] != "outfit-2024-03-09T14-05-07.png" {
		t.Fatalf("unexpected file name %v", body["file_name"])
	}
	url := body["url"].(string)

	resp, err := http.Get(f.srv.URL + url)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected download response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Fatalf("downloaded export is not a png: %v", err)
	}

	if status, _ := f.do(t, http.MethodPost, base+"/export", nil); status != http.StatusCreated {
		t.Fatalf("second export: %d", status)
	}
	status, body = f.do(t, http.MethodGet, "/api/v1/exports", nil)
	if status != http.StatusOK {
		t.Fatalf("list exports: %d %v", status, body)
	}
	var listed []string
	for _, raw := range body["exports"].([]any) {
		e := raw.(map[string]any)
		listed = append(listed, e["url"].(string))
		if e["content_type"] != "image/png" || e["size"].(float64) <= 0 {
			t.Fatalf("unexpected export entry %v", e)
		}
	}
	wantListed := []string{"/api/v1/exports/outfit-2024-03-09T14-05-07-1.png", "/api/v1/exports/outfit-2024-03-09T14-05-07.png"}
	if diff := cmp.Diff(wantListed, listed); diff != "" {
		t.Fatalf("exports mismatch (-want +got):\n%s", diff)
	}

	status, body = f.do(t, http.MethodGet, base+"/notifications", nil)
	if status != http.StatusOK {
		t.Fatalf("notifications: %d", status)
	}
	var msgs []string
	for _, raw := range body["notifications"].([]any) {
		msgs = append(msgs, raw.(map[string]any)["message"].(string))
	}
	wantMsgs := []string{"Added to outfit!", "Added to outfit!", "Outfit exported successfully!", "Outfit exported successfully!"}
	if diff := cmp.Diff(wantMsgs, msgs); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestPointerDragOverHTTP(t *testing.T) {
	f := newFixture(t, blobmemory.New())
	id := f.open(t)
	base := "/api/v1/sessions/" + id
	layout := core.Layout{Surface: core.Rect{Right: 400, Bottom: 600}}

	status, body := f.do(t, http.MethodPost, base+"/pointer/down", map[string]any{
		"source": "grid", "item_id": "jeans", "position": map[string]float64{"x": 900, "y": 10},
	})
	if status != http.StatusAccepted {
		t.Fatalf("pointer down: %d %v", status, body)
	}
	s, _ := f.reg.Get(id)
	if err := s.Settle(context.Background()); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if status, body = f.do(t, http.MethodPost, base+"/pointer/move", map[string]any{"position": map[string]float64{"x": 50, "y": 50}, "layout": layout}); status != http.StatusOK {
		t.Fatalf("move: %d %v", status, body)
	}
	drag := body["view"].(map[string]any)["drag"].(map[string]any)
	if drag["phase"] != "dragging" || drag["over_surface"] != true {
		t.Fatalf("expected dragging over surface, got %v", drag)
	}
	status, body = f.do(t, http.MethodPost, base+"/pointer/up", map[string]any{"position": map[string]float64{"x": 50, "y": 50}, "layout": layout})
	if status != http.StatusOK {
		t.Fatalf("up: %d %v", status, body)
	}
	if kind := body["drop"].(map[string]any)["kind"]; kind != "assign" {
		t.Fatalf("expected assign drop, got %v", kind)
	}
	outfit := body["view"].(map[string]any)["outfit"].(map[string]any)
	if outfit["bottom"].(map[string]any)["id"] != "jeans" {
		t.Fatalf("jeans should be in the bottom slot: %v", outfit)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, blobmemory.New())
	id := f.open(t)
	base := "/api/v1/sessions/" + id

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{"unknown session", http.MethodGet, "/api/v1/sessions/nope", nil, http.StatusNotFound, "session not found"},
		{"missing item", http.MethodPost, base + "/items", map[string]string{"item_id": "ghost"}, http.StatusNotFound, "Failed to add item"},
		{"unknown category", http.MethodPost, base + "/items", map[string]string{"item_id": "mystery"}, http.StatusUnprocessableEntity, "Unknown category: cape"},
		{"bad slot", http.MethodDelete, base + "/slots/flexible", nil, http.StatusBadRequest, "slot must be top, bottom or shoes"},
		{"bad index", http.MethodDelete, base + "/flexible/x", nil, http.StatusBadRequest, "index must be an integer"},
		{"stale index", http.MethodDelete, base + "/flexible/0", nil, http.StatusConflict, "That accessory is no longer in the outfit."},
		{"empty export", http.MethodPost, base + "/export", nil, http.StatusConflict, "Add some items to your outfit first!"},
		{"bad sort", http.MethodGet, base + "/catalog?sort=random", nil, http.StatusBadRequest, `unknown sort "random"`},
		{"bad source", http.MethodPost, base + "/pointer/down", map[string]string{"source": "sky"}, http.StatusBadRequest, `unknown drag source: "sky"`},
		{"missing export", http.MethodGet, "/api/v1/exports/outfit-none.png", nil, http.StatusNotFound, "export not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.do(t, tc.method, tc.path, tc.body)
			if status != tc.status || body["error"] != tc.msg {
				t.Fatalf("got %d %v, want %d %q", status, body["error"], tc.status, tc.msg)
			}
		})
	}
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t, blobmemory.New())
	id := f.open(t)
	base := "/api/v1/sessions/" + id
	f.do(t, http.MethodPost, base+"/items", map[string]string{"item_id": "tee"})
	f.do(t, http.MethodPost, base+"/items", map[string]string{"item_id": "cap"})

	status, body := f.do(t, http.MethodDelete, base+"/flexible/0", nil)
	if status != http.StatusOK || len(flexibleIDs(t, body)) != 0 {
		t.Fatalf("remove flexible: %d %v", status, body)
	}
	status, body = f.do(t, http.MethodDelete, base+"/slots/top", nil)
	if status != http.StatusOK {
		t.Fatalf("remove slot: %d %v", status, body)
	}
	if top := body["view"].(map[string]any)["outfit"].(map[string]any)["top"]; top != nil {
		t.Fatalf("top should be empty, got %v", top)
	}
	if status, _ = f.do(t, http.MethodPost, base+"/randomize", nil); status != http.StatusOK {
		t.Fatalf("randomize: %d", status)
	}
	status, body = f.do(t, http.MethodPost, base+"/clear", nil)
	if status != http.StatusOK {
		t.Fatalf("clear: %d", status)
	}
	if inUse := body["view"].(map[string]any)["in_use"].([]any); len(inUse) != 0 {
		t.Fatalf("in-use should be empty after clear: %v", inUse)
	}
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t, blobmemory.New())
	id := f.open(t)
	if status, _ := f.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	if status, _ := f.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 on second close, got %d", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, blobmemory.New())
	f.open(t)
	resp, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "closetfit_sessions_open 1") {
		t.Fatalf("expected open session gauge:\n%s", body)
	}
}

func TestDownloadRedirectsWhenSignable(t *testing.T) {
	store := s3.NewMock("outfits")
	f := newFixture(t, store)
	if _, err := f.archive.SaveExport(context.Background(), "outfit-a.png", pngBytes(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(f.srv.URL + "/api/v1/exports/outfit-a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.Contains(loc, "exports/outfit-a.png") {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		core.ErrSurfaceClosed:                       http.StatusGone,
		domain.CapacityError{Limit: 5}:              http.StatusConflict,
		domain.ErrEmptyCatalog:                      http.StatusConflict,
		domain.FetchError{Err: io.ErrUnexpectedEOF}: http.StatusBadGateway,
		domain.ExportError{Reason: "render"}:        http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
