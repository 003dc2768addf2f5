// Package render rasterizes a composition surface into a PNG.
//
// The canvas has a fixed column for top, bottom and shoes on the left and the
// flexible grid on the right. All dimensions are multiplied by the surface
// scale factor.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // decoder registration
	_ "image/jpeg" // decoder registration
	"image/png"
	"io"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"closetfit/internal/core"
	"closetfit/pkg/domain"
)

// ImageSource opens item images by reference.
type ImageSource interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Layout constants in unscaled pixels.
const (
	unit    = 100
	gap     = 10
	slotPx  = 2 * unit
	panelPx = 2 * unit
)

var fixedOrder = []domain.SlotKey{domain.SlotTop, domain.SlotBottom, domain.SlotShoes}

// Rasterizer implements core.Rasterizer.
type Rasterizer struct {
	images      ImageSource
	logger      core.Logger
	placeholder color.Color
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithLogger reports images that could not be drawn.
func WithLogger(l core.Logger) Option {
	return func(r *Rasterizer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a rasterizer loading item images from images.
func New(images ImageSource, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		images:      images,
		logger:      discard{},
		placeholder: color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Canvas returns the output size for s.
func Canvas(s core.SurfaceDescriptor) image.Rectangle {
	scale := max(s.Scale, 1)
	w := gap + slotPx + gap
	if len(s.Flexible) > 0 {
		w += panelPx + gap
	}
	h := gap + len(fixedOrder)*(slotPx+gap)
	return image.Rect(0, 0, w*scale, h*scale)
}

// cells returns the destination rectangle of every entry in s, fixed slots
// first and then flexible entries in order.
func cells(s core.SurfaceDescriptor) []image.Rectangle {
	scale := max(s.Scale, 1)
	px := func(v int) int { return v * scale }

	var out []image.Rectangle
	for _, img := range s.Fixed {
		row := 0
		for i, k := range fixedOrder {
			if k == img.Slot {
				row = i
			}
		}
		y := gap + row*(slotPx+gap)
		out = append(out, image.Rect(px(gap), px(y), px(gap+slotPx), px(y+slotPx)))
	}

	grid := s.Grid
	if grid.Cols == 0 && len(s.Flexible) > 0 {
		grid = core.FlexibleGrid(len(s.Flexible))
	}
	if grid.Cols == 0 {
		return out
	}
	left := gap + slotPx + gap
	cell := panelPx / grid.Cols
	for i := range s.Flexible {
		col, row := i%grid.Cols, i/grid.Cols
		x, y := left+col*cell, gap+row*cell
		out = append(out, image.Rect(px(x), px(y), px(x+cell), px(y+cell)))
	}
	return out
}

// RenderToImage draws every slot image into its cell and encodes a PNG.
// Images that fail to load are drawn as placeholders and logged.
func (r *Rasterizer) RenderToImage(ctx context.Context, s core.SurfaceDescriptor) ([]byte, error) {
	bg, err := parseHex(s.Background)
	if err != nil {
		return nil, err
	}
	canvas := image.NewRGBA(Canvas(s))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	entries := append(append([]core.SlotImage(nil), s.Fixed...), s.Flexible...)
	for i, rect := range cells(s) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := r.load(ctx, entries[i].ImageURL)
		if err != nil {
			r.logger.Warn("render placeholder", "item_id", entries[i].ItemID, "slot", entries[i].Slot, "error", err)
			draw.Draw(canvas, rect.Inset(max(s.Scale, 1)*4), image.NewUniform(r.placeholder), image.Point{}, draw.Src)
			continue
		}
		draw.CatmullRom.Scale(canvas, fit(src.Bounds(), rect), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Rasterizer) load(ctx context.Context, ref string) (image.Image, error) {
	if r.images == nil {
		return nil, fmt.Errorf("no image source")
	}
	rc, err := r.images.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return img, nil
}

// fit returns the largest rectangle with src's aspect ratio centered in dst.
func fit(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func parseHex(s string) (color.Color, error) {
	if s == "" {
		return color.White, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("background %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("background %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
