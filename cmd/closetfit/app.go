package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"closetfit/internal/blob"
	"closetfit/internal/catalog"
	"closetfit/internal/config"
	"closetfit/internal/core"
	"closetfit/internal/logging"
	"closetfit/internal/render"
)

// app holds the backends every command opens from the loaded config.
type app struct {
	cfg     config.Config
	catalog catalog.Store
	blobs   blob.Store
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(rootFlags.configPath, nil)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogLevel(), cfg.Log.Format)

	cat, err := catalog.Open(ctx, cfg.CatalogOptions())
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.BlobOptions())
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	logging.New("app").Debug("backends opened",
		"catalog", cfg.Catalog.Driver,
		"blob", blobs.Driver(),
	)
	return &app{cfg: cfg, catalog: cat, blobs: blobs}, nil
}

func (a *app) Close() error {
	return a.catalog.Close()
}

// composerOptions wires the rasterizer, export archive and configured
// randomizer behavior. extra options are applied last.
func (a *app) composerOptions(extra ...core.Option) []core.Option {
	opts := []core.Option{
		core.WithShuffleMode(core.ShuffleMode(a.cfg.Composer.Shuffle)),
		core.WithExportScale(a.cfg.Composer.ExportScale),
		core.WithRasterizer(render.New(blob.NewImages(a.blobs), render.WithLogger(logging.New("render")))),
		core.WithArtifactStore(blob.NewArchive(a.blobs)),
	}
	return append(opts, extra...)
}

// seededRNG adapts math/rand/v2 to the randomizer's source.
type seededRNG struct{ r *rand.Rand }

func newSeededRNG(seed uint64) seededRNG {
	return seededRNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s seededRNG) Intn(n int) int { return s.r.IntN(n) }

// consoleNotifier prints toasts for one-shot commands and remembers the
// last error message.
type consoleNotifier struct {
	w       io.Writer
	lastErr string
}

func (n *consoleNotifier) Notify(message string, level core.NoticeLevel) {
	fmt.Fprintf(n.w, "[%s] %s\n", level, message)
	if level == core.NoticeError {
		n.lastErr = message
	}
}

// userError replaces err with the toast shown for it, when there was one.
func (n *consoleNotifier) userError(err error) error {
	if err == nil || n.lastErr == "" {
		return err
	}
	return errors.New(n.lastErr)
}
