package core

import (
	"context"
	"math/rand/v2"

	"closetfit/pkg/domain"
)

// Catalog is the external item store. Both calls may block.
type Catalog interface {
	FetchItem(ctx context.Context, id string) (domain.Item, error)
	FetchAllItems(ctx context.Context, filter Filter) ([]domain.Item, error)
}

// NoticeLevel grades a user-visible notification.
type NoticeLevel string

// Notification levels.
const (
	NoticeError   NoticeLevel = "error"
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
)

// Notifier displays transient messages. Fire and forget.
type Notifier interface {
	Notify(message string, level NoticeLevel)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(message string, level NoticeLevel)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string, level NoticeLevel) { f(message, level) }

type discardNotifier struct{}

func (discardNotifier) Notify(string, NoticeLevel) {}

// Rasterizer turns a surface description into an encoded image.
type Rasterizer interface {
	RenderToImage(ctx context.Context, surface SurfaceDescriptor) ([]byte, error)
}

// ArtifactStore keeps rendered exports and returns where one was stored.
type ArtifactStore interface {
	SaveExport(ctx context.Context, name string, image []byte) (string, error)
}

// BadgeConsumer is told the in-use id set after every committed mutation.
type BadgeConsumer interface {
	InUseChanged(set InUseSet)
}

type systemRNG struct{}

func (systemRNG) Intn(n int) int { return rand.IntN(n) }
