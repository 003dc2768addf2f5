package core

import (
	"errors"

	"closetfit/pkg/domain"
)

// DragSource identifies where a drag started.
type DragSource string

// Drag sources.
const (
	SourceGrid     DragSource = "grid"
	SourceFlexible DragSource = "flexible"
)

// DragPhase is the controller state. There is no third state: every drag
// returns to idle through release.
type DragPhase string

// Drag phases.
const (
	PhaseIdle     DragPhase = "idle"
	PhaseDragging DragPhase = "dragging"
)

var (
	// ErrDragActive rejects a grab while another drag is live.
	ErrDragActive = errors.New("drag already in progress")
	// ErrStaleGrab marks a fetch completion for a grab that was released or superseded.
	ErrStaleGrab = errors.New("grab is no longer current")
	// ErrSurfaceClosed rejects input after the composition surface closed.
	ErrSurfaceClosed = errors.New("composition surface is closed")
)

// GrabTicket identifies one pending grid grab while its item fetch is in flight.
type GrabTicket struct {
	Token    uint64 `json:"token"`
	ItemID   string `json:"item_id"`
	Position Point  `json:"position"`
}

// Preview is the floating image that follows the pointer.
type Preview struct {
	ItemID   string `json:"item_id"`
	ImageURL string `json:"image_url,omitempty"`
	Position Point  `json:"position"`
}

// DragState is a read-only snapshot of the controller.
type DragState struct {
	Phase       DragPhase  `json:"phase"`
	Source      DragSource `json:"source,omitempty"`
	ItemID      string     `json:"item_id,omitempty"`
	Origin      int        `json:"origin"`
	Preview     *Preview   `json:"preview,omitempty"`
	OverSurface bool       `json:"over_surface"`
	Hover       int        `json:"hover"`
	Pending     bool       `json:"pending"`
}

// DropKind is the commit a release resolves to.
type DropKind string

// Drop kinds.
const (
	DropNone   DropKind = "none"
	DropAssign DropKind = "assign"
	DropSwap   DropKind = "swap"
)

// Drop describes what a release should commit. DropNone is the cancel path.
type Drop struct {
	Kind DropKind
	Item *domain.Item
	From int
	To   int
}

// DragController owns the pointer lifecycle for grid and flexible drags.
// It never mutates the outfit; Release hands back the Drop to commit.
type DragController struct {
	phase       DragPhase
	source      DragSource
	item        *domain.Item
	origin      int
	preview     Point
	overSurface bool
	hover       int

	token   uint64
	pending *GrabTicket
}

// NewDragController returns an idle controller.
func NewDragController() *DragController {
	return &DragController{phase: PhaseIdle, origin: -1, hover: -1}
}

// Phase reports the current state.
func (d *DragController) Phase() DragPhase { return d.phase }

// RequestGrid registers a grid grab whose item is still being fetched. The
// controller stays idle until Resolve is called with the returned ticket.
// A newer request supersedes an older pending one.
func (d *DragController) RequestGrid(itemID string, pos Point) (GrabTicket, error) {
	if d.phase == PhaseDragging {
		return GrabTicket{}, ErrDragActive
	}
	d.token++
	t := GrabTicket{Token: d.token, ItemID: itemID, Position: pos}
	d.pending = &t
	return t, nil
}

// Current reports whether t is the outstanding grab.
func (d *DragController) Current(t GrabTicket) bool {
	return d.pending != nil && d.pending.Token == t.Token
}

// Resolve enters Dragging for a fetched grid item. Late completions for a
// released or superseded grab return ErrStaleGrab and change nothing.
func (d *DragController) Resolve(t GrabTicket, it *domain.Item) error {
	if !d.Current(t) {
		return ErrStaleGrab
	}
	d.pending = nil
	d.start(SourceGrid, it, -1, t.Position)
	return nil
}

// Abandon drops the pending grab after a failed fetch. It reports whether the
// ticket was still current.
func (d *DragController) Abandon(t GrabTicket) bool {
	if !d.Current(t) {
		return false
	}
	d.pending = nil
	return true
}

// GrabFlexible starts a reorder drag for the entry at index.
func (d *DragController) GrabFlexible(index int, it *domain.Item, pos Point) error {
	if d.phase == PhaseDragging {
		return ErrDragActive
	}
	d.pending = nil
	d.start(SourceFlexible, it, index, pos)
	return nil
}

func (d *DragController) start(src DragSource, it *domain.Item, origin int, pos Point) {
	d.phase = PhaseDragging
	d.source = src
	d.item = it
	d.origin = origin
	d.preview = pos.Add(PreviewOffset)
	d.overSurface = false
	d.hover = -1
}

// Move repositions the preview and recomputes the hover target.
func (d *DragController) Move(pos Point, layout Layout) {
	if d.phase != PhaseDragging {
		return
	}
	d.preview = pos.Add(PreviewOffset)
	switch d.source {
	case SourceGrid:
		d.overSurface = layout.OverSurface(pos)
	case SourceFlexible:
		d.hover = layout.FlexibleAt(pos, d.origin)
	}
}

// Release ends the drag and reports what to commit. Grid drops are decided by
// the release position; flexible drops use the last hover computed by Move.
// A release while a grid fetch is pending cancels that grab.
func (d *DragController) Release(pos Point, layout Layout) Drop {
	if d.phase != PhaseDragging {
		d.pending = nil
		return Drop{Kind: DropNone, From: -1, To: -1}
	}

	drop := Drop{Kind: DropNone, Item: d.item, From: d.origin, To: -1}
	switch d.source {
	case SourceGrid:
		if layout.OverSurface(pos) {
			drop.Kind = DropAssign
		}
	case SourceFlexible:
		if d.hover >= 0 && d.hover != d.origin {
			drop.Kind = DropSwap
			drop.To = d.hover
		}
	}
	d.reset()
	return drop
}

// Cancel abandons any live or pending drag without a commit.
func (d *DragController) Cancel() {
	d.pending = nil
	d.reset()
}

func (d *DragController) reset() {
	d.phase = PhaseIdle
	d.source = ""
	d.item = nil
	d.origin = -1
	d.overSurface = false
	d.hover = -1
}

// State returns a snapshot for presentation.
func (d *DragController) State() DragState {
	st := DragState{
		Phase:   d.phase,
		Origin:  -1,
		Hover:   -1,
		Pending: d.pending != nil,
	}
	if d.phase != PhaseDragging {
		return st
	}
	st.Source = d.source
	st.Origin = d.origin
	st.OverSurface = d.overSurface
	st.Hover = d.hover
	if d.item != nil {
		st.ItemID = d.item.ID
		st.Preview = &Preview{ItemID: d.item.ID, ImageURL: d.item.ProcessedURL, Position: d.preview}
	}
	return st
}
