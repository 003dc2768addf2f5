package core

// Point is a pointer position in surface pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add offsets p by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Rect is an axis-aligned box in the same space as Point.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Contains reports whether p lies inside r; edges count as inside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Layout carries the drop target geometry measured by the host.
type Layout struct {
	Surface  Rect   `json:"surface"`
	Flexible []Rect `json:"flexible,omitempty"`
}

// OverSurface reports whether p is over the composition surface.
func (l Layout) OverSurface(p Point) bool {
	return l.Surface.Contains(p)
}

// FlexibleAt returns the flexible entry under p, skipping exclude, or -1.
// With overlapping boxes the last match wins.
func (l Layout) FlexibleAt(p Point, exclude int) int {
	hit := -1
	for i, r := range l.Flexible {
		if i == exclude {
			continue
		}
		if r.Contains(p) {
			hit = i
		}
	}
	return hit
}

// PreviewOffset is the fixed distance between the pointer and the floating preview.
var PreviewOffset = Point{X: 10, Y: 10}
