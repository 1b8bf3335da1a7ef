package geometry

import (
	"fmt"
	"math"
)

// Bezier is a cubic curve from Start to End.
type Bezier struct {
	Start Point `json:"start"`
	C1    Point `json:"c1"`
	C2    Point `json:"c2"`
	End   Point `json:"end"`
}

// EdgePath builds the curve for a connection. The curve always leaves the
// source and enters the target horizontally, with control points pulled out
// by half the horizontal distance, so flows read left to right.
func EdgePath(source, target Point) Bezier {
	dx := math.Abs(target.X-source.X) * 0.5
	return Bezier{
		Start: source,
		C1:    Point{X: source.X + dx, Y: source.Y},
		C2:    Point{X: target.X - dx, Y: target.Y},
		End:   target,
	}
}

// Point evaluates the curve at t in [0, 1].
func (b Bezier) Point(t float64) Point {
	u := 1 - t
	w0 := u * u * u
	w1 := 3 * u * u * t
	w2 := 3 * u * t * t
	w3 := t * t * t
	return Point{
		X: w0*b.Start.X + w1*b.C1.X + w2*b.C2.X + w3*b.End.X,
		Y: w0*b.Start.Y + w1*b.C1.Y + w2*b.C2.Y + w3*b.End.Y,
	}
}

// Midpoint is where edge labels are anchored.
func (b Bezier) Midpoint() Point {
	return b.Point(0.5)
}

// SVG returns the path data ("d" attribute) for the curve.
func (b Bezier) SVG() string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(b.Start.X), num(b.Start.Y),
		num(b.C1.X), num(b.C1.Y),
		num(b.C2.X), num(b.C2.Y),
		num(b.End.X), num(b.End.Y))
}

// Line is a straight segment, used for the live connect preview.
type Line struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

func num(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
