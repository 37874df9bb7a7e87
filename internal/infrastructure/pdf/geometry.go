package pdf

// Rect is an absolute rectangle in page units with the origin at the
// bottom-left corner of the page (PDF convention). Y is the bottom edge.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// FieldRect converts a percentage-based placement (0-100, origin at the
// top-left of the page) to absolute page units. The vertical axis flips:
// the bottom edge lands at pageH - y% - h% of the page height.
func FieldRect(xPct, yPct, wPct, hPct, pageW, pageH float64) Rect {
	return Rect{
		X: (xPct / 100) * pageW,
		Y: pageH - (yPct/100)*pageH - (hPct/100)*pageH,
		W: (wPct / 100) * pageW,
		H: (hPct / 100) * pageH,
	}
}

// TopY returns the rectangle's top edge measured from the page top, the
// coordinate the drawing layer works in.
func (r Rect) TopY(pageH float64) float64 {
	return pageH - r.Y - r.H
}
