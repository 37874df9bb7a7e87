package pdf

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFieldRect(t *testing.T) {
	tests := []struct {
		name                   string
		xPct, yPct, wPct, hPct float64
		pageW, pageH           float64
		want                   Rect
	}{
		{
			name: "signature block on a letter page",
			xPct: 10, yPct: 70, wPct: 30, hPct: 10,
			pageW: 612, pageH: 792,
			want: Rect{X: 61.2, Y: 158.4, W: 183.6, H: 79.2},
		},
		{
			name: "top left corner",
			xPct: 0, yPct: 0, wPct: 10, hPct: 5,
			pageW: 612, pageH: 792,
			want: Rect{X: 0, Y: 752.4, W: 61.2, H: 39.6},
		},
		{
			name: "full page",
			xPct: 0, yPct: 0, wPct: 100, hPct: 100,
			pageW: 612, pageH: 792,
			want: Rect{X: 0, Y: 0, W: 612, H: 792},
		},
		{
			name: "a4 sized page",
			xPct: 50, yPct: 50, wPct: 25, hPct: 25,
			pageW: 595.28, pageH: 841.89,
			want: Rect{X: 297.64, Y: 210.4725, W: 148.82, H: 210.4725},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FieldRect(tt.xPct, tt.yPct, tt.wPct, tt.hPct, tt.pageW, tt.pageH)
			if !almostEqual(got.X, tt.want.X) || !almostEqual(got.Y, tt.want.Y) ||
				!almostEqual(got.W, tt.want.W) || !almostEqual(got.H, tt.want.H) {
				t.Errorf("FieldRect = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectTopY(t *testing.T) {
	r := FieldRect(10, 70, 30, 10, 612, 792)

	// The top edge from the page top plus the bottom edge from the page
	// bottom plus the height must span the whole page.
	if got := r.TopY(792); !almostEqual(got, 792-r.Y-r.H) {
		t.Errorf("TopY = %v, want %v", got, 792-r.Y-r.H)
	}
	if !almostEqual(r.TopY(792)+r.H+r.Y, 792) {
		t.Errorf("TopY + H + Y = %v, want page height", r.TopY(792)+r.H+r.Y)
	}
	if !almostEqual(r.TopY(792), 554.4) {
		t.Errorf("TopY = %v, want 554.4", r.TopY(792))
	}
}

func TestFitInside(t *testing.T) {
	tests := []struct {
		name                   string
		imgW, imgH, boxW, boxH float64
		wantW, wantH           float64
	}{
		{"wide image limited by width", 400, 100, 200, 100, 200, 50},
		{"tall image limited by height", 100, 400, 200, 100, 25, 100},
		{"exact fit", 200, 100, 200, 100, 200, 100},
		{"degenerate image fills the box", 0, 0, 200, 100, 200, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitInside(tt.imgW, tt.imgH, tt.boxW, tt.boxH)
			if !almostEqual(w, tt.wantW) || !almostEqual(h, tt.wantH) {
				t.Errorf("fitInside = (%v, %v), want (%v, %v)", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
