package geom

import "testing"

func TestRectCenter(t *testing.T) {
	tests := []struct {
		name   string
		rect   Rect
		cx, cy float64
	}{
		{"origin", Rect{W: 100, H: 50}, 50, 25},
		{"offset", Rect{X: 10, Y: 20, W: 30, H: 40}, 25, 40},
		{"negative", Rect{X: -150, Y: 0, W: 100, H: 100}, -100, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cx, cy := tt.rect.Center()
			if cx != tt.cx || cy != tt.cy {
				t.Errorf("Center() = (%v, %v), want (%v, %v)", cx, cy, tt.cx, tt.cy)
			}
		})
	}
}

func TestRectEmpty(t *testing.T) {
	if !(Rect{W: 0, H: 10}).Empty() {
		t.Error("zero width should be empty")
	}
	if (Rect{W: 1, H: 1}).Empty() {
		t.Error("unit rect should not be empty")
	}
}
