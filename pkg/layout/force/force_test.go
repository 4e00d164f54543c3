package force

import (
	"math"
	"testing"
)

func TestRepulsionClosedForm(t *testing.T) {
	// Two unit masses 10 apart on the x axis, strength 100, softening 1:
	// F = 100 * 1 * 1 / (100 + 1) along the axis.
	want := 100.0 / 101.0

	fx, fy := Repulsion(0, 0, 1, 10, 0, 1, 100, 1)
	if math.Abs(fx-(-want)) > 1e-12 {
		t.Errorf("fx = %v, want %v", fx, -want)
	}
	if fy != 0 {
		t.Errorf("fy = %v, want 0", fy)
	}
}

func TestRepulsionSymmetry(t *testing.T) {
	tests := []struct {
		name           string
		ax, ay, bx, by float64
		ma, mb         float64
	}{
		{"Horizontal", 0, 0, 10, 0, 1, 1},
		{"Diagonal", -3, 4, 7, -2, 2, 5},
		{"Close", 0, 0, 0.01, 0.01, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fax, fay := Repulsion(tt.ax, tt.ay, tt.ma, tt.bx, tt.by, tt.mb, 100, 1)
			fbx, fby := Repulsion(tt.bx, tt.by, tt.mb, tt.ax, tt.ay, tt.ma, 100, 1)

			// Equal magnitude, opposite direction.
			if math.Abs(fax+fbx) > 1e-12 || math.Abs(fay+fby) > 1e-12 {
				t.Errorf("asymmetric: a=(%v,%v) b=(%v,%v)", fax, fay, fbx, fby)
			}
		})
	}
}

func TestRepulsionCoincident(t *testing.T) {
	fx, fy := Repulsion(5, 5, 1, 5, 5, 1, 100, 1)
	if fx != 0 || fy != 0 {
		t.Errorf("coincident points = (%v, %v), want (0, 0)", fx, fy)
	}
}

func TestRepulsionMassScaling(t *testing.T) {
	fx1, _ := Repulsion(0, 0, 1, 10, 0, 1, 100, 0)
	fx3, _ := Repulsion(0, 0, 1, 10, 0, 3, 100, 0)
	if math.Abs(fx3-3*fx1) > 1e-12 {
		t.Errorf("force should scale linearly with mass: %v vs %v", fx3, fx1)
	}
}

func TestSpring(t *testing.T) {
	tests := []struct {
		name      string
		ax, bx    float64
		rest      float64
		stiffness float64
		wantFx    float64
	}{
		{"Stretched", 0, 100, 50, 0.1, 5},      // 50 past rest: pulls a toward b
		{"Compressed", 0, 10, 50, 0.1, -4},     // 40 short of rest: pushes a away
		{"AtRest", 0, 50, 50, 0.1, 0},          // no displacement, no force
		{"StifferSpring", 0, 100, 50, 0.5, 25}, // force scales with stiffness
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, fy := Spring(tt.ax, 0, tt.bx, 0, tt.rest, tt.stiffness)
			if math.Abs(fx-tt.wantFx) > 1e-12 {
				t.Errorf("fx = %v, want %v", fx, tt.wantFx)
			}
			if fy != 0 {
				t.Errorf("fy = %v, want 0", fy)
			}
		})
	}
}

func TestSpringSymmetry(t *testing.T) {
	fax, fay := Spring(0, 0, 30, 40, 25, 0.2)
	fbx, fby := Spring(30, 40, 0, 0, 25, 0.2)

	if math.Abs(fax+fbx) > 1e-12 || math.Abs(fay+fby) > 1e-12 {
		t.Errorf("asymmetric: a=(%v,%v) b=(%v,%v)", fax, fay, fbx, fby)
	}
}

func TestSpringCoincident(t *testing.T) {
	fx, fy := Spring(1, 1, 1, 1, 50, 0.1)
	if fx != 0 || fy != 0 {
		t.Errorf("coincident endpoints = (%v, %v), want (0, 0)", fx, fy)
	}
}

func TestCentering(t *testing.T) {
	fx, fy := Centering(10, -20, 0, 0, 0.1)
	if fx != -1 || fy != 2 {
		t.Errorf("centering = (%v, %v), want (-1, 2)", fx, fy)
	}

	fx, fy = Centering(10, -20, 0, 0, 0)
	if fx != 0 || fy != 0 {
		t.Errorf("zero strength = (%v, %v), want (0, 0)", fx, fy)
	}
}
