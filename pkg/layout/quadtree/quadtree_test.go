package quadtree

import (
	"math"
	"math/rand"
	"testing"
)

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil, Options{})
	if tree.Count() != 0 {
		t.Errorf("count = %d, want 0", tree.Count())
	}
	fx, fy := tree.ForceOn(0, 0, 1, 0.5, 0.1, 100)
	if fx != 0 || fy != 0 {
		t.Errorf("force from empty tree = (%v, %v), want (0, 0)", fx, fy)
	}
}

func TestBuildSinglePoint(t *testing.T) {
	tree := Build([]Point{{X: 5, Y: 5, Mass: 2}}, Options{})
	if tree.Count() != 1 {
		t.Errorf("count = %d, want 1", tree.Count())
	}
	if tree.TotalMass() != 2 {
		t.Errorf("mass = %v, want 2", tree.TotalMass())
	}
}

func TestBuildAggregates(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, Mass: 1},
		{X: 100, Y: 0, Mass: 2},
		{X: 0, Y: 100, Mass: 3},
		{X: 100, Y: 100, Mass: 4},
	}
	tree := Build(points, Options{})

	if tree.Count() != 4 {
		t.Errorf("count = %d, want 4", tree.Count())
	}
	if got := tree.TotalMass(); got != 10 {
		t.Errorf("total mass = %v, want 10", got)
	}

	// Root center of mass is the mass-weighted average of the four corners.
	root := tree.nodes[0]
	wantX := (0*1 + 100*2 + 0*3 + 100*4) / 10.0
	wantY := (0*1 + 0*2 + 100*3 + 100*4) / 10.0
	if math.Abs(root.comX-wantX) > 1e-9 || math.Abs(root.comY-wantY) > 1e-9 {
		t.Errorf("root com = (%v, %v), want (%v, %v)", root.comX, root.comY, wantX, wantY)
	}
}

// Termination: coincident points must not recurse past the depth cap.
// Without the subdivision guard this build would never return, because no
// subdivision can ever separate identical coordinates.
func TestBuildCoincidentPoints(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{
			name: "TwoIdentical",
			points: []Point{
				{X: 10, Y: 10, Mass: 1},
				{X: 10, Y: 10, Mass: 1},
			},
		},
		{
			name: "FiftyIdentical",
			points: func() []Point {
				pts := make([]Point, 50)
				for i := range pts {
					pts[i] = Point{X: -3.25, Y: 7.5, Mass: 1}
				}
				return pts
			}(),
		},
		{
			name: "NearIdentical",
			points: []Point{
				{X: 10, Y: 10, Mass: 1},
				{X: 10 + 1e-12, Y: 10 - 1e-12, Mass: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Build(tt.points, Options{})

			if tree.Count() != len(tt.points) {
				t.Errorf("count = %d, want %d", tree.Count(), len(tt.points))
			}
			if d := tree.Depth(); d > DefaultMaxDepth {
				t.Errorf("depth = %d, exceeds cap %d", d, DefaultMaxDepth)
			}
		})
	}
}

func TestDepthCapRespected(t *testing.T) {
	// Random clusters plus duplicates; depth must never exceed the cap.
	rng := rand.New(rand.NewSource(1))
	points := make([]Point, 0, 300)
	for i := 0; i < 100; i++ {
		points = append(points, Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000, Mass: 1})
	}
	for i := 0; i < 100; i++ {
		points = append(points, Point{X: 500, Y: 500, Mass: 1})
	}
	for i := 0; i < 100; i++ {
		// Tight cluster straddling a likely subdivision boundary.
		points = append(points, Point{X: 250 + rng.Float64()*1e-9, Y: 250, Mass: 1})
	}

	tree := Build(points, Options{MaxDepth: 8})
	if d := tree.Depth(); d > 8 {
		t.Errorf("depth = %d, exceeds configured cap 8", d)
	}
	if tree.Count() != 300 {
		t.Errorf("count = %d, want 300", tree.Count())
	}
}

func TestMinSizeGuard(t *testing.T) {
	// With a large minimum region size, close points aggregate instead of
	// splitting, keeping the tree shallow.
	points := []Point{
		{X: 0, Y: 0, Mass: 1},
		{X: 2, Y: 2, Mass: 1},
		{X: 3, Y: 1, Mass: 1},
	}
	tree := Build(points, Options{MinSize: 100})
	if d := tree.Depth(); d > 1 {
		t.Errorf("depth = %d, want <= 1 with oversized MinSize", d)
	}
	if tree.Count() != 3 {
		t.Errorf("count = %d, want 3", tree.Count())
	}
}

// bruteForce computes the exact O(n²) repulsion on points[i] for reference.
func bruteForce(points []Point, i int, softening, strength float64) (float64, float64) {
	var fx, fy float64
	for j, p := range points {
		if j == i {
			continue
		}
		dx := points[i].X - p.X
		dy := points[i].Y - p.Y
		distSq := dx*dx + dy*dy
		dist := math.Sqrt(distSq)
		if dist < 1e-9 {
			continue
		}
		f := strength * points[i].Mass * p.Mass / (distSq + softening*softening)
		fx += dx / dist * f
		fy += dy / dist * f
	}
	return fx, fy
}

func TestForceMatchesBruteForceAtLowTheta(t *testing.T) {
	const (
		softening = 1.0
		strength  = 100.0
	)
	rng := rand.New(rand.NewSource(42))
	points := make([]Point, 20)
	for i := range points {
		points[i] = Point{X: rng.Float64() * 500, Y: rng.Float64() * 500, Mass: 1 + rng.Float64()}
	}
	tree := Build(points, Options{})

	// theta → 0 disables approximation entirely; the tree walk must then
	// reproduce the exact pairwise sum.
	for i := range points {
		wantX, wantY := bruteForce(points, i, softening, strength)
		gotX, gotY := tree.ForceOn(points[i].X, points[i].Y, points[i].Mass, 0, softening, strength)

		if math.Abs(gotX-wantX) > 1e-6 || math.Abs(gotY-wantY) > 1e-6 {
			t.Errorf("point %d: force = (%v, %v), want (%v, %v)", i, gotX, gotY, wantX, wantY)
		}
	}
}

func TestForceDeviationGrowsWithTheta(t *testing.T) {
	const (
		softening = 1.0
		strength  = 100.0
	)
	rng := rand.New(rand.NewSource(7))
	points := make([]Point, 20)
	for i := range points {
		points[i] = Point{X: rng.Float64() * 500, Y: rng.Float64() * 500, Mass: 1}
	}
	tree := Build(points, Options{})

	// Total deviation from the exact sum should not shrink as theta grows.
	deviation := func(theta float64) float64 {
		var total float64
		for i := range points {
			wantX, wantY := bruteForce(points, i, softening, strength)
			gotX, gotY := tree.ForceOn(points[i].X, points[i].Y, points[i].Mass, theta, softening, strength)
			total += math.Hypot(gotX-wantX, gotY-wantY)
		}
		return total
	}

	thetas := []float64{0.1, 0.5, 0.9, 1.5}
	prev := -1.0
	for _, theta := range thetas {
		d := deviation(theta)
		if d < prev-1e-9 {
			t.Errorf("deviation at theta=%v is %v, smaller than %v at lower theta", theta, d, prev)
		}
		prev = d
	}
}

func TestForceIsRepulsive(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, Mass: 1},
		{X: 10, Y: 0, Mass: 1},
	}
	tree := Build(points, Options{})

	// The left point must be pushed further left, the right point further right.
	fx, _ := tree.ForceOn(0, 0, 1, 0.5, 1, 100)
	if fx >= 0 {
		t.Errorf("left point fx = %v, want negative (pushed away)", fx)
	}
	fx2, _ := tree.ForceOn(10, 0, 1, 0.5, 1, 100)
	if fx2 <= 0 {
		t.Errorf("right point fx = %v, want positive (pushed away)", fx2)
	}
}

func TestComputeBoundsSquare(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0},
		{X: 1000, Y: 10}, // extreme aspect ratio
	}
	b := ComputeBounds(points)
	if math.Abs(b.W-b.H) > 1e-9 {
		t.Errorf("bounds not square: %v x %v", b.W, b.H)
	}
	if b.X > 0 || b.Y > 0 || b.X+b.W < 1000 || b.Y+b.H < 10 {
		t.Errorf("bounds %+v do not cover all points", b)
	}
}

func TestComputeBoundsCoincident(t *testing.T) {
	// All points identical: the root box must still be non-degenerate.
	b := ComputeBounds([]Point{{X: 5, Y: 5}, {X: 5, Y: 5}})
	if b.W <= 0 || b.H <= 0 {
		t.Errorf("degenerate bounds %+v", b)
	}
}
