// Package sim implements the time-stepped force simulation that drives the
// canvas layout: repulsion between all node pairs (approximated through the
// Barnes-Hut index in package quadtree), spring attraction along edges, an
// optional centering pull, and a damped velocity integrator with kinetic
// energy convergence detection.
//
// A Simulation is created per layout pass, fed a graph via Start, and driven
// either tick by tick with Step or to completion with Run. It is not safe for
// concurrent use; drive each instance from a single goroutine.
package sim

import (
	"context"
	"io"
	"math"
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/force"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/quadtree"
)

// =============================================================================
// States
// =============================================================================

// State is the lifecycle state of a simulation run.
type State int

const (
	// StateIdle means no run has started yet.
	StateIdle State = iota

	// StateRunning means ticks are being processed.
	StateRunning

	// StateConverged means total kinetic energy dropped below the
	// configured threshold.
	StateConverged

	// StateCancelled means the run was stopped externally. Positions hold
	// the last completed tick.
	StateCancelled

	// StateMaxIterations means the iteration budget ran out before
	// convergence. This is a successful stop, not an error.
	StateMaxIterations
)

// String returns the wire name of the state, as stored in graph.Layout.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateCancelled:
		return "cancelled"
	case StateMaxIterations:
		return "max_iterations"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has ended. A terminal simulation rejects
// further Step calls until restarted.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateCancelled || s == StateMaxIterations
}

// =============================================================================
// Simulation
// =============================================================================

// TickResult is the per-tick snapshot delivered to OnTick observers and
// returned by Step and Run. Positions is a private copy; holding it across
// ticks is safe.
type TickResult struct {
	Positions graph.Positions
	State     State
	Iteration int
	Energy    float64
}

// body is the mutable integration state for one node.
type body struct {
	id     string
	x, y   float64
	vx, vy float64
	mass   float64
	pinned bool
}

// spring is one edge resolved to body indices with defaults applied.
type spring struct {
	a, b      int
	rest      float64
	stiffness float64
}

// Simulation owns the integration state for one layout run.
type Simulation struct {
	cfg    Config
	logger *log.Logger

	bodies  []body
	index   map[string]int
	springs []spring

	state     State
	iter      int
	energy    float64
	callbacks []func(TickResult)
}

// New creates an idle simulation with the given configuration. A nil logger
// disables logging.
func New(cfg Config, logger *log.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulation{cfg: cfg, logger: logger}, nil
}

// Configure replaces the simulation parameters. Takes effect on the next
// tick, so a running layout can be retuned live.
func (s *Simulation) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Start loads a graph and begins a run. Nodes without positions are placed
// uniformly at random within the configured width and height, driven by the
// configured seed so repeated runs over the same input are identical. Nodes
// marked pinned keep their coordinates for the whole run.
//
// Starting over a finished run resets iteration count and velocities; a run
// still in StateRunning must be cancelled first.
func (s *Simulation) Start(g graph.Graph) error {
	if s.state == StateRunning {
		return errors.New(errors.ErrCodeAlreadyRunning, "simulation is already running; cancel it before restarting")
	}
	if err := graph.Validate(g); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(int64(s.cfg.Seed)))
	s.bodies = make([]body, 0, len(g.Nodes))
	s.index = make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		b := body{id: n.ID, mass: n.EffectiveMass(), pinned: n.Pinned}
		if n.HasPosition() {
			b.x, b.y = *n.X, *n.Y
		} else {
			b.x = rng.Float64() * s.cfg.Width
			b.y = rng.Float64() * s.cfg.Height
		}
		s.index[n.ID] = len(s.bodies)
		s.bodies = append(s.bodies, b)
	}

	s.springs = make([]spring, 0, len(g.Edges))
	for _, e := range g.Edges {
		rest := e.RestLength
		if rest <= 0 {
			rest = s.cfg.RestLength
		}
		stiffness := e.Stiffness
		if stiffness <= 0 {
			stiffness = s.cfg.SpringStiffness
		}
		s.springs = append(s.springs, spring{
			a:         s.index[e.From],
			b:         s.index[e.To],
			rest:      rest,
			stiffness: stiffness,
		})
	}

	s.state = StateRunning
	s.iter = 0
	s.energy = 0
	s.logger.Debug("simulation started",
		"nodes", len(s.bodies),
		"edges", len(s.springs),
		"seed", s.cfg.Seed)
	return nil
}

// Step advances the simulation by one tick and returns the resulting
// snapshot. Calling Step on a simulation that is not running returns the
// current snapshot alongside an error.
//
// Within a tick all forces are computed from the same position snapshot
// before any node moves, so evaluation order never influences the result.
func (s *Simulation) Step() (TickResult, error) {
	if s.state != StateRunning {
		return s.snapshot(), errors.New(errors.ErrCodeNotRunning, "simulation is %s, not running", s.state)
	}
	cfg := s.cfg

	// Every body, pinned ones included, contributes mass to the index:
	// pinned nodes still repel their neighbors.
	pts := make([]quadtree.Point, len(s.bodies))
	for i, b := range s.bodies {
		pts[i] = quadtree.Point{X: b.x, Y: b.y, Mass: b.mass}
	}
	tree := quadtree.Build(pts, quadtree.Options{
		MaxDepth: cfg.MaxDepth,
		MinSize:  cfg.MinRegionSize,
	})

	var cx, cy float64
	if cfg.CenteringStrength > 0 && len(s.bodies) > 0 {
		for _, b := range s.bodies {
			cx += b.x
			cy += b.y
		}
		cx /= float64(len(s.bodies))
		cy /= float64(len(s.bodies))
	}

	fx := make([]float64, len(s.bodies))
	fy := make([]float64, len(s.bodies))
	for i := range s.bodies {
		b := &s.bodies[i]
		if b.pinned {
			continue
		}
		rfx, rfy := tree.ForceOn(b.x, b.y, b.mass, cfg.Theta, cfg.Softening, cfg.RepulsionStrength)
		fx[i] += rfx
		fy[i] += rfy
		if cfg.CenteringStrength > 0 {
			gfx, gfy := force.Centering(b.x, b.y, cx, cy, cfg.CenteringStrength)
			fx[i] += gfx
			fy[i] += gfy
		}
	}
	for _, sp := range s.springs {
		a, b := &s.bodies[sp.a], &s.bodies[sp.b]
		sfx, sfy := force.Spring(a.x, a.y, b.x, b.y, sp.rest, sp.stiffness)
		fx[sp.a] += sfx
		fy[sp.a] += sfy
		fx[sp.b] -= sfx
		fy[sp.b] -= sfy
	}

	var energy float64
	for i := range s.bodies {
		b := &s.bodies[i]
		if b.pinned {
			b.vx, b.vy = 0, 0
			continue
		}
		if !finite(fx[i]) || !finite(fy[i]) {
			// A numeric blow-up on one node must not corrupt the rest of
			// the layout. Park the node for this tick and keep going.
			s.logger.Warn("non-finite force, resetting node velocity",
				"node", b.id, "iteration", s.iter)
			b.vx, b.vy = 0, 0
			continue
		}

		b.vx = (b.vx + fx[i]/b.mass*cfg.TimeStep) * cfg.Damping
		b.vy = (b.vy + fy[i]/b.mass*cfg.TimeStep) * cfg.Damping
		if speed := math.Hypot(b.vx, b.vy); speed > cfg.MaxVelocity {
			scale := cfg.MaxVelocity / speed
			b.vx *= scale
			b.vy *= scale
		}
		b.x += b.vx * cfg.TimeStep
		b.y += b.vy * cfg.TimeStep
		energy += 0.5 * b.mass * (b.vx*b.vx + b.vy*b.vy)
	}

	s.iter++
	s.energy = energy
	switch {
	case energy < cfg.ConvergenceThreshold:
		s.finish(StateConverged)
	case s.iter >= cfg.MaxIterations:
		s.finish(StateMaxIterations)
	}

	res := s.snapshot()
	for _, fn := range s.callbacks {
		fn(res)
	}
	return res, nil
}

// Run drives the simulation until it reaches a terminal state or the context
// is done. On context cancellation the run transitions to StateCancelled and
// the context error is returned together with the last snapshot.
func (s *Simulation) Run(ctx context.Context) (TickResult, error) {
	last := s.snapshot()
	for s.state == StateRunning {
		select {
		case <-ctx.Done():
			s.Cancel()
			return s.snapshot(), ctx.Err()
		default:
		}
		res, err := s.Step()
		if err != nil {
			return res, err
		}
		last = res
	}
	if !last.State.Terminal() {
		return last, errors.New(errors.ErrCodeNotRunning, "simulation is %s, not running", s.state)
	}
	return last, nil
}

// Cancel stops a running simulation, keeping the positions of the last
// completed tick. Cancelling an idle or finished simulation is a no-op.
func (s *Simulation) Cancel() {
	if s.state == StateRunning {
		s.state = StateCancelled
		s.logger.Debug("simulation cancelled", "iteration", s.iter)
	}
}

// Pin fixes a node at the given coordinates. The node keeps repelling its
// neighbors but no longer moves, which is the anchor behavior used while a
// node is being dragged.
func (s *Simulation) Pin(id string, x, y float64) error {
	i, ok := s.index[id]
	if !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q not found", id)
	}
	b := &s.bodies[i]
	b.x, b.y = x, y
	b.vx, b.vy = 0, 0
	b.pinned = true
	return nil
}

// Unpin releases a pinned node back into the simulation.
func (s *Simulation) Unpin(id string) error {
	i, ok := s.index[id]
	if !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q not found", id)
	}
	s.bodies[i].pinned = false
	return nil
}

// OnTick registers an observer called synchronously after every completed
// tick, including the terminal one.
func (s *Simulation) OnTick(fn func(TickResult)) {
	s.callbacks = append(s.callbacks, fn)
}

// Positions returns a copy of the current node positions.
func (s *Simulation) Positions() graph.Positions {
	out := make(graph.Positions, len(s.bodies))
	for _, b := range s.bodies {
		out[b.id] = graph.Point{X: b.x, Y: b.y}
	}
	return out
}

// State returns the current lifecycle state.
func (s *Simulation) State() State { return s.state }

// Iterations returns the number of completed ticks.
func (s *Simulation) Iterations() int { return s.iter }

// Energy returns the total kinetic energy of the last completed tick.
func (s *Simulation) Energy() float64 { return s.energy }

// Layout packages the current state for serialization or persistence.
func (s *Simulation) Layout() graph.Layout {
	return graph.Layout{
		Positions:  s.Positions(),
		State:      s.state.String(),
		Iterations: s.iter,
		Energy:     s.energy,
		Algorithm:  "force",
	}
}

func (s *Simulation) snapshot() TickResult {
	return TickResult{
		Positions: s.Positions(),
		State:     s.state,
		Iteration: s.iter,
		Energy:    s.energy,
	}
}

// finish transitions to a terminal state and applies the optional grid-snap
// post-pass. Pinned nodes keep their exact user-set coordinates.
func (s *Simulation) finish(st State) {
	s.state = st
	if s.cfg.GridSnap > 0 {
		for i := range s.bodies {
			b := &s.bodies[i]
			if b.pinned {
				continue
			}
			b.x = math.Round(b.x/s.cfg.GridSnap) * s.cfg.GridSnap
			b.y = math.Round(b.y/s.cfg.GridSnap) * s.cfg.GridSnap
		}
	}
	s.logger.Debug("simulation finished",
		"state", st.String(),
		"iterations", s.iter,
		"energy", s.energy)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
