package sim

import (
	"encoding/json"
	"math"

	"github.com/BurntSushi/toml"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/quadtree"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Worker
// =============================================================================

const (
	// DefaultRepulsionStrength controls how strongly nodes push apart.
	// Higher values spread the graph out.
	DefaultRepulsionStrength = 2000.0

	// DefaultSpringStiffness is Hooke's constant for edges without an override.
	DefaultSpringStiffness = 0.1

	// DefaultRestLength is the target edge length for edges without an override.
	DefaultRestLength = 100.0

	// DefaultDamping dissipates kinetic energy each tick. Must be strictly
	// between 0 and 1; without dissipation the system oscillates forever.
	DefaultDamping = 0.85

	// DefaultTheta is the Barnes-Hut accuracy parameter. Values in 0.5–0.9
	// are visually indistinguishable from the exact pairwise sum.
	DefaultTheta = 0.7

	// DefaultSoftening prevents force blow-up at near-zero separation.
	DefaultSoftening = 5.0

	// DefaultTimeStep is the integration step in layout-time units.
	DefaultTimeStep = 0.5

	// DefaultMaxVelocity clamps per-tick node speed so one unstable tick
	// cannot eject a node off-screen.
	DefaultMaxVelocity = 50.0

	// DefaultMaxIterations bounds a run that never converges.
	DefaultMaxIterations = 1000

	// DefaultConvergenceThreshold is the total kinetic energy below which
	// the layout is considered settled.
	DefaultConvergenceThreshold = 0.01

	// DefaultCenteringStrength gently pulls nodes toward the layout
	// centroid so the graph cannot drift unbounded.
	DefaultCenteringStrength = 0.01

	// DefaultWidth and DefaultHeight bound randomized initial positions.
	DefaultWidth  = 1200.0
	DefaultHeight = 800.0

	// DefaultSeed makes randomized initial positions reproducible.
	DefaultSeed = uint64(42)
)

// =============================================================================
// Config
// =============================================================================

// Config holds every knob of the force simulation. All fields have working
// defaults; see DefaultConfig. The struct supports TOML profiles (see
// LoadConfig) and JSON serialization for API requests.
type Config struct {
	// RepulsionStrength scales pairwise repulsion. Higher = more spread out.
	RepulsionStrength float64 `json:"repulsion_strength" toml:"repulsion_strength"`

	// SpringStiffness is the default Hooke's constant for edges.
	// Higher = tighter clusters along edges.
	SpringStiffness float64 `json:"spring_stiffness" toml:"spring_stiffness"`

	// RestLength is the default target distance for edges.
	RestLength float64 `json:"rest_length" toml:"rest_length"`

	// Damping multiplies velocity each tick; strictly between 0 and 1.
	// Higher = faster settling, less oscillation.
	Damping float64 `json:"damping" toml:"damping"`

	// Theta is the Barnes-Hut accuracy parameter. Higher = faster but less
	// accurate. Must be positive; 0 would force exact O(n²) evaluation via
	// division in the acceptance test.
	Theta float64 `json:"theta" toml:"theta"`

	// Softening is added (squared) to squared distances in the repulsion
	// formula. Must be positive so coincident points cannot divide by zero.
	Softening float64 `json:"softening" toml:"softening"`

	// TimeStep is the integration step dt.
	TimeStep float64 `json:"time_step" toml:"time_step"`

	// MaxVelocity clamps node speed per tick.
	MaxVelocity float64 `json:"max_velocity" toml:"max_velocity"`

	// MaxIterations bounds the run; reaching it is a successful stop.
	MaxIterations int `json:"max_iterations" toml:"max_iterations"`

	// ConvergenceThreshold is total kinetic energy below which the
	// simulation transitions to Converged.
	ConvergenceThreshold float64 `json:"convergence_threshold" toml:"convergence_threshold"`

	// CenteringStrength pulls nodes toward the centroid; 0 disables.
	CenteringStrength float64 `json:"centering_strength" toml:"centering_strength"`

	// GridSnap rounds final positions to this increment once the run
	// settles; 0 disables the post-pass.
	GridSnap float64 `json:"grid_snap,omitempty" toml:"grid_snap"`

	// MaxDepth and MinRegionSize tune the spatial index subdivision guard.
	// Zero means the quadtree defaults (15 and 1.0).
	MaxDepth      int     `json:"max_depth,omitempty" toml:"max_depth"`
	MinRegionSize float64 `json:"min_region_size,omitempty" toml:"min_region_size"`

	// Width and Height bound randomized initial positions for nodes that
	// arrive without coordinates.
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`

	// Seed drives the randomized initial positions for reproducibility.
	Seed uint64 `json:"seed" toml:"seed"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		RepulsionStrength:    DefaultRepulsionStrength,
		SpringStiffness:      DefaultSpringStiffness,
		RestLength:           DefaultRestLength,
		Damping:              DefaultDamping,
		Theta:                DefaultTheta,
		Softening:            DefaultSoftening,
		TimeStep:             DefaultTimeStep,
		MaxVelocity:          DefaultMaxVelocity,
		MaxIterations:        DefaultMaxIterations,
		ConvergenceThreshold: DefaultConvergenceThreshold,
		CenteringStrength:    DefaultCenteringStrength,
		MaxDepth:             quadtree.DefaultMaxDepth,
		MinRegionSize:        quadtree.DefaultMinSize,
		Width:                DefaultWidth,
		Height:               DefaultHeight,
		Seed:                 DefaultSeed,
	}
}

// ApplyDefaults fills zero-valued fields with defaults for the knobs where
// zero is not a usable setting. Fields where zero is a meaningful choice
// (RepulsionStrength, SpringStiffness, RestLength, ConvergenceThreshold,
// CenteringStrength, GridSnap) are left untouched; decode entry points start
// from DefaultConfig so omitted keys still pick up defaults there.
// Idempotent: applying twice has the same effect as applying once.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Damping == 0 {
		c.Damping = d.Damping
	}
	if c.Theta == 0 {
		c.Theta = d.Theta
	}
	if c.Softening == 0 {
		c.Softening = d.Softening
	}
	if c.TimeStep == 0 {
		c.TimeStep = d.TimeStep
	}
	if c.MaxVelocity == 0 {
		c.MaxVelocity = d.MaxVelocity
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MinRegionSize == 0 {
		c.MinRegionSize = d.MinRegionSize
	}
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
}

// Validate checks that every parameter is finite and within its allowed
// range. Rejected configurations never reach the integrator.
func (c Config) Validate() error {
	finite := map[string]float64{
		"repulsion_strength":    c.RepulsionStrength,
		"spring_stiffness":      c.SpringStiffness,
		"rest_length":           c.RestLength,
		"damping":               c.Damping,
		"theta":                 c.Theta,
		"softening":             c.Softening,
		"time_step":             c.TimeStep,
		"max_velocity":          c.MaxVelocity,
		"convergence_threshold": c.ConvergenceThreshold,
		"centering_strength":    c.CenteringStrength,
		"grid_snap":             c.GridSnap,
		"min_region_size":       c.MinRegionSize,
		"width":                 c.Width,
		"height":                c.Height,
	}
	for name, v := range finite {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must be finite, got %v", name, v)
		}
	}

	if c.RepulsionStrength < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "repulsion_strength must not be negative, got %v", c.RepulsionStrength)
	}
	if c.SpringStiffness < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "spring_stiffness must not be negative, got %v", c.SpringStiffness)
	}
	if c.RestLength < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "rest_length must not be negative, got %v", c.RestLength)
	}
	if c.Damping <= 0 || c.Damping >= 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "damping must be strictly between 0 and 1, got %v", c.Damping)
	}
	if c.Theta <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "theta must be positive, got %v", c.Theta)
	}
	if c.Softening <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "softening must be positive, got %v", c.Softening)
	}
	if c.TimeStep <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "time_step must be positive, got %v", c.TimeStep)
	}
	if c.MaxVelocity <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_velocity must be positive, got %v", c.MaxVelocity)
	}
	if c.MaxIterations <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.ConvergenceThreshold < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "convergence_threshold must not be negative, got %v", c.ConvergenceThreshold)
	}
	if c.CenteringStrength < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "centering_strength must not be negative, got %v", c.CenteringStrength)
	}
	if c.GridSnap < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "grid_snap must not be negative, got %v", c.GridSnap)
	}
	if c.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.MinRegionSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "min_region_size must not be negative, got %v", c.MinRegionSize)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "width and height must be positive, got %vx%v", c.Width, c.Height)
	}
	return nil
}

// UnmarshalJSON decodes over a fully defaulted Config: keys absent from the
// payload keep their defaults, while explicit zeros survive.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	p := plain(DefaultConfig())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}

// LoadConfig reads a TOML simulation profile and validates the result. The
// profile is decoded over DefaultConfig, so keys it omits keep their
// defaults and an explicit zero stays zero.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
