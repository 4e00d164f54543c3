// Package pipeline provides the core layout pipeline: load → layout → render.
//
// This package implements the complete flow shared by the CLI, the HTTP API,
// and the live watch view. By centralizing it, every entry point gets the
// same caching, logging, and defaulting behavior.
//
// # Architecture
//
// The pipeline consists of two stages over a caller-supplied graph:
//
//  1. Layout: compute node positions (force simulation, grid, or radial)
//  2. Render: generate output artifacts (DOT, SVG, JSON)
//
// Each stage can be run independently or as part of the complete pipeline,
// and each stage result is cached by the content hash of its inputs.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Algorithm: pipeline.AlgorithmForce,
//	    Formats:   []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, g, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/cache"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/sim"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/static"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Algorithm constants for layout computation.
const (
	AlgorithmForce  = "force"
	AlgorithmGrid   = "grid"
	AlgorithmRadial = "radial"
)

// DefaultAlgorithm is the layout used when none is requested.
const DefaultAlgorithm = AlgorithmForce

// Format constants for output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// ValidAlgorithms is the set of supported layout algorithms.
var ValidAlgorithms = map[string]bool{
	AlgorithmForce:  true,
	AlgorithmGrid:   true,
	AlgorithmRadial: true,
}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the layout pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options
	Algorithm string     `json:"algorithm,omitempty"`
	Sim       sim.Config `json:"sim,omitempty"`     // force simulation parameters
	Spacing   float64    `json:"spacing,omitempty"` // grid cell / radial ring distance

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Refresh bypasses the cache and recomputes every stage.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks fields and applies defaults for the full
// pipeline. Idempotent: calling it multiple times has the same effect as
// calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if err := ValidateAlgorithm(o.Algorithm); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Spacing == 0 {
		o.Spacing = static.DefaultSpacing
	}

	// A wholly zero Sim means the caller never touched it. A partially set
	// one is taken at face value: zero is a valid setting for the force
	// strengths, so ApplyDefaults must not rewrite it.
	if o.Sim == (sim.Config{}) {
		o.Sim = sim.DefaultConfig()
	}
	o.Sim.ApplyDefaults()
	if err := o.Sim.Validate(); err != nil {
		return err
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// layoutKeyOpts builds the cache key inputs for the layout stage. Only the
// parameters the chosen algorithm actually reads participate in the key.
func (o Options) layoutKeyOpts() cache.LayoutKeyOpts {
	if o.Algorithm == AlgorithmForce {
		return cache.LayoutKeyOpts{Algorithm: o.Algorithm, Config: o.Sim}
	}
	return cache.LayoutKeyOpts{Algorithm: o.Algorithm, Config: o.Spacing}
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateAlgorithm checks that a layout algorithm is valid.
func ValidateAlgorithm(algorithm string) error {
	if !ValidAlgorithms[algorithm] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid algorithm: %q (must be one of: force, grid, radial)", algorithm)
	}
	return nil
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: dot, svg, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// GraphHash is the content hash of the input graph.
	GraphHash string

	// Layout contains the computed positions and run statistics.
	Layout graph.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	Iterations int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}
