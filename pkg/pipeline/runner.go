package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/cache"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/sim"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/static"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/observability"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, g graph.Graph, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if err := graph.Validate(g); err != nil {
		return nil, err
	}
	graphData, err := graph.MarshalGraph(g)
	if err != nil {
		return nil, err
	}

	result := &Result{
		GraphHash: cache.Hash(graphData),
		Artifacts: make(map[string][]byte),
	}
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)

	// Stage 1: Layout
	layoutStart := time.Now()
	layout, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, g, result.GraphHash, opts)
	if err != nil {
		return nil, err
	}
	result.Layout = layout
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Iterations = layout.Iterations
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"algorithm", opts.Algorithm,
		"nodes", len(g.Nodes),
		"iterations", layout.Iterations,
		"state", layout.State,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, layout, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ComputeLayout computes positions for a graph with caching.
func (r *Runner) ComputeLayout(ctx context.Context, g graph.Graph, opts Options) (graph.Layout, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return graph.Layout{}, err
	}
	graphData, err := graph.MarshalGraph(g)
	if err != nil {
		return graph.Layout{}, err
	}
	layout, _, err := r.ComputeLayoutWithCacheInfo(ctx, g, cache.Hash(graphData), opts)
	return layout, err
}

// ComputeLayoutWithCacheInfo computes positions with caching and returns
// cache hit info. Layouts are keyed by graph content hash plus the algorithm
// configuration: determinism makes a hit always valid.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, g graph.Graph, graphHash string, opts Options) (graph.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return graph.Layout{}, false, err
	}

	key := r.Keyer.LayoutKey(graphHash, opts.layoutKeyOpts())
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if layout, err := graph.UnmarshalLayout(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return layout, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, opts.Algorithm, len(g.Nodes))
	layout, err := r.computeLayout(ctx, g, opts)
	observability.Layout().OnLayoutComplete(ctx, opts.Algorithm, layout.Iterations, time.Since(start), err)
	if err != nil {
		return graph.Layout{}, false, err
	}
	layout.GraphHash = graphHash

	if data, err := graph.MarshalLayout(layout); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
			r.Logger.Warn("layout cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return layout, false, nil
}

// computeLayout dispatches to the configured algorithm.
func (r *Runner) computeLayout(ctx context.Context, g graph.Graph, opts Options) (graph.Layout, error) {
	switch opts.Algorithm {
	case AlgorithmGrid:
		return static.Grid(g, opts.Spacing)
	case AlgorithmRadial:
		return static.Radial(g, opts.Spacing)
	case AlgorithmForce:
		s, err := sim.New(opts.Sim, opts.Logger)
		if err != nil {
			return graph.Layout{}, err
		}
		if err := s.Start(g); err != nil {
			return graph.Layout{}, err
		}
		tick := func(res sim.TickResult) {
			observability.Layout().OnTick(ctx, res.Iteration, res.Energy)
		}
		s.OnTick(tick)
		if _, err := s.Run(ctx); err != nil {
			return graph.Layout{}, err
		}
		return s.Layout(), nil
	default:
		return graph.Layout{}, errors.New(errors.ErrCodeInvalidInput, "invalid algorithm: %q", opts.Algorithm)
	}
}

// Render generates artifacts for a computed layout with caching.
func (r *Runner) Render(ctx context.Context, g graph.Graph, layout graph.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, layout, opts)
	return artifacts, err
}

// RenderWithCacheInfo generates artifacts and reports whether every
// requested format came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g graph.Graph, layout graph.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	layoutData, err := graph.MarshalLayout(layout)
	if err != nil {
		return nil, false, err
	}
	layoutHash := cache.Hash(layoutData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	allHit := true
	for _, format := range opts.Formats {
		data, hit, err := r.renderFormat(ctx, g, layout, layoutData, layoutHash, format, opts)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data
		allHit = allHit && hit
	}
	return artifacts, allHit, nil
}

func (r *Runner) renderFormat(ctx context.Context, g graph.Graph, layout graph.Layout, layoutData []byte, layoutHash, format string, opts Options) ([]byte, bool, error) {
	// JSON is the layout itself; no recomputation to cache.
	if format == FormatJSON {
		return layoutData, true, nil
	}

	key := r.Keyer.ArtifactKey(layoutHash, cache.ArtifactKeyOpts{Format: format, Detailed: opts.Detailed})
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	start := time.Now()
	observability.Layout().OnRenderStart(ctx, format)
	data, err := r.generateArtifact(ctx, g, layout, format, opts)
	observability.Layout().OnRenderComplete(ctx, format, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		r.Logger.Warn("artifact cache write failed", "format", format, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return data, false, nil
}

func (r *Runner) generateArtifact(ctx context.Context, g graph.Graph, layout graph.Layout, format string, opts Options) ([]byte, error) {
	dot := render.ToDOT(g, layout.Positions, render.Options{Detailed: opts.Detailed})
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return render.RenderSVG(ctx, dot)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q", format)
	}
}

// applyLogger propagates the runner's logger into options that carry none.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil || opts.Logger == log.Default() {
		opts.Logger = r.Logger
	}
}
