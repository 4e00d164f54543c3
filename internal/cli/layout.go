package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/cache"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/sim"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/pipeline"
)

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output     string
		noCache    bool
		refresh    bool
		algorithm  string
		spacing    float64
		configPath string
	)
	flagCfg := sim.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute node positions for a graph",
		Long: `Compute node positions for a graph.

The layout command takes a graph.json file and computes positions for every
node. The default force algorithm runs a Barnes-Hut approximated spring and
repulsion simulation until the layout settles; grid and radial are cheap
deterministic alternatives.

The output is a layout.json file that can be rendered to DOT or SVG using
the 'render' command, or fed back as initial positions.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveSimConfig(cmd, configPath, flagCfg)
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Algorithm: algorithm,
				Sim:       cfg,
				Spacing:   spacing,
				Refresh:   refresh,
				Logger:    c.Logger,
			}
			return c.runLayout(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when cached")

	// Algorithm flags
	cmd.Flags().StringVarP(&algorithm, "algo", "a", pipeline.DefaultAlgorithm, "layout algorithm: force (default), grid, radial")
	cmd.Flags().Float64Var(&spacing, "spacing", 0, "grid cell / radial ring spacing (grid, radial)")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML simulation profile (force)")

	// Force simulation flags
	cmd.Flags().Float64Var(&flagCfg.Theta, "theta", flagCfg.Theta, "Barnes-Hut accuracy parameter")
	cmd.Flags().Float64Var(&flagCfg.Damping, "damping", flagCfg.Damping, "velocity damping per tick")
	cmd.Flags().Float64Var(&flagCfg.RepulsionStrength, "repulsion", flagCfg.RepulsionStrength, "repulsion strength")
	cmd.Flags().Float64Var(&flagCfg.SpringStiffness, "stiffness", flagCfg.SpringStiffness, "default edge stiffness")
	cmd.Flags().Float64Var(&flagCfg.RestLength, "rest-length", flagCfg.RestLength, "default edge rest length")
	cmd.Flags().IntVar(&flagCfg.MaxIterations, "max-iterations", flagCfg.MaxIterations, "iteration budget")
	cmd.Flags().Float64Var(&flagCfg.ConvergenceThreshold, "convergence", flagCfg.ConvergenceThreshold, "kinetic energy convergence threshold")
	cmd.Flags().Float64Var(&flagCfg.GridSnap, "grid-snap", flagCfg.GridSnap, "snap settled positions to this increment (0 disables)")
	cmd.Flags().Uint64Var(&flagCfg.Seed, "seed", flagCfg.Seed, "seed for randomized initial positions")

	return cmd
}

// resolveSimConfig merges a TOML profile with explicit command-line flags.
// Flags the user actually set win over profile values.
func resolveSimConfig(cmd *cobra.Command, configPath string, flagCfg sim.Config) (sim.Config, error) {
	if configPath == "" {
		return flagCfg, nil
	}

	cfg, err := sim.LoadConfig(configPath)
	if err != nil {
		return sim.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("theta") {
		cfg.Theta = flagCfg.Theta
	}
	if f.Changed("damping") {
		cfg.Damping = flagCfg.Damping
	}
	if f.Changed("repulsion") {
		cfg.RepulsionStrength = flagCfg.RepulsionStrength
	}
	if f.Changed("stiffness") {
		cfg.SpringStiffness = flagCfg.SpringStiffness
	}
	if f.Changed("rest-length") {
		cfg.RestLength = flagCfg.RestLength
	}
	if f.Changed("max-iterations") {
		cfg.MaxIterations = flagCfg.MaxIterations
	}
	if f.Changed("convergence") {
		cfg.ConvergenceThreshold = flagCfg.ConvergenceThreshold
	}
	if f.Changed("grid-snap") {
		cfg.GridSnap = flagCfg.GridSnap
	}
	if f.Changed("seed") {
		cfg.Seed = flagCfg.Seed
	}
	return cfg, nil
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner := c.newRunner(noCache)
	defer runner.Cache.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", opts.Algorithm))
	spinner.Start()

	layout, cacheHit, err := computeWithCacheInfo(ctx, runner, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(input) + ".layout.json"
	}

	if err := graph.WriteLayoutFile(layout, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout %s", layout.State)
	printFile(outputPath)
	printStats(len(g.Nodes), len(g.Edges), layout.Iterations, cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+input+" --layout "+outputPath)

	return nil
}

// computeWithCacheInfo hashes the graph and runs the layout stage.
func computeWithCacheInfo(ctx context.Context, runner *pipeline.Runner, g graph.Graph, opts pipeline.Options) (graph.Layout, bool, error) {
	if err := graph.Validate(g); err != nil {
		return graph.Layout{}, false, err
	}
	data, err := graph.MarshalGraph(g)
	if err != nil {
		return graph.Layout{}, false, err
	}
	return runner.ComputeLayoutWithCacheInfo(ctx, g, cache.Hash(data), opts)
}
