package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/pipeline"
)

// renderCommand creates the render command for generating artifacts.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		layoutPath string
		output     string
		formats    string
		detailed   bool
		noCache    bool
		refresh    bool
		algorithm  string
	)

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a graph layout to DOT, SVG, or JSON",
		Long: `Render a graph layout to DOT, SVG, or JSON.

With --layout, an existing layout.json (produced by 'layout') is rendered
directly. Without it, the layout is computed first using the chosen
algorithm, exactly as 'layout' would.

Multiple formats can be produced in one run with a comma-separated list:

  treelayout render graph.json -f svg,dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				Algorithm: algorithm,
				Formats:   parseFormats(formats),
				Detailed:  detailed,
				Refresh:   refresh,
				Logger:    c.Logger,
			}
			return c.runRender(cmd.Context(), args[0], layoutPath, opts, output, noCache)
		},
	}

	cmd.Flags().StringVar(&layoutPath, "layout", "", "render an existing layout.json instead of computing one")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base name (default: input without extension)")
	cmd.Flags().StringVarP(&formats, "formats", "f", "svg", "comma-separated output formats: dot, svg, json")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node metadata in labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().StringVarP(&algorithm, "algo", "a", pipeline.DefaultAlgorithm, "layout algorithm when computing: force (default), grid, radial")

	return cmd
}

// runRender renders artifacts for the graph, computing the layout if needed.
func (c *CLI) runRender(ctx context.Context, input, layoutPath string, opts pipeline.Options, output string, noCache bool) error {
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner := c.newRunner(noCache)
	defer runner.Cache.Close()

	prog := newProgress(c.Logger)

	var artifacts map[string][]byte
	var cached bool
	var iterations int
	if layoutPath != "" {
		layout, err := graph.ReadLayoutFile(layoutPath)
		if err != nil {
			return fmt.Errorf("load layout %s: %w", layoutPath, err)
		}
		iterations = layout.Iterations
		artifacts, cached, err = runner.RenderWithCacheInfo(ctx, g, layout, opts)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
	} else {
		result, err := runner.Execute(ctx, g, opts)
		if err != nil {
			return err
		}
		artifacts = result.Artifacts
		cached = result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit
		iterations = result.Layout.Iterations
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	base := output
	if base == "" {
		base = outputBase(input)
	}

	printSuccess("Render complete")
	for _, format := range opts.Formats {
		path := base + "." + format
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(len(g.Nodes), len(g.Edges), iterations, cached)
	prog.done(fmt.Sprintf("Rendered %d formats", len(opts.Formats)))

	return nil
}
