package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/layout/sim"
)

// watchCommand creates the watch command: a live terminal view of the force
// simulation as it settles.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		output     string
		configPath string
	)
	flagCfg := sim.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "watch [graph.json]",
		Short: "Watch the force simulation settle live in the terminal",
		Long: `Watch the force simulation settle live in the terminal.

Nodes are drawn as dots in a scaled viewport while the simulation runs.
Keys: space pauses and resumes, r restarts from the initial placement,
q quits. With --output the final layout is written on exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveSimConfig(cmd, configPath, flagCfg)
			if err != nil {
				return err
			}
			return c.runWatch(cmd, args[0], cfg, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the final layout.json on exit")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML simulation profile")
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

func (c *CLI) runWatch(cmd *cobra.Command, input string, cfg sim.Config, output string) error {
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	s, err := sim.New(cfg, c.Logger)
	if err != nil {
		return err
	}
	if err := s.Start(g); err != nil {
		return err
	}

	model := newWatchModel(s, g)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	final, err := program.Run()
	if err != nil {
		return err
	}

	if output != "" {
		m := final.(watchModel)
		if err := graph.WriteLayoutFile(m.sim.Layout(), output); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printSuccess("Layout %s", m.sim.State())
		printFile(output)
	}
	return nil
}

// =============================================================================
// watchModel - Live Simulation View
// =============================================================================

// stepsPerFrame trades animation smoothness against settle time. Several
// simulation ticks per rendered frame keeps large graphs from crawling.
const stepsPerFrame = 4

// frameMsg drives the animation loop.
type frameMsg time.Time

func frameTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// watchModel is the bubbletea model for the live simulation view.
type watchModel struct {
	sim    *sim.Simulation
	g      graph.Graph
	paused bool
	width  int
	height int
}

func newWatchModel(s *sim.Simulation, g graph.Graph) watchModel {
	return watchModel{
		sim:    s,
		g:      g,
		width:  80,
		height: 24,
	}
}

func (m watchModel) Init() tea.Cmd {
	return frameTick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.sim.Cancel()
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "r":
			m.sim.Cancel()
			if err := m.sim.Start(m.g); err != nil {
				return m, tea.Quit
			}
			m.paused = false
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case frameMsg:
		if !m.paused {
			for i := 0; i < stepsPerFrame && m.sim.State() == sim.StateRunning; i++ {
				if _, err := m.sim.Step(); err != nil {
					break
				}
			}
		}
		return m, frameTick()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("treelayout watch"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("space pause  r restart  q quit"))
	b.WriteString("\n\n")

	state := m.sim.State()
	status := fmt.Sprintf("%-15s iteration %-6d energy %.4f",
		state, m.sim.Iterations(), m.sim.Energy())
	if m.paused && state == sim.StateRunning {
		status += "  " + StyleWarning.Render("paused")
	}
	b.WriteString(StyleValue.Render(status))
	b.WriteString("\n\n")

	b.WriteString(m.viewport())
	return b.String()
}

// viewport scales current node positions into a character grid.
func (m watchModel) viewport() string {
	cols := m.width - 4
	rows := m.height - 8
	if cols < 10 {
		cols = 10
	}
	if rows < 5 {
		rows = 5
	}

	positions := m.sim.Positions()
	if len(positions) == 0 {
		return ""
	}

	pinned := make(map[string]bool, len(m.g.Nodes))
	for _, n := range m.g.Nodes {
		if n.Pinned {
			pinned[n.ID] = true
		}
	}

	minX, maxX, minY, maxY := bounds(positions)
	spanX := maxX - minX
	spanY := maxY - minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}

	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}
	for id, p := range positions {
		col := int((p.X - minX) / spanX * float64(cols-1))
		row := int((p.Y - minY) / spanY * float64(rows-1))
		if pinned[id] {
			grid[row][col] = '◉'
		} else if grid[row][col] == ' ' {
			grid[row][col] = '·'
		} else {
			grid[row][col] = '•' // multiple nodes share this cell
		}
	}

	var b strings.Builder
	for _, line := range grid {
		b.WriteString("  ")
		b.WriteString(string(line))
		b.WriteString("\n")
	}
	return b.String()
}

func bounds(positions graph.Positions) (minX, maxX, minY, maxY float64) {
	first := true
	for _, p := range positions {
		if first {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			first = false
			continue
		}
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return minX, maxX, minY, maxY
}
