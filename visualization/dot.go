package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/samber/lo"

	"github.com/anggasct/intersection"
)

// DOTGenerator generates Graphviz DOT representations of the controller's
// transition table
type DOTGenerator struct {
	rows      []intersection.Transition
	current   intersection.Phase
	highlight bool
	emergency intersection.EmergencyState
	options   DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowSignals    bool
	ShowPreemption bool
	RankDirection  string // "TB", "LR", "BT", "RL"
	NodeShape      string
	CurrentColor   string
	EmergencyColor string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowSignals:    true,
		ShowPreemption: true,
		RankDirection:  "LR",
		NodeShape:      "box",
		CurrentColor:   "gold",
		EmergencyColor: "red",
	}
}

// NewDOTGenerator creates a generator for the given transition table
func NewDOTGenerator(rows []intersection.Transition, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		rows:      rows,
		emergency: intersection.EmergencyStandby,
		options:   opts,
	}
}

// ForEngine creates a generator for e's table with its current phase highlighted
func ForEngine(e *intersection.Engine, options ...DOTOptions) *DOTGenerator {
	snapshot := e.Snapshot()
	return NewDOTGenerator(e.Transitions(), options...).
		Highlight(snapshot.Phase).
		Emergency(snapshot.Emergency)
}

// Highlight marks phase as the current one
func (g *DOTGenerator) Highlight(phase intersection.Phase) *DOTGenerator {
	g.current = phase
	g.highlight = true
	return g
}

// Emergency colours the current phase as overridden when state is not STANDBY
func (g *DOTGenerator) Emergency(state intersection.EmergencyState) *DOTGenerator {
	g.emergency = state
	return g
}

// Generate creates a DOT representation of the transition table
func (g *DOTGenerator) Generate() (string, error) {
	if len(g.rows) == 0 {
		return "", fmt.Errorf("no transitions to render")
	}

	var dot strings.Builder

	dot.WriteString("digraph Intersection {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	g.generatePhases(&dot)
	g.generateTransitions(&dot)

	dot.WriteString("}\n")

	return dot.String(), nil
}

// generatePhases generates DOT nodes for all phases
func (g *DOTGenerator) generatePhases(dot *strings.Builder) {
	dot.WriteString("  // Phases\n")

	for i, row := range g.rows {
		fillColor := "lightblue"
		if i == 0 {
			fillColor = "lightgreen"
		}
		if g.highlight && row.Phase == g.current {
			fillColor = g.options.CurrentColor
			if g.emergency != intersection.EmergencyStandby {
				fillColor = g.options.EmergencyColor
			}
		}

		label := row.Phase.String()
		if g.options.ShowSignals {
			label += fmt.Sprintf("\\nNS %s (%s)\\nEW %s (%s)",
				row.Signals.NorthSouth, row.Signals.NorthSouthStatus,
				row.Signals.EastWest, row.Signals.EastWestStatus)
		}

		dot.WriteString(fmt.Sprintf("  \"%s\" [style=\"filled\" fillcolor=%s label=\"%s\"];\n",
			row.Phase, fillColor, label))
	}
}

// generateTransitions generates DOT edges for the cycle and for preemption
func (g *DOTGenerator) generateTransitions(dot *strings.Builder) {
	dot.WriteString("  // Transitions\n")

	for _, row := range g.rows {
		dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\"];\n",
			row.Phase, row.Next, intersection.InputTimerExpired))
	}

	if !g.options.ShowPreemption {
		return
	}

	preemptible := lo.Filter(g.rows, func(row intersection.Transition, _ int) bool {
		return row.Phase != intersection.PedestrianWalk && row.Next != intersection.PedestrianWalk
	})
	edges := lo.Map(preemptible, func(row intersection.Transition, _ int) string {
		return fmt.Sprintf("  \"%s\" -> \"%s\" [style=dashed label=\"%s\"];\n",
			row.Phase, intersection.PedestrianWalk, intersection.InputPedestrianRequest)
	})
	dot.WriteString(strings.Join(edges, ""))
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(rows []intersection.Transition, options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(rows, options...),
	}
}

// Generate creates an SVG representation of the transition table
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}

// GenerateSVG creates an SVG representation of the transition table
func (g *DOTGenerator) GenerateSVG() (string, error) {
	svgGen := &SVGGenerator{dotGenerator: g}
	return svgGen.Generate()
}
