package visualization_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anggasct/intersection"
	"github.com/anggasct/intersection/visualization"
)

func TestDOTGeneration(t *testing.T) {
	generator := visualization.NewDOTGenerator(intersection.Transitions())

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "digraph Intersection") {
		t.Error("DOT content should contain graph declaration")
	}

	for _, phase := range intersection.Phases() {
		if !strings.Contains(dotContent, "\""+phase.String()+"\" [") {
			t.Errorf("DOT content should contain node for %s", phase)
		}
	}

	if !strings.Contains(dotContent, "\"NS_GREEN_EW_RED\" -> \"NS_YELLOW_EW_RED\" [label=\"TIMER_EXPIRED\"]") {
		t.Error("DOT content should contain the first cycle edge")
	}

	if !strings.Contains(dotContent, "\"PEDESTRIAN_WALK\" -> \"NS_GREEN_EW_RED\"") {
		t.Error("DOT content should close the cycle")
	}

	if !strings.Contains(dotContent, "lightgreen") {
		t.Error("DOT content should mark the initial phase")
	}

	if !strings.Contains(dotContent, "STOP (PED)") {
		t.Error("DOT content should show signal aspects")
	}

	t.Logf("Generated DOT content:\n%s", dotContent)
}

func TestDOTGenerationPreemptionEdges(t *testing.T) {
	dotContent, err := visualization.NewDOTGenerator(intersection.Transitions()).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if got := strings.Count(dotContent, "style=dashed"); got != 3 {
		t.Errorf("expected 3 preemption edges, got %d", got)
	}
	if strings.Contains(dotContent, "\"NS_RED_EW_YELLOW\" -> \"PEDESTRIAN_WALK\" [style=dashed") {
		t.Error("canonical edge into the walk phase should not be duplicated")
	}

	options := visualization.DefaultDOTOptions()
	options.ShowPreemption = false
	options.ShowSignals = false
	dotContent, err = visualization.NewDOTGenerator(intersection.Transitions(), options).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}
	if strings.Contains(dotContent, "style=dashed") {
		t.Error("preemption edges should be hidden")
	}
	if strings.Contains(dotContent, "CAUTION") {
		t.Error("signal aspects should be hidden")
	}
}

func TestDOTGenerationHighlightsEngine(t *testing.T) {
	clock := intersection.NewFakeClock(time.Unix(0, 0))
	engine, err := intersection.NewBuilder().Clock(clock).Seed(1).Build()
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	engine.Play()
	clock.Advance(5 * time.Second)

	dotContent, err := visualization.ForEngine(engine).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}
	if !strings.Contains(dotContent, "\"NS_YELLOW_EW_RED\" [style=\"filled\" fillcolor=gold") {
		t.Error("current phase should be highlighted")
	}

	engine.ActivateEmergency()
	dotContent, err = visualization.ForEngine(engine).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}
	if !strings.Contains(dotContent, "\"NS_YELLOW_EW_RED\" [style=\"filled\" fillcolor=red") {
		t.Error("overridden phase should use the emergency colour")
	}
}

func TestDOTGenerationEmptyTable(t *testing.T) {
	if _, err := visualization.NewDOTGenerator(nil).Generate(); err == nil {
		t.Error("expected an error for an empty table")
	}
}

func TestDOTGenerator_GenerateToFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "intersection.dot")

	err := visualization.NewDOTGenerator(intersection.Transitions()).GenerateToFile(filename)
	if err != nil {
		t.Fatalf("Failed to generate DOT file: %v", err)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read DOT file: %v", err)
	}
	if !strings.HasPrefix(string(content), "digraph Intersection") {
		t.Error("DOT file should start with the graph declaration")
	}
}

func TestSVGGenerator(t *testing.T) {
	if _, err := exec.LookPath("dot"); err != nil {
		t.Skip("Graphviz is not installed")
	}

	svgContent, err := visualization.NewSVGGenerator(intersection.Transitions()).Generate()
	if err != nil {
		t.Fatalf("Failed to generate SVG: %v", err)
	}

	if !strings.Contains(svgContent, "<svg") {
		t.Error("Content should be valid SVG")
	}
}
