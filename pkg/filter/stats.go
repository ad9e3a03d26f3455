package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// Stats captures what a chain did to a tree.
type Stats struct {
	Input    dom.Counts    `json:"input"`
	Output   dom.Counts    `json:"output"`
	Stages   []StageStats  `json:"stages"`
	Duration time.Duration `json:"duration_ns"`
}

// StageStats captures a single stage of a chain.
type StageStats struct {
	Name        string        `json:"name"`
	Input       dom.Counts    `json:"input"`
	Output      dom.Counts    `json:"output"`
	RemovedRoot bool          `json:"removed_root"`
	Duration    time.Duration `json:"duration_ns"`
}

// ElementsRemoved returns how many elements the chain dropped overall.
func (s *Stats) ElementsRemoved() int {
	return s.Input.Elements - s.Output.Elements
}

// RemovedRoot reports whether the chain removed the whole tree.
func (s *Stats) RemovedRoot() bool {
	for _, st := range s.Stages {
		if st.RemovedRoot {
			return true
		}
	}
	return false
}

// ReductionPercent returns the share of elements removed.
func (s *Stats) ReductionPercent() float64 {
	if s.Input.Elements == 0 {
		return 0
	}
	return float64(s.ElementsRemoved()) / float64(s.Input.Elements) * 100
}

// String returns a human-readable summary.
func (s *Stats) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Elements: %d -> %d (%.1f%% reduction)\n",
		s.Input.Elements, s.Output.Elements, s.ReductionPercent()))
	sb.WriteString(fmt.Sprintf("Text nodes: %d -> %d\n", s.Input.Texts, s.Output.Texts))

	for _, st := range s.Stages {
		line := fmt.Sprintf("  %-22s %6d -> %-6d %v", st.Name,
			st.Input.Elements, st.Output.Elements, st.Duration.Round(time.Microsecond))
		if st.RemovedRoot {
			line += " (root removed)"
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString(fmt.Sprintf("Total: %v\n", s.Duration.Round(time.Microsecond)))
	return sb.String()
}
