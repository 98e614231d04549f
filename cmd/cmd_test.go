package cmd

import (
	"strings"
	"testing"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/connect"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
)

func TestEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		begin, end int
		want       string
	}{
		{"both open", section.None, section.None, "open..open"},
		{"begin connected", 3, section.None, "i3..open"},
		{"fully connected", 3, 7, "i3..i7"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ul := &section.UniLine{Begin: tt.begin, End: tt.end}
			if got := endpoints(ul); got != tt.want {
				t.Errorf("endpoints = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindingStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		confidence connect.Confidence
		registered int
		want       string
	}{
		{"stable unregistered", connect.Stable, section.None, "stable"},
		{"metastable unregistered", connect.Metastable, section.None, "metastable"},
		{"stable registered", connect.Stable, 4, "stable, already registered as i4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := connect.Finding{Confidence: tt.confidence, Registered: tt.registered}
			if got := findingStatus(f); got != tt.want {
				t.Errorf("findingStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbeStatus(t *testing.T) {
	t.Parallel()

	if got := probeStatus(connect.Probe{Registered: section.None}); got != "new" {
		t.Errorf("unregistered probe = %q, want %q", got, "new")
	}
	if got := probeStatus(connect.Probe{Registered: 2}); got != "registered as i2" {
		t.Errorf("registered probe = %q, want %q", got, "registered as i2")
	}
}

func TestSectionHeader(t *testing.T) {
	t.Parallel()

	s := section.NewPT([2]float64{300, 700}, [2]float64{1, 10})
	s.Universe = phase.FromStrings("g", "bi", "mu", "q")

	header := sectionHeader(s)
	if !strings.Contains(header, "window 300..700 x 1..10") {
		t.Errorf("header missing window: %q", header)
	}
	if strings.Contains(header, "excess:") {
		t.Errorf("header lists excess for an excess-free section: %q", header)
	}

	s.Excess = phase.FromStrings("q")
	if header = sectionHeader(s); !strings.Contains(header, "excess:   q") {
		t.Errorf("header missing excess phases: %q", header)
	}
}

func TestSearchOptionsFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	opts := searchOptions(config.Config{})
	def := searchOptions(config.Config{Search: config.SearchConfig{
		Extend: 0.05, Steps: 50, Budget: 40, BracketTol: 0.1, MaxVariance: 4,
	}})
	if opts != def {
		t.Errorf("zero config = %+v, want defaults %+v", opts, def)
	}

	tuned := searchOptions(config.Config{Search: config.SearchConfig{Budget: 7}})
	if tuned.Budget != 7 {
		t.Errorf("Budget = %d, want 7", tuned.Budget)
	}
	if tuned.Extend != def.Extend {
		t.Errorf("Extend = %g, want default %g", tuned.Extend, def.Extend)
	}
}
