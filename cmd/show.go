package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/section"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the section topology",
	Long:  "Lists every invariant point and univariant line in the project, with positions, endpoint connectivity, and origins.",
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s, err := loadSection(cfg)
	if err != nil {
		return err
	}

	fmt.Print(sectionHeader(s))

	points, lines := s.Counts()
	fmt.Printf("\n%d invariant points\n", points)
	for _, ip := range s.InvPoints() {
		pos := "unsolved"
		if ip.Pos != nil {
			pos = fmt.Sprintf("(%g, %g)", ip.Pos.X, ip.Pos.Y)
		}
		fmt.Printf("  i%-3d %-40s %-18s %s\n", ip.ID, ip.Label(s.Excess), pos, ip.Origin)
	}

	fmt.Printf("\n%d univariant lines\n", lines)
	for _, ul := range s.UniLines() {
		fmt.Printf("  u%-3d %-40s %s  %d samples, length %.4g  %s\n",
			ul.ID, ul.Label(s.Excess), endpoints(ul), len(ul.Points), geom.Length(ul.Points), ul.Origin)
	}
	return nil
}

func sectionHeader(s *section.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "section %s/%s  window %g..%g x %g..%g\n",
		s.XVar, s.YVar, s.Range.X0, s.Range.X1, s.Range.Y0, s.Range.Y1)
	fmt.Fprintf(&b, "universe: %s\n", strings.Join(s.Universe.Strings(), " "))
	if !s.Excess.Empty() {
		fmt.Fprintf(&b, "excess:   %s\n", strings.Join(s.Excess.Strings(), " "))
	}
	return b.String()
}

func endpoints(ul *section.UniLine) string {
	name := func(id int) string {
		if id == section.None {
			return "open"
		}
		return fmt.Sprintf("i%d", id)
	}
	return fmt.Sprintf("%s..%s", name(ul.Begin), name(ul.End))
}
