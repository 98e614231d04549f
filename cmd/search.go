package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/connect"
	"github.com/petrolab/psengine/internal/project"
	"github.com/petrolab/psengine/internal/section"
	"github.com/petrolab/psengine/internal/telemetry"
	"github.com/petrolab/psengine/internal/therm"
)

var searchCmd = &cobra.Command{
	Use:   "search <line-id>",
	Short: "Search past a line's open end for the next invariant point",
	Long: "Extends the line along its tangent and bisects the stability transition\n" +
		"to locate the invariant point terminating it. Requires an engine working\n" +
		"directory.",
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var exploreCmd = &cobra.Command{
	Use:   "explore <line-id>",
	Short: "Sweep candidate invariant points along a line",
	Long: "Probes every phase addition and removal compatible with the line inside\n" +
		"an extended window, reporting which candidate points actually solve.",
	Args: cobra.ExactArgs(1),
	RunE: runExplore,
}

func init() {
	searchCmd.Flags().Bool("before", false, "search behind the line's first sample instead")
	searchCmd.Flags().Bool("register", false, "register new findings as unverified points and save")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exploreCmd)
}

func searchOptions(cfg config.Config) connect.Options {
	opts := connect.DefaultOptions()
	if cfg.Search.Extend > 0 {
		opts.Extend = cfg.Search.Extend
	}
	if cfg.Search.Steps > 0 {
		opts.Steps = cfg.Search.Steps
	}
	if cfg.Search.Budget > 0 {
		opts.Budget = cfg.Search.Budget
	}
	if cfg.Search.BracketTol > 0 {
		opts.BracketTol = cfg.Search.BracketTol
	}
	if cfg.Search.MaxVariance > 0 {
		opts.MaxVariance = cfg.Search.MaxVariance
	}
	return opts
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lineID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad line id %q: %w", args[0], err)
	}
	before, _ := cmd.Flags().GetBool("before")
	register, _ := cmd.Flags().GetBool("register")

	s, err := loadSection(cfg)
	if err != nil {
		return err
	}
	gw, err := therm.NewTC(cfg.WorkDir)
	if err != nil {
		return err
	}

	dir := connect.Beyond
	if before {
		dir = connect.Before
	}
	findings, err := connect.SearchInvariant(cmd.Context(), gw, s, lineID, dir, searchOptions(cfg))
	if err != nil && len(findings) == 0 {
		return err
	}
	if err != nil {
		fmt.Printf("warning: search stopped early: %v\n", err)
	}
	if len(findings) == 0 {
		fmt.Println("no stability transition inside the search reach")
		return nil
	}

	em := newEmitter(cfg)
	defer em.Close()

	registered := 0
	for _, f := range findings {
		status := findingStatus(f)
		fmt.Printf("(%g, %g)  %s = %s  [%s]\n",
			f.Pos.X, f.Pos.Y,
			f.Phases.Key(), strings.Join(f.Out.Strings(), " "), status)
		_ = em.Emit(telemetry.Event{
			Kind: telemetry.KindSearchResult,
			Line: lineID,
			Data: map[string]string{"key": f.Phases.Key(), "confidence": status},
		})

		if register && f.Registered == section.None {
			pos := f.Pos
			id, err := s.InsertInv(&section.InvPoint{
				Phases: f.Phases,
				Out:    f.Out,
				Pos:    &pos,
				Origin: section.Unverified,
			})
			if err != nil {
				return err
			}
			_ = em.Emit(telemetry.Event{Kind: telemetry.KindPointAdded, Point: id})
			registered++
		}
	}

	if registered > 0 {
		if err := project.Save(project.Export(s), cfg.ProjectFile); err != nil {
			return err
		}
		fmt.Printf("registered %d unverified point(s)\n", registered)
	}
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lineID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad line id %q: %w", args[0], err)
	}

	s, err := loadSection(cfg)
	if err != nil {
		return err
	}
	gw, err := therm.NewTC(cfg.WorkDir)
	if err != nil {
		return err
	}

	probes, err := connect.Explore(cmd.Context(), gw, s, lineID, searchOptions(cfg))
	if err != nil && len(probes) == 0 {
		return err
	}
	if err != nil {
		fmt.Printf("warning: sweep stopped early: %v\n", err)
	}
	if len(probes) == 0 {
		fmt.Println("no candidate invariant point solved")
		return nil
	}
	for _, p := range probes {
		fmt.Printf("(%g, %g)  %s = %s  [%s]\n",
			p.Pos.X, p.Pos.Y,
			p.Phases.Key(), strings.Join(p.Out.Strings(), " "), probeStatus(p))
	}
	return nil
}

func findingStatus(f connect.Finding) string {
	status := f.Confidence.String()
	if f.Registered != section.None {
		status += fmt.Sprintf(", already registered as i%d", f.Registered)
	}
	return status
}

func probeStatus(p connect.Probe) string {
	if p.Registered != section.None {
		return fmt.Sprintf("registered as i%d", p.Registered)
	}
	return "new"
}
