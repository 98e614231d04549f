package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/connect"
	"github.com/petrolab/psengine/internal/project"
	"github.com/petrolab/psengine/internal/telemetry"
)

var connectCmd = &cobra.Command{
	Use:   "connect <line-id>",
	Short: "Rank invariant point candidates for a line's open ends",
	Long: "Lists the topologically compatible invariant points for each open end of\n" +
		"a line, nearest first. With --auto, unambiguous ends are assigned and the\n" +
		"project is saved.",
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().Bool("auto", false, "assign unambiguous candidates and save")
	connectCmd.Flags().Float64("max-dist", 0, "candidate distance cutoff in diagram units (0 = no cutoff)")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lineID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad line id %q: %w", args[0], err)
	}
	auto, _ := cmd.Flags().GetBool("auto")
	maxDist, _ := cmd.Flags().GetFloat64("max-dist")
	if maxDist == 0 {
		maxDist = cfg.ConnectDist
	}

	s, err := loadSection(cfg)
	if err != nil {
		return err
	}
	begin, end, err := connect.Candidates(s, lineID, maxDist)
	if err != nil {
		return err
	}

	printCandidates := func(label string, cands []connect.Candidate) {
		if len(cands) == 0 {
			fmt.Printf("%s: no compatible invariant point\n", label)
			return
		}
		fmt.Printf("%s:\n", label)
		for _, c := range cands {
			ip := s.InvPoint(c.ID)
			fmt.Printf("  i%-3d %-40s dist %.4g\n", c.ID, ip.Label(s.Excess), c.Dist)
		}
	}
	printCandidates("begin", begin)
	printCandidates("end", end)

	if !auto {
		return nil
	}

	opts := connect.DefaultOptions()
	opts.AutoAssign = true
	opts.MaxDistance = maxDist
	changed, err := connect.Autoconnect(s, lineID, opts)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Println("nothing to assign")
		return nil
	}
	if err := project.Save(project.Export(s), cfg.ProjectFile); err != nil {
		return err
	}

	em := newEmitter(cfg)
	defer em.Close()
	_ = em.Emit(telemetry.Event{Kind: telemetry.KindConnected, Line: lineID})

	ul := s.UniLine(lineID)
	fmt.Printf("u%d now %s\n", lineID, endpoints(ul))
	return nil
}
