package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/connect"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/project"
	"github.com/petrolab/psengine/internal/telemetry"
	"github.com/petrolab/psengine/internal/therm"
)

var calcCmd = &cobra.Command{
	Use:   "calc <phase>... = <out>...",
	Short: "Solve an equilibrium and register it in the project",
	Long: "Solves the assemblage left of \"=\" with the zero-mode phases right of it.\n" +
		"One zero phase samples a univariant line, two locate an invariant point.\n" +
		"A line whose key is already registered is merged into the existing line;\n" +
		"a known point is re-solved in place. The project file is saved on success.",
	Args: cobra.MinimumNArgs(3),
	RunE: runCalc,
}

func init() {
	rootCmd.AddCommand(calcCmd)
}

// splitCalcArgs separates "<phase>... = <out>..." on the "=" token.
func splitCalcArgs(args []string) (phases, out phase.Assemblage, err error) {
	sep := -1
	for i, a := range args {
		if a == "=" {
			sep = i
			break
		}
	}
	if sep < 1 || sep == len(args)-1 {
		return phases, out, fmt.Errorf(`expected "<phase>... = <out>...", got %q`, args)
	}
	return phase.FromStrings(args[:sep]...), phase.FromStrings(args[sep+1:]...), nil
}

func runCalc(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	phases, out, err := splitCalcArgs(args)
	if err != nil {
		return err
	}
	if out.Len() > 2 {
		return fmt.Errorf("at most 2 zero phases, got %d", out.Len())
	}

	s, err := loadSection(cfg)
	if err != nil {
		return err
	}
	gw, err := therm.NewTC(cfg.WorkDir)
	if err != nil {
		return err
	}

	em := newEmitter(cfg)
	defer em.Close()
	_ = em.Emit(telemetry.Event{
		Kind: telemetry.KindCalcStart,
		Data: map[string]string{"phases": phases.Key(), "out": out.Key()},
	})

	var oc connect.Outcome
	if out.Len() == 2 {
		oc, err = connect.CalcInv(cmd.Context(), gw, s, phases, out, searchOptions(cfg))
	} else {
		oc, err = connect.CalcUni(cmd.Context(), gw, s, phases, out.Phases()[0], searchOptions(cfg))
	}
	if err != nil {
		return err
	}
	_ = em.Emit(telemetry.Event{Kind: telemetry.KindCalcDone})

	switch {
	case out.Len() == 2 && oc.Created:
		fmt.Printf("registered invariant point i%d\n", oc.ID)
		_ = em.Emit(telemetry.Event{Kind: telemetry.KindPointAdded, Point: oc.ID})
	case out.Len() == 2:
		fmt.Printf("re-solved invariant point i%d\n", oc.ID)
	case oc.Created:
		fmt.Printf("registered univariant line u%d with %d samples\n", oc.ID, oc.Samples)
		_ = em.Emit(telemetry.Event{Kind: telemetry.KindLineAdded, Line: oc.ID})
	default:
		fmt.Printf("merged %d samples into univariant line u%d\n", oc.Samples, oc.ID)
		_ = em.Emit(telemetry.Event{Kind: telemetry.KindLineMerged, Line: oc.ID})
	}
	if oc.Gap != nil {
		fmt.Printf("warning: unsampled span %g..%g on u%d\n", oc.Gap.From, oc.Gap.To, oc.Gap.LineID)
	}

	return project.Save(project.Export(s), cfg.ProjectFile)
}
