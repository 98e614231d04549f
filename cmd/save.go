package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/project"
	"github.com/petrolab/psengine/internal/section"
	"github.com/petrolab/psengine/internal/telemetry"
)

var saveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Store the current topology as a named save",
	Args:  cobra.ExactArgs(1),
	RunE:  runSave,
}

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "List named saves",
	RunE:  runSaves,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the project file with a named save",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a project file and adopt it",
	Long: "Rebuilds the section from the given file, re-checking every key\n" +
		"uniqueness and endpoint reference, then writes it as the current\n" +
		"project. All duplicate keys are reported together.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(savesCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(importCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	snap, err := project.Load(cfg.ProjectFile)
	if err != nil {
		return err
	}

	st, err := project.OpenStore(cmd.Context(), cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Put(cmd.Context(), args[0], snap); err != nil {
		return err
	}

	em := newEmitter(cfg)
	defer em.Close()
	_ = em.Emit(telemetry.Event{Kind: telemetry.KindProjectSaved, Data: map[string]string{"name": args[0]}})

	fmt.Printf("saved %q (%d points, %d lines)\n", args[0], len(snap.Points), len(snap.Lines))
	return nil
}

func runSaves(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := project.OpenStore(cmd.Context(), cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	saves, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(saves) == 0 {
		fmt.Println("no saves")
		return nil
	}
	for _, info := range saves {
		fmt.Printf("  %-24s %s\n", info.Name, info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := project.OpenStore(cmd.Context(), cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := project.Save(snap, cfg.ProjectFile); err != nil {
		return err
	}
	fmt.Printf("restored %q to %s\n", args[0], cfg.ProjectFile)
	return nil
}

func runImport(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	snap, err := project.Load(args[0])
	if err != nil {
		return err
	}

	if _, err := project.Import(snap); err != nil {
		var dup *section.DuplicateKeyError
		if errors.As(err, &dup) {
			for _, c := range dup.Conflicts {
				fmt.Printf("duplicate key %s = %s: records #%d and #%d\n",
					c.Key.Phases, c.Key.Out, c.FirstID, c.SecondID)
			}
		}
		return err
	}

	if err := project.Save(snap, cfg.ProjectFile); err != nil {
		return err
	}
	fmt.Printf("imported %s (%d points, %d lines)\n", args[0], len(snap.Points), len(snap.Lines))
	return nil
}
