package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/project"
	"github.com/petrolab/psengine/internal/telemetry"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow external edits to the project file",
	Long:  "Reloads and summarizes the project whenever another process rewrites it. Interrupt to stop.",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.ProjectFile); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.ProjectFile, err)
	}

	w, err := project.NewWatcher(cfg.ProjectFile)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	em := newEmitter(cfg)
	defer em.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	fmt.Printf("watching %s\n", cfg.ProjectFile)
	for {
		select {
		case ch := <-w.Changes:
			if ch.Kind == project.ChangeRemoved {
				fmt.Printf("%s removed\n", ch.Path)
				continue
			}
			snap, err := project.Load(ch.Path)
			if err != nil {
				fmt.Printf("reload failed: %v\n", err)
				continue
			}
			if _, err := project.Import(snap); err != nil {
				fmt.Printf("reload rejected: %v\n", err)
				continue
			}
			_ = em.Emit(telemetry.Event{Kind: telemetry.KindProjectRead})
			fmt.Printf("reloaded: %d points, %d lines\n", len(snap.Points), len(snap.Lines))
		case <-interrupt:
			return nil
		}
	}
}
