// Package cmd wires the psengine CLI: project inspection, area
// construction, invariant point search, and named saves.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/project"
	"github.com/petrolab/psengine/internal/section"
	"github.com/petrolab/psengine/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "psengine",
	Short: "Pseudosection topology engine",
	Long: "Psengine maintains the topology of a computed phase diagram section:\n" +
		"invariant points, univariant lines, and the divariant areas between them.",
	RunE: runRootDefault,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .psengine.yaml)")
	rootCmd.PersistentFlags().StringP("project", "p", "", "project file (default section.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".psengine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("PSENGINE")
	viper.AutomaticEnv()

	_ = viper.BindPFlag("project_file", rootCmd.PersistentFlags().Lookup("project"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// runRootDefault shows the project summary when a project file exists in
// the cwd, and falls back to help otherwise.
func runRootDefault(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return cmd.Help()
	}
	if _, err := os.Stat(cfg.ProjectFile); os.IsNotExist(err) {
		return cmd.Help()
	}
	return runShow(showCmd, nil)
}

// loadSection reads the configured project file and rebuilds the section.
func loadSection(cfg config.Config) (*section.Section, error) {
	snap, err := project.Load(cfg.ProjectFile)
	if err != nil {
		return nil, err
	}
	s, err := project.Import(snap)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.ProjectFile, err)
	}
	return s, nil
}

// newEmitter opens the configured telemetry sink, or returns a nil no-op
// emitter when telemetry is not configured.
func newEmitter(cfg config.Config) *telemetry.Emitter {
	if cfg.TelemetryPath == "" {
		return nil
	}
	em, err := telemetry.NewEmitter(cfg.TelemetryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return nil
	}
	return em
}
