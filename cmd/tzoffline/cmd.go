// Package tzoffline implements the CLI entrypoint: a Cobra command
// tree wired around the country-zone consolidation engine.
package tzoffline

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tzoffline/internal/config"
	"tzoffline/internal/tzbuild"
	"tzoffline/internal/tzrules"
)

var (
	version = "dev"     // override with -X tzoffline/cmd/tzoffline.version=...
	commit  = "unknown" // override with -X tzoffline/cmd/tzoffline.commit=...
	date    = ""        // override with -X tzoffline/cmd/tzoffline.date=...
)

// NewRootCmd builds the tzoffline command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tzoffline",
		Short:        "Offline time-zone lookup artifact builder",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path")
	cmd.PersistentFlags().String("countryzones", "", "Path to the countryzones input (overrides config)")
	cmd.PersistentFlags().String("zone-tab", "", "Path to zone.tab (overrides config)")
	cmd.PersistentFlags().String("backward", "", "Path to the backward aliases file (overrides config)")
	cmd.PersistentFlags().StringP("output", "o", "", "Path to write the output XML (overrides config)")
	cmd.PersistentFlags().String("report", "", "Path to write the diagnostics report as YAML")

	cmd.AddCommand(
		newBuildCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		viper.SetConfigFile(v)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("countryzones"); v != "" {
		cfg.CountryZonesPath = v
	}
	if v, _ := cmd.Flags().GetString("zone-tab"); v != "" {
		cfg.ZoneTabPath = v
	}
	if v, _ := cmd.Flags().GetString("backward"); v != "" {
		cfg.BackwardPath = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.OutputPath = v
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, writeOutput bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	rules := tzrules.New()
	buildId := uuid.NewString()

	outcome := tzbuild.Run(fs, rules, tzbuild.Inputs{
		CountryZonesPath: cfg.CountryZonesPath,
		ZoneTabPath:      cfg.ZoneTabPath,
		BackwardPath:     cfg.BackwardPath,
	}, buildId)

	fmt.Fprint(os.Stderr, outcome.Diagnostics.Render())

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		report, err := outcome.Diagnostics.YAML()
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		if err := afero.WriteFile(fs, reportPath, report, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if outcome.ExitCode == tzbuild.ExitSuccess && writeOutput {
		if err := afero.WriteFile(fs, cfg.OutputPath, outcome.XML, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("wrote %s (build %s)\n", cfg.OutputPath, buildId)
	}

	if outcome.ExitCode != tzbuild.ExitSuccess {
		os.Exit(outcome.ExitCode)
	}
	return nil
}

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Resolve every country and emit the lookup XML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, true)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and resolve every country, reporting diagnostics, without writing output",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, false)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			if date == "" {
				fmt.Printf("tzoffline %s\n", version)
			} else {
				fmt.Printf("tzoffline %s (%s) built %s\n", version, commit, date)
			}
		},
	}
}
