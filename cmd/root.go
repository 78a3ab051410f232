package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/epsim/app"
	"github.com/kilianp07/epsim/config"
	corelogger "github.com/kilianp07/epsim/core/logger"
	"github.com/kilianp07/epsim/infra/logger"
	"github.com/kilianp07/epsim/pkg/report"
)

var (
	cfgPath  string
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:               "epsim",
	Short:             "Spacecraft electrical power subsystem simulator",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              run,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured simulation",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func setup(cmd *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if logLevel != "" {
		return logger.SetLevel(corelogger.Level(logLevel))
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel == "" {
		if err := logger.SetLevel(corelogger.Level(cfg.Logging.Level)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	sum, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "** %s complete: %d steps, final SOC %.4f, %d eclipse steps **\n",
		sum.Run, sum.Steps, sum.FinalSOC, sum.EclipseSteps)
	if cfg.Run.LogPath != "" {
		fmt.Fprintf(out, "Log written to: %s\n", cfg.Run.LogPath)
	}
	return report.WriteStatus(out, svc.Runner.Snapshot())
}
