package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/epsim/infra/logger"
	"github.com/kilianp07/epsim/qa/scenarios"
)

var scenarioLogDir string

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Scenario related commands",
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <file.yaml>...",
	Short: "Run scenario files and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

var scenarioListCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List the scenarios in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  listScenarios,
}

func init() {
	scenarioRunCmd.Flags().StringVar(&scenarioLogDir, "log-dir", "", "directory receiving one CSV log per scenario")
	scenarioCmd.AddCommand(scenarioRunCmd, scenarioListCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scenarioLogDir != "" {
		if err := os.MkdirAll(scenarioLogDir, 0o755); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		res, err := scenarios.Run(ctx, sc, scenarios.RunOptions{LogDir: scenarioLogDir, Logger: logger.New("scenario")})
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		status := "PASS"
		if cerr := res.Check(sc.Expected); cerr != nil {
			status = "FAIL"
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", status, sc.Name, cerr)
		} else {
			fmt.Fprintf(out, "%s %s: final SOC %.4f after %d steps\n", status, sc.Name, res.Summary.FinalSOC, res.Summary.Steps)
		}
		if res.LogPath != "" {
			fmt.Fprintf(out, "  log written to %s\n", res.LogPath)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}

func listScenarios(cmd *cobra.Command, args []string) error {
	dir := "qa/scenarios"
	if len(args) == 1 {
		dir = args[0]
	}
	all, err := scenarios.LoadDir(dir)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVECTORS\tDESCRIPTION")
	for _, sc := range all {
		src := sc.Vectors.Kind
		if src == "" {
			src = sc.Vectors.File
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sc.Name, src, sc.Description)
	}
	return tw.Flush()
}
