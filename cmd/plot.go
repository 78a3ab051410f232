package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/epsim/pkg/chart"
	"github.com/kilianp07/epsim/pkg/export"
)

var (
	plotIn    string
	plotOut   string
	plotTitle string
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Chart battery voltage from a CSV log with eclipses shaded",
	RunE:  plotLog,
}

func init() {
	plotCmd.Flags().StringVar(&plotIn, "in", "", "CSV log to read")
	plotCmd.Flags().StringVar(&plotOut, "out", "battery.png", "output image; format follows the extension")
	plotCmd.Flags().StringVar(&plotTitle, "title", "", "scenario description shown under the title")
	_ = plotCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(plotCmd)
}

func plotLog(cmd *cobra.Command, _ []string) error {
	f, err := os.Open(plotIn)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	recs, err := export.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", plotIn, err)
	}
	if err := chart.Save(recs, plotTitle, plotOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", plotOut)
	return nil
}
