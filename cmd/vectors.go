package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/epsim/pkg/sunvec"
)

var (
	vecKind   string
	vecPeriod float64
	vecDt     float64
	vecOut    string
)

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Sun vector utilities",
}

var vectorsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic sun vector file",
	RunE:  generateVectors,
}

func init() {
	f := vectorsGenerateCmd.Flags()
	f.StringVar(&vecKind, "kind", string(sunvec.KindAlwaysSun), "profile: "+strings.Join(sunvec.Kinds(), ", "))
	f.Float64Var(&vecPeriod, "period", sunvec.DefaultPeriod, "orbit period in seconds")
	f.Float64Var(&vecDt, "dt", sunvec.DefaultDt, "seconds per vector")
	f.StringVarP(&vecOut, "out", "o", "", "output file (stdout when empty)")
	vectorsCmd.AddCommand(vectorsGenerateCmd)
	rootCmd.AddCommand(vectorsCmd)
}

func generateVectors(cmd *cobra.Command, _ []string) error {
	vecs, err := sunvec.Generate(vecKind, vecPeriod, vecDt)
	if err != nil {
		return err
	}
	if vecOut == "" {
		return sunvec.Write(cmd.OutOrStdout(), vecs)
	}
	if err := sunvec.WriteFile(vecOut, vecs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d vectors to %s\n", len(vecs), vecOut)
	return nil
}
