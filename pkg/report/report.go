// Package report renders human readable EPS status blocks.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kilianp07/epsim/core/eps"
)

// WriteStatus prints the status block for snap.
func WriteStatus(w io.Writer, snap eps.Snapshot) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "=== EPS STATUS ===")
	fmt.Fprintf(bw, "Battery Voltage: %.2f V\n", snap.BatteryVoltage)
	fmt.Fprintf(bw, "Battery SOC: %.2f %%\n", 100*snap.SOC)
	fmt.Fprintf(bw, "Battery Energy: %.2f Wh\n", snap.StoredEnergyWh)
	fmt.Fprintf(bw, "Solar Voltage: %.2f V\n", snap.SolarVoltage)
	fmt.Fprintf(bw, "Solar Current: %.2f A\n", snap.SolarCurrent)
	fmt.Fprint(bw, "Switch States: ")
	for _, on := range snap.Switches {
		if on {
			fmt.Fprint(bw, "[ON] ")
		} else {
			fmt.Fprint(bw, "[OFF] ")
		}
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "===================")
	return bw.Flush()
}
