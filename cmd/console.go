package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/kilianp07/epsim/app"
	"github.com/kilianp07/epsim/core/command"
	"github.com/kilianp07/epsim/core/eps"
	"github.com/kilianp07/epsim/infra/logger"
	"github.com/kilianp07/epsim/pkg/report"
)

var errUsage = errors.New("usage")

const consoleHelp = `commands:
  step [n]            advance n steps (default 1) along the configured vectors
  step n x y z        advance n steps under a fixed sun vector
  switch i on|off     toggle output switch i
  panels a b c d e    set panel capacities for +X -X +Y -Y -Z
  status              print the EPS status block
  help                show this text
  quit                finish the run and exit`

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Drive the simulator interactively",
	RunE:  runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// readlineWriter keeps log output from clobbering the prompt.
type readlineWriter struct {
	rl *readline.Instance
}

func (w readlineWriter) Write(p []byte) (int, error) {
	w.rl.Clean()
	defer w.rl.Refresh()
	return os.Stderr.Write(p)
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".epsim_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "eps> ",
		HistoryFile:     history,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()
	logger.SetOutput(readlineWriter{rl: rl})
	defer logger.SetOutput(nil)

	svc, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("console").Errorf("service close: %v", err)
		}
	}()

	c := &console{runner: svc.Runner, out: rl.Stdout()}
	fmt.Fprintln(c.out, "type 'help' for commands")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		quit, err := c.exec(line)
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if quit {
			break
		}
	}
	svc.Runner.Finish()
	return nil
}

type console struct {
	runner *app.Runner
	out    io.Writer
}

// exec runs one console line and reports whether the session should end.
func (c *console) exec(line string) (bool, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return false, nil
	}
	switch strings.ToLower(f[0]) {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return false, nil
	case "status":
		return false, report.WriteStatus(c.out, c.runner.Snapshot())
	case "step":
		return false, c.step(f[1:])
	case "switch":
		return false, c.setSwitch(f[1:])
	case "panels":
		return false, c.setPanels(f[1:])
	}
	return false, fmt.Errorf("unknown command %q", f[0])
}

func (c *console) step(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("%w: step [n] [x y z]", errUsage)
		}
		n = v
	}
	var fixed *eps.SunVector
	switch len(args) {
	case 0, 1:
	case 4:
		vals, err := parseFloats(args[1:])
		if err != nil {
			return err
		}
		fixed = &eps.SunVector{X: vals[0], Y: vals[1], Z: vals[2]}
	default:
		return fmt.Errorf("%w: step [n] [x y z]", errUsage)
	}
	vectors := c.runner.Vectors()
	if fixed == nil && len(vectors) == 0 {
		return app.ErrNoSunVectors
	}
	for i := 0; i < n; i++ {
		var sun eps.SunVector
		if fixed != nil {
			sun = *fixed
		} else {
			sun = vectors[c.runner.Steps()%len(vectors)]
		}
		ev, err := c.runner.Step(sun)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "step %d t=%.0fs soc=%.4f V=%.2f in_sun=%t\n",
			ev.Step, ev.Elapsed, ev.Snapshot.SOC, ev.Snapshot.BatteryVoltage, ev.InSun)
	}
	return nil
}

func (c *console) setSwitch(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: switch i on|off", errUsage)
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: switch index %q", errUsage, args[0])
	}
	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "1", "true":
		on = true
	case "off", "0", "false":
	default:
		return fmt.Errorf("%w: switch i on|off", errUsage)
	}
	return c.runner.Apply(command.SetSwitch(i, on))
}

func (c *console) setPanels(args []string) error {
	if len(args) != eps.NumFacets {
		return fmt.Errorf("%w: panels takes %d capacities", errUsage, eps.NumFacets)
	}
	vals, err := parseFloats(args)
	if err != nil {
		return err
	}
	var caps [eps.NumFacets]float64
	copy(caps[:], vals)
	return c.runner.Apply(command.SetPanels(caps))
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", errUsage, a)
		}
		out[i] = v
	}
	return out, nil
}
