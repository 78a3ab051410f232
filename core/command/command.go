// Package command describes operator commands applied to an EPS model
// between steps.
package command

import (
	"errors"
	"fmt"

	"github.com/kilianp07/epsim/core/eps"
)

// Kind identifies what a command changes.
type Kind string

const (
	KindSwitch Kind = "switch"
	KindPanels Kind = "panels"
)

// ErrUnknownKind is returned by Apply for a command of an unsupported kind.
var ErrUnknownKind = errors.New("unknown command kind")

// Command is a single operator request.
type Command struct {
	ID       string                 `json:"command_id"`
	Kind     Kind                   `json:"kind"`
	Index    int                    `json:"index,omitempty"`
	Enabled  bool                   `json:"enabled,omitempty"`
	Capacity [eps.NumFacets]float64 `json:"capacity,omitempty"`
	Source   string                 `json:"source,omitempty"`
}

// SetSwitch builds a switch command.
func SetSwitch(index int, enabled bool) Command {
	return Command{Kind: KindSwitch, Index: index, Enabled: enabled}
}

// SetPanels builds a panel capacity command.
func SetPanels(capacity [eps.NumFacets]float64) Command {
	return Command{Kind: KindPanels, Capacity: capacity}
}

// Apply executes c against m. Errors come from the model unchanged, so
// callers can match eps.ErrIndexOutOfRange.
func (c Command) Apply(m *eps.Model) error {
	switch c.Kind {
	case KindSwitch:
		return m.SetSwitch(c.Index, c.Enabled)
	case KindPanels:
		return m.SetPanelCapacity(c.Capacity)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
}

func (c Command) String() string {
	switch c.Kind {
	case KindSwitch:
		state := "off"
		if c.Enabled {
			state = "on"
		}
		return fmt.Sprintf("switch %d %s", c.Index, state)
	case KindPanels:
		return fmt.Sprintf("panels %v", c.Capacity)
	default:
		return string(c.Kind)
	}
}

// Source delivers commands from an external controller.
type Source interface {
	Commands() <-chan Command
}
