package mqtt

import (
	"fmt"
	"strings"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "eps"

// Topics derives the per-run topic names.
type Topics struct {
	Prefix string
	Run    string
}

func (t Topics) base() string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		p = DefaultPrefix
	}
	return fmt.Sprintf("%s/%s", p, t.Run)
}

// Telemetry is where step events are published.
func (t Topics) Telemetry() string { return t.base() + "/telemetry" }

// SwitchSet carries {"index":7,"enabled":true} commands.
func (t Topics) SwitchSet() string { return t.base() + "/switch/set" }

// PanelsSet carries {"capacity":[...]} commands.
func (t Topics) PanelsSet() string { return t.base() + "/panels/set" }

// Status holds the retained online/offline marker.
func (t Topics) Status() string { return t.base() + "/status" }
