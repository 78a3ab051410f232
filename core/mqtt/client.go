package mqtt

import (
	"github.com/kilianp07/epsim/core/command"
	"github.com/kilianp07/epsim/core/telemetry"
)

// Client bridges a simulation run to an MQTT broker: step telemetry goes out,
// operator commands come in.
type Client interface {
	// PublishStep sends one step event on the run's telemetry topic.
	PublishStep(ev telemetry.StepEvent) error

	// Commands returns the channel of decoded operator commands. The
	// channel is drained by the runner between steps.
	Commands() <-chan command.Command

	// Disconnect closes the connection.
	Disconnect()
}
