// Package eps models a small spacecraft's electrical power subsystem: a
// battery energy integrator, five always-present regulated rails, eight
// commandable switches and five body-mounted solar facets. The Model is
// advanced one timestep at a time by Step and exposes a Snapshot for
// telemetry. It performs no I/O and never logs; invalid inputs are returned
// as errors for the calling loop to handle.
package eps
