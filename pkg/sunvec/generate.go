package sunvec

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/epsim/core/eps"
)

// Kind names a synthetic attitude profile.
type Kind string

const (
	KindNightPass   Kind = "night_pass"
	KindAlwaysSun   Kind = "always_sun"
	KindRapidTumble Kind = "rapid_tumble"
	KindBiasedX     Kind = "biased_x"
	KindBiasedXY    Kind = "biased_xy"
)

// Default orbit used by the reference input files.
const (
	DefaultPeriod = 6000.0
	DefaultDt     = 10.0
)

const (
	eclipseStart = 0.6
	biasWeight   = 0.85
	tumbleGain   = 0.8
	tumbleFloor  = 0.7
)

// ErrUnknownKind is returned by Generate for an unregistered profile name.
var ErrUnknownKind = errors.New("unknown sun vector kind")

// Generator produces one vector per dt over one orbit period.
type Generator func(period, dt float64) []eps.SunVector

var generators = map[Kind]Generator{
	KindNightPass:   NightPass,
	KindAlwaysSun:   AlwaysSun,
	KindRapidTumble: RapidTumble,
	KindBiasedX:     BiasedX,
	KindBiasedXY:    BiasedXY,
}

// Kinds lists the available profile names.
func Kinds() []string {
	out := make([]string, 0, len(generators))
	for k := range generators {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// Generate dispatches to the generator registered for kind.
func Generate(kind string, period, dt float64) ([]eps.SunVector, error) {
	g, ok := generators[Kind(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, kind, Kinds())
	}
	if !(period > 0) || !(dt > 0) || math.IsInf(period, 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("invalid orbit period %v or timestep %v", period, dt)
	}
	return g(period, dt), nil
}

func steps(period, dt float64) int {
	if dt <= 0 || period <= 0 {
		return 0
	}
	return int(math.Floor(period / dt))
}

func phase(i int, period, dt float64) float64 {
	return 2 * math.Pi * float64(i) * dt / period
}

func circle(a float64) r3.Vec {
	return r3.Vec{X: math.Cos(a), Y: math.Sin(a)}
}

// NightPass rotates the sun in the XY plane and blanks the last 40% of the
// orbit as eclipse.
func NightPass(period, dt float64) []eps.SunVector {
	n := steps(period, dt)
	out := make([]eps.SunVector, n)
	for i := range out {
		t := float64(i) * dt
		if math.Mod(t, period) > eclipseStart*period {
			continue
		}
		out[i] = circle(phase(i, period, dt))
	}
	return out
}

// AlwaysSun rotates the sun in the XY plane with no eclipse. Components are
// rounded to three decimals.
func AlwaysSun(period, dt float64) []eps.SunVector {
	n := steps(period, dt)
	out := make([]eps.SunVector, n)
	for i := range out {
		c := circle(phase(i, period, dt))
		out[i] = eps.SunVector{X: round3(c.X), Y: round3(c.Y)}
	}
	return out
}

// RapidTumble mixes three harmonics of the orbit so the lit facets change
// quickly. The magnitude is rescaled to keep a minimum exposure.
func RapidTumble(period, dt float64) []eps.SunVector {
	n := steps(period, dt)
	out := make([]eps.SunVector, n)
	for i := range out {
		p1 := phase(i, period, dt)
		p2 := 10 * p1
		p3 := 17 * p1
		v := r3.Vec{
			X: 0.45*math.Cos(p2) + 0.35*math.Sin(p3) + 0.25*math.Cos(p1),
			Y: 0.45*math.Sin(p2) + 0.35*math.Cos(p3) + 0.25*math.Sin(p1),
			Z: 0.2 * math.Cos(p2+p3),
		}
		scale := math.Max(tumbleFloor, math.Min(1, r3.Norm(v)))
		out[i] = r3.Scale(tumbleGain/scale, v)
	}
	return out
}

// BiasedX keeps the sun mostly on +X with a small orbital wobble.
func BiasedX(period, dt float64) []eps.SunVector {
	return biased(period, dt, r3.Vec{X: 1})
}

// BiasedXY keeps the sun mostly between +X and +Y.
func BiasedXY(period, dt float64) []eps.SunVector {
	return biased(period, dt, circle(math.Pi/4))
}

func biased(period, dt float64, dir r3.Vec) []eps.SunVector {
	n := steps(period, dt)
	out := make([]eps.SunVector, n)
	for i := range out {
		v := r3.Add(r3.Scale(1-biasWeight, circle(phase(i, period, dt))), r3.Scale(biasWeight, dir))
		out[i] = r3.Unit(v)
	}
	return out
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
