package eps

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SunVector is the sun direction in the body frame. Its magnitude scales
// the illumination; the zero vector means eclipse.
type SunVector = r3.Vec

// Facet identifies a solar panel mounting orientation.
type Facet int

const (
	FacetPosX Facet = iota
	FacetNegX
	FacetPosY
	FacetNegY
	FacetNegZ
)

var facetNames = [NumFacets]string{"+X", "-X", "+Y", "-Y", "-Z"}

func (f Facet) String() string {
	if f < 0 || int(f) >= NumFacets {
		return "unknown"
	}
	return facetNames[f]
}

// PanelSet holds per-facet capacity and the input computed on the last step.
type PanelSet struct {
	Capacity  [NumFacets]float64
	LastInput [NumFacets]float64
}

// PanelInputs projects the sun vector onto each facet. A facet only
// produces power when the matching component points at it.
func PanelInputs(sun SunVector, capacity [NumFacets]float64) [NumFacets]float64 {
	var in [NumFacets]float64
	in[FacetPosX] = math.Max(0, sun.X) * capacity[FacetPosX]
	in[FacetNegX] = math.Max(0, -sun.X) * capacity[FacetNegX]
	in[FacetPosY] = math.Max(0, sun.Y) * capacity[FacetPosY]
	in[FacetNegY] = math.Max(0, -sun.Y) * capacity[FacetNegY]
	in[FacetNegZ] = math.Max(0, -sun.Z) * capacity[FacetNegZ]
	return in
}

// InSun reports whether the vector carries any illumination at all.
func InSun(sun SunVector) bool {
	return sun != (SunVector{})
}

// Illumination returns the vector magnitude, used for telemetry only.
func Illumination(sun SunVector) float64 {
	return r3.Norm(sun)
}

func validSun(sun SunVector) bool {
	return finite(sun.X) && finite(sun.Y) && finite(sun.Z)
}
