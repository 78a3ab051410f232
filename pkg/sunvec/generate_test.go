package sunvec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/epsim/core/eps"
)

func TestGenerateLengths(t *testing.T) {
	for _, k := range Kinds() {
		vecs, err := Generate(k, DefaultPeriod, DefaultDt)
		require.NoError(t, err, k)
		assert.Len(t, vecs, 600, k)
	}
}

func TestGenerateUnknownKind(t *testing.T) {
	_, err := Generate("spin", DefaultPeriod, DefaultDt)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = Generate(string(KindAlwaysSun), 0, DefaultDt)
	assert.Error(t, err)
}

func TestNightPassEclipse(t *testing.T) {
	vecs := NightPass(DefaultPeriod, DefaultDt)
	lit, dark := 0, 0
	for _, v := range vecs {
		if eps.InSun(v) {
			lit++
		} else {
			dark++
		}
	}
	// t = 0..3600 lit, 3610..5990 dark
	assert.Equal(t, 361, lit)
	assert.Equal(t, 239, dark)
	assert.Equal(t, eps.SunVector{X: 1}, vecs[0])
	assert.False(t, eps.InSun(vecs[len(vecs)-1]))
}

func TestAlwaysSunNeverDark(t *testing.T) {
	for i, v := range AlwaysSun(DefaultPeriod, DefaultDt) {
		require.True(t, eps.InSun(v), "step %d", i)
		assert.InDelta(t, 1, r3.Norm(v), 2e-3)
		assert.Zero(t, v.Z)
	}
}

func TestRapidTumbleExposure(t *testing.T) {
	for _, v := range RapidTumble(DefaultPeriod, DefaultDt) {
		n := r3.Norm(v)
		assert.LessOrEqual(t, n, 0.8/0.7+1e-9)
		assert.True(t, eps.InSun(v))
	}
}

func TestBiasedProfilesAreUnit(t *testing.T) {
	for _, v := range BiasedX(DefaultPeriod, DefaultDt) {
		assert.InDelta(t, 1, r3.Norm(v), 1e-9)
		assert.Greater(t, v.X, 0.0)
	}
	for _, v := range BiasedXY(DefaultPeriod, DefaultDt) {
		assert.InDelta(t, 1, r3.Norm(v), 1e-9)
		assert.Greater(t, v.X, 0.0)
		assert.Greater(t, v.Y, 0.0)
	}
}
