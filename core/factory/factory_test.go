package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	Addr  string
	Every int
}

type sinkConf struct {
	Addr  string `json:"addr"`
	Every int    `json:"every"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sink]()
	require.NoError(t, reg.Register("prom", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sink{Addr: c.Addr, Every: c.Every}, nil
	}))
	inst, err := reg.Create(ModuleConfig{Type: "prom", Conf: map[string]any{"addr": ":9100", "every": 3}})
	require.NoError(t, err)
	assert.Equal(t, ":9100", inst.Addr)
	assert.Equal(t, 3, inst.Every)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }), "duplicate")
	assert.Error(t, reg.Register("y", nil), "nil factory")
	_, err := reg.Create(ModuleConfig{Type: "y"})
	assert.ErrorContains(t, err, `unknown module type "y"`)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"nop", "influx", "prometheus"} {
		require.NoError(t, reg.Register(n, func(map[string]any) (int, error) { return 0, nil }))
	}
	assert.Equal(t, []string{"influx", "nop", "prometheus"}, reg.Names())
}

func TestDecodeWeakTypes(t *testing.T) {
	var c sinkConf
	require.NoError(t, Decode(map[string]any{"addr": ":1", "every": "5"}, &c))
	assert.Equal(t, 5, c.Every)
}
