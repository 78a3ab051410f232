package factory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ModuleConfig is one entry of a `telemetry.sinks` list: the sink type and
// its raw `conf` block as koanf unmarshalled it.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Factory builds a T from a raw conf block.
type Factory[T any] func(conf map[string]any) (T, error)

// Registry maps type names to factories. Sinks register from init, so
// Register and Create may race and are guarded.
type Registry[T any] struct {
	mu    sync.RWMutex
	byTyp map[string]Factory[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{byTyp: map[string]Factory[T]{}}
}

// Register binds name to f. Names are unique.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	if f == nil {
		return fmt.Errorf("register %q: nil factory", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byTyp[name]; dup {
		return fmt.Errorf("register %q: type already registered", name)
	}
	r.byTyp[name] = f
	return nil
}

// Create runs the factory registered for cfg.Type.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.byTyp[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown module type %q (known: %v)", cfg.Type, r.Names())
	}
	return f(cfg.Conf)
}

// Names returns the registered types, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byTyp))
	for n := range r.byTyp {
		names = append(names, n)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Decode copies a sink conf block into out using its json tags. Values from
// EPS_ environment overrides arrive as strings, so weak typing is on and "5"
// still fills an int field.
func Decode(conf map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(conf)
}
