package engine

import (
	"errors"
	"fmt"
	"sort"
)

var errInvalidSettings = errors.New("settings are not a JSON document")

// Registry maps engine names to driver constructors. It stands in for
// screensaver bundle discovery: the shell picks a driver by name.
type Registry struct {
	drivers map[string]func() (Driver, error)
}

func NewRegistry() *Registry {
	r := &Registry{drivers: make(map[string]func() (Driver, error))}
	r.Register(NullName, func() (Driver, error) { return NewNull(), nil })
	return r
}

func (r *Registry) Register(name string, fn func() (Driver, error)) {
	r.drivers[name] = fn
}

func (r *Registry) Get(name string) (Driver, error) {
	fn, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s (available: %v)", name, r.List())
	}
	return fn()
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
