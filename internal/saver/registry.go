package saver

import (
	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/engine/fluxffi"
	"github.com/san-kum/fluxsaver/internal/engine/lines"
)

// NewRegistry returns every engine this binary can run in a window.
func NewRegistry() *engine.Registry {
	r := engine.NewRegistry()
	r.Register(lines.Name, func() (engine.Driver, error) { return lines.New(), nil })
	r.Register(fluxffi.Name, func() (engine.Driver, error) {
		if !fluxffi.Available() {
			return nil, fluxffi.ErrNotBuilt
		}
		return fluxffi.New(), nil
	})
	return r
}
