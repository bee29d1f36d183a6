// Package fluxffi binds the native Flux engine library through cgo. The
// binding is compiled only with the fluxffi build tag; libflux and its GL
// context requirements are the caller's responsibility.
package fluxffi

import "errors"

const Name = "flux"

// ErrNotBuilt is returned when the binary was built without the fluxffi tag.
var ErrNotBuilt = errors.New("fluxffi: flux engine not built in (rebuild with -tags fluxffi)")

type Driver struct{}

func New() *Driver { return &Driver{} }

func (Driver) Name() string { return Name }
