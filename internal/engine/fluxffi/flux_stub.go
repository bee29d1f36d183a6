//go:build !fluxffi

package fluxffi

import "github.com/san-kum/fluxsaver/internal/engine"

func Available() bool { return false }

func (Driver) Create(logical, physical engine.Size, settings string) (engine.Instance, error) {
	return nil, ErrNotBuilt
}
