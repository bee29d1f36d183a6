//go:build !fluxffi

package fluxffi

import (
	"errors"
	"testing"

	"github.com/san-kum/fluxsaver/internal/engine"
)

func TestStubDriver(t *testing.T) {
	if Available() {
		t.Fatal("stub reports the engine as available")
	}

	d := New()
	if d.Name() != "flux" {
		t.Errorf("expected name flux, got %s", d.Name())
	}

	size := engine.Size{Width: 800, Height: 600}
	_, err := engine.Create(d, size, size, "{}")
	if !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt, got %v", err)
	}
}
