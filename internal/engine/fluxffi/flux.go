//go:build fluxffi

package fluxffi

/*
#cgo LDFLAGS: -L${SRCDIR} -lflux
#include <stdlib.h>

typedef struct Flux Flux;

extern struct Flux *flux_new(float width, float height, float physical_width, float physical_height, const char *settings_json_ptr);
extern void flux_animate(struct Flux *ptr, float timestamp);
extern void flux_resize(struct Flux *ptr, float logical_width, float logical_height, float physical_width, float physical_height);
extern void flux_destroy(struct Flux *ptr);
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/san-kum/fluxsaver/internal/engine"
)

func Available() bool { return true }

func (Driver) Create(logical, physical engine.Size, settings string) (engine.Instance, error) {
	cs := C.CString(settings)
	defer C.free(unsafe.Pointer(cs))

	ptr := C.flux_new(
		C.float(logical.Width), C.float(logical.Height),
		C.float(physical.Width), C.float(physical.Height),
		cs,
	)
	if ptr == nil {
		return nil, errors.New("fluxffi: flux_new returned no instance")
	}
	return &instance{ptr: ptr}, nil
}

type instance struct {
	ptr *C.Flux
}

func (i *instance) Step(t float64) error {
	C.flux_animate(i.ptr, C.float(t))
	return nil
}

func (i *instance) Resize(logical, physical engine.Size) error {
	C.flux_resize(i.ptr,
		C.float(logical.Width), C.float(logical.Height),
		C.float(physical.Width), C.float(physical.Height))
	return nil
}

func (i *instance) Destroy() {
	if i.ptr != nil {
		C.flux_destroy(i.ptr)
		i.ptr = nil
	}
}
