package engine

import "encoding/json"

const NullName = "null"

// Null is a driver whose instances do nothing. It still rejects settings
// that are not a JSON document, like every real engine does.
type Null struct{}

func NewNull() *Null { return &Null{} }

func (Null) Name() string { return NullName }

func (Null) Create(logical, physical Size, settings string) (Instance, error) {
	if settings != "" && !json.Valid([]byte(settings)) {
		return nil, errInvalidSettings
	}
	return &nullInstance{}, nil
}

type nullInstance struct {
	frames int
}

func (n *nullInstance) Step(timeMillis float64) error {
	n.frames++
	return nil
}

func (n *nullInstance) Resize(logical, physical Size) error { return nil }
func (n *nullInstance) Destroy()                            {}
