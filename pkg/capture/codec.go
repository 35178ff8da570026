package capture

import (
	"fmt"
	"sort"
)

// Codec encodes single records.
type Codec interface {
	Name() string
	Marshal(r Record) ([]byte, error)
	Unmarshal(data []byte) (Record, error)
}

// Registry maps codec names to codecs.
type Registry struct{ byName map[string]Codec }

// NewRegistry constructs a registry holding every builtin codec.
func NewRegistry() (*Registry, error) {
	r := &Registry{byName: make(map[string]Codec)}
	r.Register(Proto())
	r.Register(Capnp())
	c, err := CBOR()
	if err != nil {
		return nil, err
	}
	r.Register(c)
	return r, nil
}

// Register adds a codec, replacing any codec with the same name.
func (r *Registry) Register(c Codec) { r.byName[c.Name()] = c }

// Get returns a codec by name.
func (r *Registry) Get(name string) (Codec, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("capture: unknown codec %q", name)
	}
	return c, nil
}

// Names lists the registered codec names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
