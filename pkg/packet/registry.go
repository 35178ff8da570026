package packet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// TypeRegistry maps packet types to the names used in logs and captures.
// Stream types are named dynamically and never stored.
type TypeRegistry struct {
	mu     sync.RWMutex
	names  map[Type]string
	byName map[string]Type
	nextID Type // next free user type ID
}

// NewTypeRegistry creates a registry holding the builtin types.
func NewTypeRegistry() *TypeRegistry {
	tr := &TypeRegistry{
		names:  make(map[Type]string),
		byName: make(map[string]Type),
		nextID: TypeUser,
	}
	for _, bt := range builtinTypes {
		tr.add(bt.id, bt.name)
	}
	return tr
}

// DefaultRegistry is the registry used by Type.String.
var DefaultRegistry = NewTypeRegistry()

// Register assigns the next free user type ID to name and returns it.
func (tr *TypeRegistry) Register(name string) (Type, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if err := tr.checkName(name); err != nil {
		return TypeInvalid, err
	}

	for tr.nextID < TypeStream0 {
		id := tr.nextID
		tr.nextID++
		if _, exists := tr.names[id]; !exists {
			tr.add(id, name)
			return id, nil
		}
	}
	return TypeInvalid, fmt.Errorf("%w: no free user type IDs", ErrTypeOutOfRange)
}

// RegisterWithID registers name under a specific user type ID.
func (tr *TypeRegistry) RegisterWithID(name string, id Type) error {
	if id == TypeInvalid {
		return ErrInvalidTypeID
	}
	if id < TypeUser || id >= TypeStream0 {
		return fmt.Errorf("%w: %d", ErrTypeOutOfRange, id)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if _, exists := tr.names[id]; exists {
		return ErrTypeAlreadyExists
	}
	if err := tr.checkName(name); err != nil {
		return err
	}
	tr.add(id, name)
	return nil
}

// checkName rejects names already registered or reserved for invalid and
// stream types. tr.mu must be held.
func (tr *TypeRegistry) checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrTypeNameExists)
	}
	if _, reserved := reservedType(name); reserved {
		return fmt.Errorf("%w: %q is reserved", ErrTypeNameExists, name)
	}
	if id, exists := tr.byName[name]; exists {
		return fmt.Errorf("%w: %q is type %d", ErrTypeNameExists, name, id)
	}
	return nil
}

func (tr *TypeRegistry) add(id Type, name string) {
	tr.names[id] = name
	tr.byName[name] = id
}

// reservedType resolves the names Name generates without storing them.
func reservedType(name string) (Type, bool) {
	if name == "invalid" {
		return TypeInvalid, true
	}
	rest, ok := strings.CutPrefix(name, "stream")
	if !ok || rest == "" || (len(rest) > 1 && rest[0] == '0') {
		return TypeInvalid, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return TypeInvalid, false
	}
	t, err := StreamType(n)
	if err != nil {
		return TypeInvalid, false
	}
	return t, true
}

// Name returns the name of t. Stream types resolve to "streamN".
func (tr *TypeRegistry) Name(t Type) (string, bool) {
	if id, ok := t.StreamID(); ok {
		return "stream" + strconv.Itoa(id), true
	}
	if t == TypeInvalid {
		return "invalid", true
	}

	tr.mu.RLock()
	defer tr.mu.RUnlock()
	name, ok := tr.names[t]
	return name, ok
}

// Lookup finds a type by name. It accepts every name Name returns,
// including "invalid" and "streamN".
func (tr *TypeRegistry) Lookup(name string) (Type, bool) {
	if t, ok := reservedType(name); ok {
		return t, true
	}
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	id, ok := tr.byName[name]
	return id, ok
}

// List returns the registered (non-stream) types in ascending order.
func (tr *TypeRegistry) List() []Type {
	tr.mu.RLock()
	types := make([]Type, 0, len(tr.names))
	for id := range tr.names {
		types = append(types, id)
	}
	tr.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Copy creates a new registry with the same entries.
func (tr *TypeRegistry) Copy() *TypeRegistry {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	cp := &TypeRegistry{
		names:  make(map[Type]string, len(tr.names)),
		byName: make(map[string]Type, len(tr.byName)),
		nextID: tr.nextID,
	}
	for id, name := range tr.names {
		cp.add(id, name)
	}
	return cp
}
