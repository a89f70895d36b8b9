package module

import (
	"maps"
	"slices"
	"sync"
)

// ports registered by pipeline wiring, readable by name
var registry = struct {
	sync.RWMutex
	byName map[string]any
}{byName: map[string]any{}}

// RegisterModule records m.Ports() under m.Name(), replacing any earlier entry
func RegisterModule(m Module) {
	registry.Lock()
	defer registry.Unlock()
	registry.byName[m.Name()] = m.Ports()
}

// PortsAs looks up name and asserts its ports to T
func PortsAs[T any](name string) (T, bool) {
	registry.RLock()
	p, found := registry.byName[name]
	registry.RUnlock()
	t, ok := p.(T)
	return t, found && ok
}

// Names lists registered modules, sorted
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	return slices.Sorted(maps.Keys(registry.byName))
}

// Reset empties the registry
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	clear(registry.byName)
}
