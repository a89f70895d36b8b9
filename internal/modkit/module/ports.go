package module

import (
	"fmt"
	"reflect"
)

// PortsOf asserts m's port bundle to T; a non-nil *T bundle also matches
func PortsOf[T any](m Module) (T, bool) {
	switch p := m.Ports().(type) {
	case T:
		return p, true
	case *T:
		if p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}

// MustPortsOf panics when m does not expose T
func MustPortsOf[T any](m Module) T {
	p, ok := PortsOf[T](m)
	if !ok {
		panic(fmt.Sprintf("module %s: no %s ports", m.Name(), reflect.TypeFor[T]()))
	}
	return p
}
