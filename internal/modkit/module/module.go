// Package module defines the minimal contract for a pipeline module and a
// bootstrap registry for its ports
package module

// Module is what every service module exposes to the binaries.
// Kept sibling to modkit so a module can export its own ports type without import knots
type Module interface {
	Name() string
	Ports() any
}
