package module

// fakeModule is a small module double shared by the tests in this package
type fakeModule struct {
	name  string
	ports any
}

func (m fakeModule) Name() string { return m.name }
func (m fakeModule) Ports() any   { return m.ports }

var _ Module = fakeModule{}
