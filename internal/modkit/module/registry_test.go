package module

import (
	"slices"
	"sync"
	"testing"

	"firewatch/internal/platform/testkit"
)

func TestRegistry(t *testing.T) {
	testkit.Serial(t)
	Reset()
	t.Cleanup(Reset)

	RegisterModule(fakeModule{name: "notify", ports: fetchPorts{Days: 1}})
	RegisterModule(fakeModule{name: "notify", ports: fetchPorts{Days: 2}})
	RegisterModule(fakeModule{name: "clustering", ports: "engine"})

	if got, ok := PortsAs[fetchPorts]("notify"); !ok || got.Days != 2 {
		t.Fatalf("notify = %+v, %v", got, ok)
	}
	if _, ok := PortsAs[fetchPorts]("clustering"); ok {
		t.Fatalf("wrong type should not match")
	}
	if _, ok := PortsAs[fetchPorts]("ingest"); ok {
		t.Fatalf("unknown name should not match")
	}
	if got := Names(); !slices.Equal(got, []string{"clustering", "notify"}) {
		t.Fatalf("names = %v", got)
	}

	Reset()
	if len(Names()) != 0 {
		t.Fatalf("Reset left %v", Names())
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	testkit.Serial(t)
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RegisterModule(fakeModule{name: "fetch", ports: fetchPorts{Days: i}})
			_, _ = PortsAs[fetchPorts]("fetch")
			_ = Names()
		}()
	}
	wg.Wait()
	if _, ok := PortsAs[fetchPorts]("fetch"); !ok {
		t.Fatalf("fetch ports missing")
	}
}
