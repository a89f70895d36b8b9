package modkit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"firewatch/internal/platform/jobs"
)

func TestDeps_ZeroValueDefaults(t *testing.T) {
	t.Parallel()
	var d Deps
	if d.Now() == nil {
		t.Fatal("zero Deps should fall back to a real clock")
	}
	l := d.Leases()
	if _, ok := l.(*jobs.LocalLease); !ok {
		t.Fatalf("zero Deps should fall back to a local lease, got %T", l)
	}
	if err := l.Do(context.Background(), "x", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("local lease: %v", err)
	}
}

func TestDeps_KeepsInjected(t *testing.T) {
	t.Parallel()
	fc := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	lease := jobs.NewLocalLease(nil)
	d := Deps{Clock: fc, Lease: lease}
	if d.Now() != fc {
		t.Fatal("injected clock replaced")
	}
	if d.Leases() != lease {
		t.Fatal("injected lease replaced")
	}
}
