// Package memstore is an in-memory implementation of every storage port.
// Each Tx works on a private copy of the state and publishes it on success,
// so rollbacks behave like Postgres. Transactions are serialized
package memstore

import (
	"context"
	"sort"
	"sync"

	"firewatch/internal/core/fire"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/store"
)

// Operation names accepted by FailOn
const (
	OpUpsert           = "ingest.upsert"
	OpUnassigned       = "cluster.unassigned"
	OpCandidates       = "cluster.candidates"
	OpAttach           = "cluster.attach"
	OpCreateIncident   = "cluster.create"
	OpSaveIncident     = "cluster.save"
	OpExpire           = "lifecycle.expire"
	OpPending          = "lifecycle.pending"
	OpMarkNotified     = "lifecycle.mark"
	OpPurgeable        = "lifecycle.purgeable"
	OpDelete           = "lifecycle.delete"
	OpCountActive      = "lifecycle.count"
	OpFindNear         = "notify.find_near"
	OpFindNearIncident = "notify.find_near_incident"
	OpIncidents        = "notify.incidents"
	OpActiveNear       = "notify.active_near"
)

var errSQL = perr.New(perr.ErrorCodeInvalidArgument, "memstore: raw sql is not supported")

type state struct {
	dets    map[int64]fire.Detection
	byKey   map[string]int64
	nextDet int64
	incs    map[int64]fire.Incident
	nextInc int64
	locs    []fire.Location
}

func newState() *state {
	return &state{
		dets:  map[int64]fire.Detection{},
		byKey: map[string]int64{},
		incs:  map[int64]fire.Incident{},
	}
}

func (st *state) clone() *state {
	out := &state{
		dets:    make(map[int64]fire.Detection, len(st.dets)),
		byKey:   make(map[string]int64, len(st.byKey)),
		nextDet: st.nextDet,
		incs:    make(map[int64]fire.Incident, len(st.incs)),
		nextInc: st.nextInc,
		locs:    append([]fire.Location(nil), st.locs...),
	}
	for id, d := range st.dets {
		if d.IncidentID != nil {
			v := *d.IncidentID
			d.IncidentID = &v
		}
		out.dets[id] = d
	}
	for k, v := range st.byKey {
		out.byKey[k] = v
	}
	for id, in := range st.incs {
		out.incs[id] = in
	}
	return out
}

// Store is the in-memory database
type Store struct {
	mu sync.Mutex
	st *state

	hookMu sync.Mutex
	hooks  map[string]func() error
}

var _ store.TxRunner = (*Store)(nil)

// New returns an empty store
func New() *Store { return &Store{st: newState(), hooks: map[string]func() error{}} }

// FailOn makes op call fn first; a non-nil result is returned as the op's error
func (s *Store) FailOn(op string, fn func() error) {
	s.hookMu.Lock()
	s.hooks[op] = fn
	s.hookMu.Unlock()
}

// ClearFailures removes every FailOn hook
func (s *Store) ClearFailures() {
	s.hookMu.Lock()
	s.hooks = map[string]func() error{}
	s.hookMu.Unlock()
}

func (s *Store) fail(op string) error {
	s.hookMu.Lock()
	fn := s.hooks[op]
	s.hookMu.Unlock()
	if fn == nil {
		return nil
	}
	return fn()
}

// Tx runs fn against a copy of the state and keeps it only if fn succeeds
func (s *Store) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &tx{s: s, st: s.st.clone()}
	if err := fn(t); err != nil {
		return err
	}
	s.st = t.st
	return nil
}

// Exec is unsupported; repos are bound through the memstore binders
func (s *Store) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, errSQL }

// Query is unsupported
func (s *Store) Query(context.Context, string, ...any) (store.Rows, error) { return nil, errSQL }

// QueryRow is unsupported
func (s *Store) QueryRow(context.Context, string, ...any) store.Row { return errRow{} }

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

type tx struct {
	s  *Store
	st *state
}

func (t *tx) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, errSQL }
func (t *tx) Query(context.Context, string, ...any) (store.Rows, error)     { return nil, errSQL }
func (t *tx) QueryRow(context.Context, string, ...any) store.Row             { return errRow{} }

type errRow struct{}

func (errRow) Scan(...any) error { return errSQL }

// view resolves a bound queryer to its state; outside a Tx the store lock is
// held until release is called
func view(q store.RowQuerier) (s *Store, st *state, release func()) {
	switch v := q.(type) {
	case *tx:
		return v.s, v.st, func() {}
	case *Store:
		v.mu.Lock()
		return v, v.st, v.mu.Unlock
	default:
		panic("memstore: binder used with a foreign queryer")
	}
}

// Seeding and inspection

// AddLocation registers a monitored location
func (s *Store) AddLocation(l fire.Location) {
	s.mu.Lock()
	s.st.locs = append(s.st.locs, l)
	s.mu.Unlock()
}

// AddDetection stores d as given (incident link included) and returns its id.
// An empty identity key is derived from the detection
func (s *Store) AddDetection(d fire.Detection) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.IdentityKey == "" {
		d.IdentityKey = fire.IdentityKey(d.Source, d.Latitude, d.Longitude, d.DetectedAt)
	}
	s.st.nextDet++
	d.ID = s.st.nextDet
	s.st.dets[d.ID] = d
	s.st.byKey[d.IdentityKey] = d.ID
	return d.ID
}

// PutIncident stores in; a zero id gets the next one
func (s *Store) PutIncident(in fire.Incident) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == 0 {
		s.st.nextInc++
		in.ID = s.st.nextInc
	} else if in.ID > s.st.nextInc {
		s.st.nextInc = in.ID
	}
	s.st.incs[in.ID] = in
	return in.ID
}

// Incident returns one incident
func (s *Store) Incident(id int64) (fire.Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.st.incs[id]
	return in, ok
}

// Snapshot returns every detection and incident ordered by id
func (s *Store) Snapshot() ([]fire.Detection, []fire.Incident) {
	s.mu.Lock()
	st := s.st.clone()
	s.mu.Unlock()

	ds := make([]fire.Detection, 0, len(st.dets))
	for _, d := range st.dets {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
	ins := make([]fire.Incident, 0, len(st.incs))
	for _, in := range st.incs {
		ins = append(ins, in)
	}
	sort.Slice(ins, func(i, j int) bool { return ins[i].ID < ins[j].ID })
	return ds, ins
}
