package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/paulmach/orb"

	"firewatch/internal/core/fire"
	"firewatch/internal/core/geo"
	"firewatch/internal/modkit/repokit"
	perr "firewatch/internal/platform/errors"
	clusterdom "firewatch/internal/services/clustering/domain"
	ingdom "firewatch/internal/services/ingest/domain"
	lifedom "firewatch/internal/services/lifecycle/domain"
	notifydom "firewatch/internal/services/notify/domain"
)

// Ingest binds the ingest repo
func Ingest() repokit.Binder[ingdom.Repo] {
	return repokit.BindFunc[ingdom.Repo](func(q repokit.Queryer) ingdom.Repo { return repo{q} })
}

// Clustering binds the clustering repo
func Clustering() repokit.Binder[clusterdom.Repo] {
	return repokit.BindFunc[clusterdom.Repo](func(q repokit.Queryer) clusterdom.Repo { return repo{q} })
}

// Lifecycle binds the lifecycle repo
func Lifecycle() repokit.Binder[lifedom.Repo] {
	return repokit.BindFunc[lifedom.Repo](func(q repokit.Queryer) lifedom.Repo { return repo{q} })
}

// IncidentReader binds the notify incident reader
func IncidentReader() repokit.Binder[notifydom.IncidentReader] {
	return repokit.BindFunc[notifydom.IncidentReader](func(q repokit.Queryer) notifydom.IncidentReader { return repo{q} })
}

// Locations returns the location store over s
func (s *Store) Locations() notifydom.LocationStore { return repo{s} }

// repo implements every port over one bound queryer
type repo struct{ q repokit.Queryer }

func (r repo) open(op string) (*state, func(), error) {
	s, st, release := view(r.q)
	if err := s.fail(op); err != nil {
		release()
		return nil, nil, err
	}
	return st, release, nil
}

// ingest

func (r repo) UpsertDetections(_ context.Context, ds []fire.Detection) (int, error) {
	st, release, err := r.open(OpUpsert)
	if err != nil {
		return 0, err
	}
	defer release()

	n := 0
	for _, d := range ds {
		if _, ok := st.byKey[d.IdentityKey]; ok {
			continue
		}
		st.nextDet++
		d.ID = st.nextDet
		d.IncidentID = nil
		st.dets[d.ID] = d
		st.byKey[d.IdentityKey] = d.ID
		n++
	}
	return n, nil
}

// clustering

func (r repo) Unassigned(_ context.Context, after clusterdom.Cursor, limit int) ([]fire.Detection, error) {
	st, release, err := r.open(OpUnassigned)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []fire.Detection
	for _, d := range st.dets {
		if d.IncidentID == nil && after.After(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.Before(out[j].DetectedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r repo) Candidates(_ context.Context, box orb.Bound) ([]fire.Incident, error) {
	st, release, err := r.open(OpCandidates)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []fire.Incident
	for _, in := range st.incs {
		if in.Status == fire.StatusActive && geo.Intersects(box, in.Bound()) {
			out = append(out, in)
		}
	}
	sortIncidents(out)
	return out, nil
}

func (r repo) Attach(_ context.Context, detectionID, incidentID int64) (bool, error) {
	st, release, err := r.open(OpAttach)
	if err != nil {
		return false, err
	}
	defer release()

	d, ok := st.dets[detectionID]
	if !ok || d.IncidentID != nil {
		return false, nil
	}
	if _, ok := st.incs[incidentID]; !ok {
		return false, perr.Newf(perr.ErrorCodeInvalidArgument, "incident %d does not exist", incidentID)
	}
	id := incidentID
	d.IncidentID = &id
	st.dets[detectionID] = d
	return true, nil
}

func (r repo) CreateIncident(_ context.Context, in fire.Incident) (int64, error) {
	st, release, err := r.open(OpCreateIncident)
	if err != nil {
		return 0, err
	}
	defer release()

	st.nextInc++
	in.ID = st.nextInc
	in.Status = fire.StatusActive
	in.EndedAt, in.EndNotifiedAt = nil, nil
	st.incs[in.ID] = in
	return in.ID, nil
}

func (r repo) SaveIncident(_ context.Context, in fire.Incident) error {
	st, release, err := r.open(OpSaveIncident)
	if err != nil {
		return err
	}
	defer release()

	cur, ok := st.incs[in.ID]
	if !ok || cur.Status != fire.StatusActive {
		return fire.ErrEnded
	}
	in.Status, in.EndedAt, in.EndNotifiedAt = cur.Status, cur.EndedAt, cur.EndNotifiedAt
	st.incs[in.ID] = in
	return nil
}

// lifecycle

func (r repo) ExpireStale(_ context.Context, cutoff, now time.Time) ([]int64, error) {
	st, release, err := r.open(OpExpire)
	if err != nil {
		return nil, err
	}
	defer release()

	var ids []int64
	for id, in := range st.incs {
		if in.Stale(cutoff) {
			st.incs[id] = in.End(now)
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

func (r repo) PendingEndNotice(_ context.Context, limit int) ([]int64, error) {
	st, release, err := r.open(OpPending)
	if err != nil {
		return nil, err
	}
	defer release()

	var ins []fire.Incident
	for _, in := range st.incs {
		if in.Ended() && in.EndNotifiedAt == nil {
			ins = append(ins, in)
		}
	}
	sortByEnded(ins)
	if limit > 0 && len(ins) > limit {
		ins = ins[:limit]
	}
	ids := make([]int64, 0, len(ins))
	for _, in := range ins {
		ids = append(ids, in.ID)
	}
	return ids, nil
}

func (r repo) MarkEndNotified(_ context.Context, ids []int64, at time.Time) error {
	st, release, err := r.open(OpMarkNotified)
	if err != nil {
		return err
	}
	defer release()

	at = at.UTC()
	for _, id := range ids {
		in, ok := st.incs[id]
		if !ok || !in.Ended() || in.EndNotifiedAt != nil {
			continue
		}
		v := at
		in.EndNotifiedAt = &v
		st.incs[id] = in
	}
	return nil
}

func (r repo) Purgeable(_ context.Context, cutoff time.Time, limit int) ([]fire.Incident, error) {
	st, release, err := r.open(OpPurgeable)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []fire.Incident
	for _, in := range st.incs {
		if purgeable(in) && in.EndedAt.Before(cutoff) {
			out = append(out, in)
		}
	}
	sortByEnded(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r repo) DeleteIncidents(_ context.Context, ids []int64) (int, int, error) {
	st, release, err := r.open(OpDelete)
	if err != nil {
		return 0, 0, err
	}
	defer release()

	drop := map[int64]struct{}{}
	for _, id := range ids {
		if in, ok := st.incs[id]; ok && purgeable(in) {
			drop[id] = struct{}{}
		}
	}
	dets := 0
	for id, d := range st.dets {
		if d.IncidentID == nil {
			continue
		}
		if _, ok := drop[*d.IncidentID]; ok {
			delete(st.dets, id)
			delete(st.byKey, d.IdentityKey)
			dets++
		}
	}
	for id := range drop {
		delete(st.incs, id)
	}
	return len(drop), dets, nil
}

func (r repo) CountActive(context.Context) (int, error) {
	st, release, err := r.open(OpCountActive)
	if err != nil {
		return 0, err
	}
	defer release()

	n := 0
	for _, in := range st.incs {
		if in.Status == fire.StatusActive {
			n++
		}
	}
	return n, nil
}

// notify

func (r repo) Incidents(_ context.Context, ids []int64) (map[int64]fire.Incident, error) {
	st, release, err := r.open(OpIncidents)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make(map[int64]fire.Incident, len(ids))
	for _, id := range ids {
		if in, ok := st.incs[id]; ok {
			out[id] = in
		}
	}
	return out, nil
}

func (r repo) ActiveNear(_ context.Context, p orb.Point, radiusM float64) ([]int64, error) {
	st, release, err := r.open(OpActiveNear)
	if err != nil {
		return nil, err
	}
	defer release()

	var ids []int64
	for id, in := range st.incs {
		if in.Status == fire.StatusActive && geo.DistanceToBound(in.Bound(), p) <= radiusM {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

func (r repo) FindNear(_ context.Context, p orb.Point) ([]fire.Location, error) {
	st, release, err := r.open(OpFindNear)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []fire.Location
	for _, l := range st.locs {
		if l.Contains(p) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r repo) FindNearIncident(_ context.Context, b orb.Bound) ([]fire.Location, error) {
	st, release, err := r.open(OpFindNearIncident)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []fire.Location
	for _, l := range st.locs {
		if l.Touches(b) {
			out = append(out, l)
		}
	}
	return out, nil
}

func purgeable(in fire.Incident) bool {
	return in.Ended() && in.EndedAt != nil && in.EndNotifiedAt != nil
}

func sortIDs(ids []int64) { sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] }) }

func sortIncidents(ins []fire.Incident) {
	sort.Slice(ins, func(i, j int) bool { return ins[i].ID < ins[j].ID })
}

func sortByEnded(ins []fire.Incident) {
	sort.Slice(ins, func(i, j int) bool {
		a, b := ins[i].EndedAt, ins[j].EndedAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.Before(*b)
		}
		return ins[i].ID < ins[j].ID
	})
}
