// Package service provides the notification orchestrator: it collapses
// clustering output and ended incidents into one request per
// (user, location, incident) and hands them to the notifier
package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/language"

	"firewatch/internal/core/fire"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/services/notify/domain"
)

// Orchestrator implements domain.OrchestratorPort. Runs must be single-flight;
// the group map is built before anything is emitted so one run never sends
// the same group twice
type Orchestrator struct {
	Locations domain.LocationStore
	Incidents domain.IncidentReader
	Notifier  domain.Notifier
	Wording   Wording
	Metrics   *metrics.Metrics
}

// New constructs the orchestrator
func New(locs domain.LocationStore, incs domain.IncidentReader, n domain.Notifier, w Wording, m *metrics.Metrics) *Orchestrator {
	if locs == nil {
		panic("notify.Orchestrator requires a non nil LocationStore")
	}
	if incs == nil {
		panic("notify.Orchestrator requires a non nil IncidentReader")
	}
	if n == nil {
		panic("notify.Orchestrator requires a non nil Notifier")
	}
	if w.p == nil {
		w = NewWording(language.English)
	}
	return &Orchestrator{Locations: locs, Incidents: incs, Notifier: n, Wording: w, Metrics: m}
}

type group struct {
	key     fire.GroupKey
	loc     fire.Location
	fresh   int
	started bool
}

// NotifyDetections groups tagged detections by the locations that contain
// them. Lookup failures fail the run before any request is sent
func (o *Orchestrator) NotifyDetections(ctx context.Context, tagged []fire.TaggedDetection) (domain.Report, error) {
	var rep domain.Report
	if len(tagged) == 0 {
		return rep, nil
	}
	log := logger.C(ctx)
	start := time.Now()

	groups := map[fire.GroupKey]*group{}
	for _, td := range tagged {
		if td.IncidentID == 0 {
			continue
		}
		locs, err := o.Locations.FindNear(ctx, td.Detection.Point())
		if err != nil {
			return rep, perr.Wrapf(err, perr.CodeOf(err), "find locations near detection %d", td.Detection.ID)
		}
		for _, loc := range locs {
			k := fire.GroupKey{UserID: loc.UserID, LocationID: loc.ID, IncidentID: td.IncidentID}
			g, ok := groups[k]
			if !ok {
				g = &group{key: k, loc: loc}
				groups[k] = g
			}
			g.fresh++
			if td.Tag == fire.TagNewIncident {
				g.started = true
			}
		}
	}

	reqs, err := o.build(ctx, groups, &rep, func(g *group) fire.Kind {
		if g.started {
			return fire.KindNewIncident
		}
		return fire.KindUpdate
	})
	if err != nil {
		return rep, err
	}
	o.emit(ctx, reqs, &rep)

	log.Info().
		Int("detections", len(tagged)).
		Int("groups", rep.Groups).
		Int("sent", rep.Sent).
		Int("failed", rep.Failed).
		Int("errors", len(rep.Errors)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("detection notifications finished")
	return rep, nil
}

// NotifyEnded emits one incident_ended request per location touching each
// incident. Report.Dispatched lists the incidents whose groups were all
// handed to the notifier, including incidents that no longer exist
func (o *Orchestrator) NotifyEnded(ctx context.Context, incidentIDs []int64) (domain.Report, error) {
	var rep domain.Report
	ids := slices.Clone(incidentIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return rep, nil
	}
	log := logger.C(ctx)
	start := time.Now()

	incs, err := o.Incidents.Incidents(ctx, ids)
	if err != nil {
		return rep, perr.Wrap(err, perr.CodeOf(err), "load ended incidents")
	}

	groups := map[fire.GroupKey]*group{}
	for _, id := range ids {
		in, ok := incs[id]
		if !ok {
			log.Warn().Int64("incident_id", id).Msg("ended incident vanished; nothing to send")
			continue
		}
		locs, err := o.Locations.FindNearIncident(ctx, in.Bound())
		if err != nil {
			return rep, perr.Wrapf(err, perr.CodeOf(err), "find locations near incident %d", id)
		}
		for _, loc := range locs {
			k := fire.GroupKey{UserID: loc.UserID, LocationID: loc.ID, IncidentID: id}
			groups[k] = &group{key: k, loc: loc}
		}
	}

	reqs, err := o.buildWith(ctx, groups, incs, &rep, func(*group) fire.Kind { return fire.KindIncidentEnded })
	if err != nil {
		return rep, err
	}
	o.emit(ctx, reqs, &rep)

	failed := map[int64]bool{}
	for _, ie := range rep.Errors {
		failed[ie.IncidentID] = true
	}
	for _, id := range ids {
		if !failed[id] {
			rep.Dispatched = append(rep.Dispatched, id)
		}
	}

	log.Info().
		Int("incidents", len(ids)).
		Int("groups", rep.Groups).
		Int("sent", rep.Sent).
		Int("failed", rep.Failed).
		Int("dispatched", len(rep.Dispatched)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("ended notifications finished")
	return rep, nil
}

func (o *Orchestrator) build(ctx context.Context, groups map[fire.GroupKey]*group, rep *domain.Report, kind func(*group) fire.Kind) ([]fire.NotificationRequest, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(groups))
	seen := map[int64]bool{}
	for k := range groups {
		if !seen[k.IncidentID] {
			seen[k.IncidentID] = true
			ids = append(ids, k.IncidentID)
		}
	}
	slices.Sort(ids)
	incs, err := o.Incidents.Incidents(ctx, ids)
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeOf(err), "load incidents")
	}
	return o.buildWith(ctx, groups, incs, rep, kind)
}

func groupKey(k fire.GroupKey) string {
	return fmt.Sprintf("user=%s location=%s incident=%d", k.UserID, k.LocationID, k.IncidentID)
}

func (o *Orchestrator) buildWith(ctx context.Context, groups map[fire.GroupKey]*group, incs map[int64]fire.Incident, rep *domain.Report, kind func(*group) fire.Kind) ([]fire.NotificationRequest, error) {
	log := logger.C(ctx)
	others := map[fire.GroupKey][]int64{}
	nearby := func(loc fire.Location) ([]int64, error) {
		k := fire.GroupKey{UserID: loc.UserID, LocationID: loc.ID}
		if ids, ok := others[k]; ok {
			return ids, nil
		}
		ids, err := o.Incidents.ActiveNear(ctx, loc.Point(), loc.RadiusM)
		if err != nil {
			return nil, err
		}
		others[k] = ids
		return ids, nil
	}

	keys := make([]fire.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	reqs := make([]fire.NotificationRequest, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		in, ok := incs[k.IncidentID]
		if !ok {
			rep.Errors = append(rep.Errors, domain.ItemError{Key: groupKey(k), IncidentID: k.IncidentID, Err: "incident not found"})
			log.Warn().Str("group", groupKey(k)).Msg("incident missing for group; skipped")
			continue
		}
		active, err := nearby(g.loc)
		if err != nil {
			return nil, perr.Wrapf(err, perr.CodeOf(err), "count active incidents near location %s", g.loc.ID)
		}
		req := fire.NotificationRequest{
			UserID:          k.UserID,
			LocationID:      k.LocationID,
			IncidentID:      k.IncidentID,
			Kind:            kind(g),
			NewDetections:   g.fresh,
			TotalDetections: in.FireCount,
			OtherActive:     countOthers(active, k.IncidentID),
		}
		req.Payload, err = o.Wording.Payload(req, in, g.loc)
		if err != nil {
			rep.Errors = append(rep.Errors, domain.ItemError{Key: groupKey(k), IncidentID: k.IncidentID, Err: err.Error()})
			log.Warn().Err(err).Str("group", groupKey(k)).Msg("payload failed; group skipped")
			continue
		}
		reqs = append(reqs, req)
	}
	rep.Groups = len(reqs)
	return reqs, nil
}

func (o *Orchestrator) emit(ctx context.Context, reqs []fire.NotificationRequest, rep *domain.Report) {
	log := logger.C(ctx)
	rep.Requests = reqs
	for _, req := range reqs {
		d, err := o.Notifier.Send(ctx, req)
		if err != nil {
			d.Failed = max(d.Failed, 1)
			log.Warn().Err(err).Str("group", groupKey(req.Key())).Str("kind", string(req.Kind)).Msg("notifier send failed")
		}
		rep.Sent += d.Sent
		rep.Failed += d.Failed
		o.Metrics.Notified(string(req.Kind), d.Sent, d.Failed)
	}
}

func countOthers(active []int64, own int64) int {
	n := 0
	for _, id := range active {
		if id != own {
			n++
		}
	}
	return n
}

func compareKeys(a, b fire.GroupKey) int {
	if c := bytes.Compare(a.UserID[:], b.UserID[:]); c != 0 {
		return c
	}
	if c := bytes.Compare(a.LocationID[:], b.LocationID[:]); c != 0 {
		return c
	}
	switch {
	case a.IncidentID < b.IncidentID:
		return -1
	case a.IncidentID > b.IncidentID:
		return 1
	}
	return 0
}
