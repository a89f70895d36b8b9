package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/text/language"

	"firewatch/internal/adapters/memstore"
	"firewatch/internal/core/fire"
	"firewatch/internal/modkit/repokit"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/metrics"
	"firewatch/internal/platform/testkit"
	"firewatch/internal/services/notify/domain"
)

var (
	t0    = time.Date(2025, 8, 1, 3, 42, 0, 0, time.UTC)
	alice = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	bob   = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	home  = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	cabin = uuid.MustParse("00000000-0000-0000-0000-0000000000a2")
	farm  = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
)

type sink struct {
	reqs []fire.NotificationRequest
	fail map[int64]error
}

func (s *sink) Send(_ context.Context, req fire.NotificationRequest) (domain.Delivery, error) {
	s.reqs = append(s.reqs, req)
	if err := s.fail[req.IncidentID]; err != nil {
		return domain.Delivery{}, err
	}
	return domain.Delivery{Sent: 2}, nil
}

type fixture struct {
	store *memstore.Store
	sink  *sink
	orch  *Orchestrator
	inc   map[string]int64
}

func detAt(lat, lon float64) fire.Detection {
	return fire.Detection{Source: "S", Latitude: lat, Longitude: lon, FRP: 3, DetectedAt: t0}
}

// alice watches home and cabin, bob watches farm; incident "a" sits inside
// home and farm, "b" only inside cabin and home's wide radius
func newFixture(t *testing.T, m *metrics.Metrics) *fixture {
	t.Helper()
	s := memstore.New()
	s.AddLocation(fire.Location{ID: home, UserID: alice, Name: "Home", Latitude: 0, Longitude: 0, RadiusM: 30000})
	s.AddLocation(fire.Location{ID: cabin, UserID: alice, Name: "Cabin", Latitude: 0.2, Longitude: 0, RadiusM: 5000})
	s.AddLocation(fire.Location{ID: farm, UserID: bob, Name: "Farm", Latitude: 0, Longitude: 0.05, RadiusM: 10000})

	a := fire.NewIncident(detAt(0.01, 0.01))
	a.FireCount = 7
	b := fire.NewIncident(detAt(0.2, 0.01))
	b.FireCount = 1
	f := &fixture{store: s, sink: &sink{}, inc: map[string]int64{}}
	f.inc["a"] = s.PutIncident(a)
	f.inc["b"] = s.PutIncident(b)
	f.orch = New(s.Locations(), repokit.MustBind(memstore.IncidentReader(), s), f.sink, NewWording(language.English), m)
	return f
}

func tag(f *fixture, name string, d fire.Detection, tg fire.Tag) fire.TaggedDetection {
	return fire.TaggedDetection{Detection: d, IncidentID: f.inc[name], Tag: tg}
}

func TestNotifyDetections_OneRequestPerGroup(t *testing.T) {
	t.Parallel()

	m, _ := metrics.NewForTesting()
	f := newFixture(t, m)
	batch := []fire.TaggedDetection{
		tag(f, "a", detAt(0.01, 0.01), fire.TagNewIncident),
		tag(f, "a", detAt(0.011, 0.01), fire.TagExistingIncident),
		tag(f, "a", detAt(0.012, 0.01), fire.TagExistingIncident),
		tag(f, "b", detAt(0.2, 0.01), fire.TagExistingIncident),
	}

	rep, err := f.orch.NotifyDetections(context.Background(), batch)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	// a: home + farm, b: cabin + home
	if rep.Groups != 4 || len(f.sink.reqs) != 4 || rep.Sent != 8 || rep.Failed != 0 {
		t.Fatalf("report=%+v", rep)
	}
	seen := map[fire.GroupKey]bool{}
	for _, r := range f.sink.reqs {
		if seen[r.Key()] {
			t.Fatalf("duplicate group %+v", r.Key())
		}
		seen[r.Key()] = true
	}

	byKey := func(loc uuid.UUID, inc int64) fire.NotificationRequest {
		for _, r := range f.sink.reqs {
			if r.LocationID == loc && r.IncidentID == inc {
				return r
			}
		}
		t.Fatalf("missing request location=%s incident=%d", loc, inc)
		return fire.NotificationRequest{}
	}
	homeA := byKey(home, f.inc["a"])
	if homeA.Kind != fire.KindNewIncident || homeA.NewDetections != 3 || homeA.TotalDetections != 7 || homeA.OtherActive != 1 {
		t.Fatalf("home/a=%+v", homeA)
	}
	cabinB := byKey(cabin, f.inc["b"])
	if cabinB.Kind != fire.KindUpdate || cabinB.NewDetections != 1 || cabinB.OtherActive != 0 {
		t.Fatalf("cabin/b=%+v", cabinB)
	}
	farmA := byKey(farm, f.inc["a"])
	if farmA.UserID != bob || farmA.OtherActive != 0 {
		t.Fatalf("farm/a=%+v", farmA)
	}

	var p struct {
		Title    string `json:"title"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		Incident struct {
			FireCount int `json:"fire_count"`
		} `json:"incident"`
	}
	if err := json.Unmarshal(homeA.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Title != "New fire near Home (1 of 2 active fires)" || p.Location.Name != "Home" || p.Incident.FireCount != 7 {
		t.Fatalf("payload=%+v", p)
	}
	if got := testutil.ToFloat64(m.NotificationGroups.WithLabelValues(string(fire.KindNewIncident))); got != 2 {
		t.Fatalf("new incident groups metric=%v", got)
	}
	if got := testutil.ToFloat64(m.NotificationsSent); got != 8 {
		t.Fatalf("sent metric=%v", got)
	}
}

func TestNotifyDetections_OrderedAndRepeatable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	batch := []fire.TaggedDetection{
		tag(f, "b", detAt(0.2, 0.01), fire.TagExistingIncident),
		tag(f, "a", detAt(0.01, 0.01), fire.TagExistingIncident),
	}
	first, err := f.orch.NotifyDetections(context.Background(), batch)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	second, err := f.orch.NotifyDetections(context.Background(), batch)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(first.Requests) != len(second.Requests) {
		t.Fatalf("sizes %d vs %d", len(first.Requests), len(second.Requests))
	}
	for i := range first.Requests {
		if first.Requests[i].Key() != second.Requests[i].Key() {
			t.Fatalf("order differs at %d", i)
		}
		if i > 0 && compareKeys(first.Requests[i-1].Key(), first.Requests[i].Key()) >= 0 {
			t.Fatalf("requests not sorted at %d", i)
		}
	}
}

func TestNotifyDetections_NoLocationsNoRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	rep, err := f.orch.NotifyDetections(context.Background(), []fire.TaggedDetection{
		{Detection: detAt(40, 40), IncidentID: f.inc["a"], Tag: fire.TagNewIncident},
	})
	if err != nil || rep.Groups != 0 || len(f.sink.reqs) != 0 {
		t.Fatalf("rep=%+v err=%v", rep, err)
	}
}

func TestNotifyDetections_SendFailureIsCounted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.sink.fail = map[int64]error{f.inc["b"]: errors.New("push gateway down")}
	rep, err := f.orch.NotifyDetections(context.Background(), []fire.TaggedDetection{
		tag(f, "a", detAt(0.01, 0.01), fire.TagExistingIncident),
		tag(f, "b", detAt(0.2, 0.01), fire.TagExistingIncident),
	})
	if err != nil {
		t.Fatalf("send failures must not fail the run: %v", err)
	}
	if rep.Groups != 4 || rep.Failed != 2 || rep.Sent != 4 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestNotifyDetections_LookupErrorSendsNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	calls := 0
	f.store.FailOn(memstore.OpFindNear, func() error {
		calls++
		if calls == 2 {
			return perr.Unavailablef("location store down")
		}
		return nil
	})
	_, err := f.orch.NotifyDetections(context.Background(), []fire.TaggedDetection{
		tag(f, "a", detAt(0.01, 0.01), fire.TagNewIncident),
		tag(f, "b", detAt(0.2, 0.01), fire.TagNewIncident),
	})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
	if len(f.sink.reqs) != 0 {
		t.Fatalf("sent %d before failing", len(f.sink.reqs))
	}
}

func TestNotifyDetections_MissingIncidentIsItemError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	rep, err := f.orch.NotifyDetections(context.Background(), []fire.TaggedDetection{
		{Detection: detAt(0.01, 0.01), IncidentID: 999, Tag: fire.TagNewIncident},
		tag(f, "a", detAt(0.01, 0.01), fire.TagExistingIncident),
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(rep.Errors) != 2 || rep.Errors[0].IncidentID != 999 || rep.Groups != 2 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestNotifyEnded(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	a := f.inc["a"]
	in, _ := f.store.Incident(a)
	f.store.PutIncident(in.End(t0.Add(25 * time.Hour)))

	rep, err := f.orch.NotifyEnded(context.Background(), []int64{a, a, 404})
	if err != nil {
		t.Fatalf("notify ended: %v", err)
	}
	if rep.Groups != 2 || len(f.sink.reqs) != 2 {
		t.Fatalf("report=%+v", rep)
	}
	for _, r := range f.sink.reqs {
		if r.Kind != fire.KindIncidentEnded || r.IncidentID != a || r.NewDetections != 0 || r.TotalDetections != 7 {
			t.Fatalf("request=%+v", r)
		}
	}
	if len(rep.Dispatched) != 2 || rep.Dispatched[0] != a || rep.Dispatched[1] != 404 {
		t.Fatalf("dispatched=%v", rep.Dispatched)
	}
}

func TestNotifyEnded_LookupErrorFailsRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.store.FailOn(memstore.OpIncidents, func() error { return perr.Unavailablef("db down") })
	rep, err := f.orch.NotifyEnded(context.Background(), []int64{f.inc["a"]})
	if err == nil || len(rep.Dispatched) != 0 {
		t.Fatalf("rep=%+v err=%v", rep, err)
	}
}

func TestWording(t *testing.T) {
	t.Parallel()

	w := NewWording(language.English)
	cases := []struct {
		req  fire.NotificationRequest
		want string
	}{
		{fire.NotificationRequest{Kind: fire.KindNewIncident}, "New fire near Home"},
		{fire.NotificationRequest{Kind: fire.KindUpdate, NewDetections: 1}, "1 new detection near Home"},
		{fire.NotificationRequest{Kind: fire.KindUpdate, NewDetections: 3, OtherActive: 1}, "3 new detections near Home (1 of 2 active fires)"},
		{fire.NotificationRequest{Kind: fire.KindUpdate, NewDetections: 1200}, "1,200 new detections near Home"},
		{fire.NotificationRequest{Kind: fire.KindIncidentEnded, OtherActive: 4}, "Fire near Home has ended"},
	}
	for _, c := range cases {
		if got := w.Title(c.req, "Home"); got != c.want {
			t.Fatalf("title=%q want %q", got, c.want)
		}
	}
	ended := w.Body(fire.NotificationRequest{Kind: fire.KindIncidentEnded, TotalDetections: 12}, fire.Incident{LastDetectedAt: t0})
	testkit.MustContain(t, ended, "No new detections since Aug 1 03:42 UTC")
	testkit.MustContain(t, ended, "12 detections in total")
}

func TestNew_Requirements(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	r := repokit.MustBind(memstore.IncidentReader(), s)
	testkit.MustPanic(t, func() { New(nil, r, &sink{}, Wording{}, nil) })
	testkit.MustPanic(t, func() { New(s.Locations(), nil, &sink{}, Wording{}, nil) })
	testkit.MustPanic(t, func() { New(s.Locations(), r, nil, Wording{}, nil) })
	if o := New(s.Locations(), r, &sink{}, Wording{}, nil); o.Wording.p == nil {
		t.Fatal("zero wording not defaulted")
	}
}
