package push

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/dispatch"
)

type fakeSub struct {
	mu     sync.Mutex
	events []Event
	full   bool
}

func (f *fakeSub) Deliver(ev Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeSub) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Event)
	}
	return out
}

func TestHub_Rooms(t *testing.T) {
	h := NewHub()
	citizen, officer, admin := &fakeSub{}, &fakeSub{}, &fakeSub{}
	h.Join(citizen, "u-citizen", "citizen")
	h.Join(officer, "u-officer", "officer")
	h.Join(admin, "u-admin", "admin")

	h.NotifyUser("u-citizen", "notification:new", "hi")
	h.NotifyRole("officer", "shift", nil)
	h.NotifyAll("maintenance", nil)
	h.NotifyUser("u-missing", "lost", nil)

	assert.Equal(t, []string{"notification:new", "maintenance"}, citizen.names())
	assert.Equal(t, []string{"shift", "maintenance"}, officer.names())
	assert.Equal(t, []string{"maintenance"}, admin.names())
}

func TestHub_ComplaintHelpers(t *testing.T) {
	h := NewHub()
	reporter, officer, admin, other := &fakeSub{}, &fakeSub{}, &fakeSub{}, &fakeSub{}
	h.Join(reporter, "u-1", "citizen")
	h.Join(officer, "u-2", "officer")
	h.Join(admin, "u-3", "admin")
	h.Join(other, "u-4", "citizen")

	c := ComplaintSummary{ID: "c-1", Title: "Leak", Category: "water", Priority: "high", Status: "pending", ReportedBy: "u-1"}
	h.NotifyNewComplaint(c)
	c.Status = "in-progress"
	h.NotifyComplaintUpdate(c, "updated")

	assert.Equal(t, []string{EventComplaintUpdate}, reporter.names())
	assert.Equal(t, []string{EventComplaintNew, EventComplaintUpdate}, officer.names())
	assert.Equal(t, []string{EventComplaintNew, EventComplaintUpdate}, admin.names())
	assert.Empty(t, other.names())

	require.Len(t, reporter.events, 1)
	data := reporter.events[0].Data.(map[string]any)
	assert.Equal(t, "c-1", data["complaintId"])
	assert.Equal(t, "in-progress", data["status"])
}

func TestHub_DeliversOnceAcrossOverlappingRooms(t *testing.T) {
	h := NewHub()
	officerReporter := &fakeSub{}
	h.Join(officerReporter, "u-9", "officer")

	h.NotifyComplaintUpdate(ComplaintSummary{ID: "c", ReportedBy: "u-9"}, "resolved")

	assert.Len(t, officerReporter.names(), 1)
}

func TestHub_LeaveAndRejoin(t *testing.T) {
	m := dispatch.NewMetrics(prometheus.NewRegistry())
	h := NewHub(WithMetrics(m))
	sub := &fakeSub{}

	h.Join(sub, "u-1", "citizen")
	h.Join(sub, "u-1", "officer")
	assert.Equal(t, 1, h.Connections())

	h.NotifyRole("citizen", "stale", nil)
	assert.Empty(t, sub.names(), "rejoin replaces the old role room")

	h.Leave(sub)
	h.NotifyUser("u-1", "gone", nil)
	assert.Empty(t, sub.names())
	assert.Zero(t, h.Connections())
	assert.Zero(t, testutil.ToFloat64(m.PushConnections))

	h.Leave(sub)
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	m := dispatch.NewMetrics(prometheus.NewRegistry())
	h := NewHub(WithMetrics(m))
	h.Join(&fakeSub{full: true}, "u-1", "")

	h.NotifyUser("u-1", "x", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues(dispatch.ChannelPush, dispatch.OutcomeDropped)))
}

func TestHub_ConcurrentUse(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := &fakeSub{}
			h.Join(sub, "u", "citizen")
			h.NotifyRole("citizen", "tick", i)
			h.NotifyAll("all", nil)
			h.Leave(sub)
		}()
	}
	wg.Wait()
	assert.Zero(t, h.Connections())
}
