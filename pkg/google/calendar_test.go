package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/notask/pkg/colors"
	"github.com/harrisonrobin/notask/pkg/index"
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/overdue"
	"github.com/harrisonrobin/notask/pkg/util"
)

// fakeCalendar is an in-memory stand-in for the parts of the Calendar API the
// mirror uses.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	nextID  int
	inserts int
	patches map[string][]string
	failOn  string
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]*calendar.Event{}, patches: map[string][]string{}}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, msg)
}

func (f *fakeCalendar) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "personal", Summary: "Personal"},
			{Id: "cal-1", Summary: "Tasks"},
		}})
	})

	mux.HandleFunc("GET /calendars/cal-1/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		want := r.URL.Query().Get("privateExtendedProperty")
		out := &calendar.Events{Items: []*calendar.Event{}}
		for _, e := range f.events {
			if e.ExtendedProperties == nil {
				continue
			}
			for k, v := range e.ExtendedProperties.Private {
				if k+"="+v == want {
					out.Items = append(out.Items, e)
				}
			}
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("GET /calendars/cal-1/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		e, ok := f.events[r.PathValue("id")]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, e)
	})

	mux.HandleFunc("POST /calendars/cal-1/events", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if f.failOn != "" && strings.Contains(e.Summary, f.failOn) {
			writeError(w, http.StatusBadRequest, "invalid event")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		e.Id = fmt.Sprintf("ev-%d", f.nextID)
		f.events[e.Id] = &e
		f.inserts++
		writeJSON(w, e)
	})

	mux.HandleFunc("PATCH /calendars/cal-1/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		e, ok := f.events[id]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		body, _ := io.ReadAll(r.Body)
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := json.Unmarshal(body, e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for k := range fields {
			f.patches[id] = append(f.patches[id], k)
		}
		writeJSON(w, e)
	})

	mux.HandleFunc("DELETE /calendars/cal-1/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := f.events[id]; !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		delete(f.events, id)
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, f *fakeCalendar) *calendar.Service {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"),
	)
	require.NoError(t, err)
	return srv
}

func newTestClient(t *testing.T, f *fakeCalendar) (*CalendarClient, *index.EventIndex) {
	t.Helper()
	idx, err := index.NewEventIndex(t.TempDir())
	require.NoError(t, err)
	c, err := Open(context.Background(), newTestService(t, f), "Tasks", idx, quietLogger())
	require.NoError(t, err)
	return c, idx
}

var syncNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func task(id, name, due string) *model.Task {
	return &model.Task{
		ID:      id,
		Name:    name,
		DueDate: model.DateValue{Start: due},
		Status:  model.SelectOption{ID: "s1", Name: "Not started", Color: "red"},
	}
}

func TestOpen(t *testing.T) {
	f := newFakeCalendar()
	c, _ := newTestClient(t, f)
	assert.Equal(t, "cal-1", c.calendarID)

	_, err := Open(context.Background(), newTestService(t, f), "Exams", nil, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar 'Exams' not found")
}

func TestSyncTask_InsertsThenPatchesChangedFields(t *testing.T) {
	f := newFakeCalendar()
	c, idx := newTestClient(t, f)
	ctx := context.Background()

	created, err := c.SyncTask(ctx, task("p1", "Lab report", "2024-03-12T10:00:00Z"), colors.Tomato, syncNow)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", created.Id)
	assert.Equal(t, "ev-1", idx.Get("p1"))
	assert.Equal(t, "p1", created.ExtendedProperties.Private[util.PagePropertyKey])

	unchanged, err := c.SyncTask(ctx, task("p1", "Lab report", "2024-03-12T10:00:00Z"), colors.Tomato, syncNow)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", unchanged.Id)
	assert.Empty(t, f.patches["ev-1"], "unchanged task is not patched")

	renamed, err := c.SyncTask(ctx, task("p1", "Lab report v2", "2024-03-12T10:00:00Z"), colors.Tomato, syncNow)
	require.NoError(t, err)
	assert.Equal(t, "Lab report v2", renamed.Summary)
	assert.Equal(t, []string{"summary"}, f.patches["ev-1"])
	assert.Equal(t, 1, f.inserts)
}

func TestSyncTask_StaleIndexFallsBackToSearch(t *testing.T) {
	f := newFakeCalendar()
	c, idx := newTestClient(t, f)
	ctx := context.Background()

	_, err := c.SyncTask(ctx, task("p1", "Quiz", "2024-03-12"), "", syncNow)
	require.NoError(t, err)

	idx.Set("p1", "gone")
	event, err := c.SyncTask(ctx, task("p1", "Quiz", "2024-03-12"), "", syncNow)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", event.Id)
	assert.Equal(t, "ev-1", idx.Get("p1"))
	assert.Equal(t, 1, f.inserts)
}

func TestSyncTask_DeletesDuplicateEvents(t *testing.T) {
	f := newFakeCalendar()
	for _, id := range []string{"dup-a", "dup-b", "dup-c"} {
		f.events[id] = &calendar.Event{
			Id:                 id,
			Summary:            "Quiz",
			ExtendedProperties: &calendar.EventExtendedProperties{Private: map[string]string{util.PagePropertyKey: "p1"}},
		}
	}
	c, idx := newTestClient(t, f)

	event, err := c.SyncTask(context.Background(), task("p1", "Quiz", "2024-03-12"), "", syncNow)
	require.NoError(t, err)
	assert.Zero(t, f.inserts)
	require.Len(t, f.events, 1)
	assert.Contains(t, f.events, event.Id)
	assert.Equal(t, event.Id, idx.Get("p1"))
}

func TestGetEventByPageID_Missing(t *testing.T) {
	c, _ := newTestClient(t, newFakeCalendar())
	event, err := c.GetEventByPageID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, event)
}

func newTestMirror(t *testing.T, f *fakeCalendar, now time.Time) *Mirror {
	t.Helper()
	dir := t.TempDir()
	c, idx := newTestClient(t, f)
	table, err := overdue.NewTable(dir)
	require.NoError(t, err)
	cache, err := colors.NewColorCache(dir)
	require.NoError(t, err)
	return &Mirror{
		Calendar: c,
		Index:    idx,
		Overdue:  table,
		Colors:   cache,
		Now:      func() time.Time { return now },
		Logger:   quietLogger(),
	}
}

func TestMirror_SyncContinuesPastFailures(t *testing.T) {
	f := newFakeCalendar()
	f.failOn = "broken"
	m := newTestMirror(t, f, syncNow)

	tasks := []model.Task{
		*task("p1", "Essay", "2024-03-11T12:00:00Z"),
		*task("p2", "broken task", "2024-03-11T13:00:00Z"),
		*task("p3", "Reading", "2024-03-12"),
	}
	tasks[0].Class = []model.RelationLink{{ID: "class-a"}}

	report, err := m.Sync(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Synced: 2, Failed: 1}, report)

	assert.Equal(t, "1", f.events["ev-1"].ColorId, "first class gets the first free color")
	assert.Equal(t, colors.Tomato, f.events["ev-2"].ColorId, "no class falls back to the status color")

	require.Contains(t, m.Overdue.Entries, "p1")
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), m.Overdue.Entries["p3"].Due)
	assert.NotContains(t, m.Overdue.Entries, "p2")
}

func TestMirror_SweepFlagsOverdueEvents(t *testing.T) {
	f := newFakeCalendar()
	m := newTestMirror(t, f, syncNow)
	ctx := context.Background()

	_, err := m.Sync(ctx, []model.Task{*task("p1", "Essay", "2024-03-10T12:00:00Z")})
	require.NoError(t, err)

	m.Now = func() time.Time { return syncNow.Add(6 * time.Hour) }
	report, err := m.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Flagged)
	assert.Equal(t, "! Essay", f.events["ev-1"].Summary)
	assert.Empty(t, m.Overdue.Entries)

	report, err = m.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Flagged, "each event is flagged once")
}

func TestMirror_DoneTasksLeaveTheTable(t *testing.T) {
	f := newFakeCalendar()
	m := newTestMirror(t, f, syncNow)

	done := task("p1", "Essay", "2024-03-11T12:00:00Z")
	done.Status.Name = "Done"
	_, err := m.Sync(context.Background(), []model.Task{*done})
	require.NoError(t, err)
	assert.Empty(t, m.Overdue.Entries)
	assert.Equal(t, "✓ Essay", f.events["ev-1"].Summary)
}
