package epg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvent_Progress(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, time.August, 25, 20, 0, 0, 0, time.UTC)
	ev := Event{Name: "news", Start: start, Duration: time.Hour}

	require.Equal(t, 0.0, ev.Progress(start.Add(-time.Minute)), "before start clips to 0")
	require.Equal(t, 0.5, ev.Progress(start.Add(30*time.Minute)))
	require.Equal(t, 1.0, ev.Progress(start.Add(2*time.Hour)), "after end clips to 1")
	require.Equal(t, start.Add(time.Hour), ev.End())
}

func TestEvent_ProgressZeroDuration(t *testing.T) {
	t.Parallel()
	ev := Event{Start: time.Now()}
	require.Equal(t, 0.0, ev.Progress(time.Now().Add(time.Hour)))
}

func TestTable_SnapshotIsolation(t *testing.T) {
	t.Parallel()
	var tbl Table
	tbl.SetChannel("News 24")
	tbl.SetCurrent(Event{Name: "Evening News", Duration: time.Hour})
	tbl.SetFollowing([]Event{{Name: "Weather"}})

	snap := tbl.Snapshot()

	// Later writes must not show through an earlier snapshot.
	tbl.SetChannel("Other")
	tbl.SetCurrent(Event{Name: "Late Film"})
	tbl.SetFollowing(nil)

	require.Equal(t, "News 24", snap.Channel)
	require.NotNil(t, snap.Current)
	require.Equal(t, "Evening News", snap.Current.Name)
	require.Len(t, snap.Following, 1)
	require.Equal(t, "Weather", snap.Following[0].Name)
}

func TestTable_EmptySnapshot(t *testing.T) {
	t.Parallel()
	var tbl Table
	snap := tbl.Snapshot()
	require.Empty(t, snap.Channel)
	require.Nil(t, snap.Current)
	require.Empty(t, snap.Following)
}
