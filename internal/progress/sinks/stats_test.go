package sinks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/internal/progress"
)

func runEvents(site, term string, items int64) []progress.Event {
	id := progress.UUIDToBytes(uuid.New())
	now := time.Now().UTC()
	return []progress.Event{
		{RunID: id, TS: now, Stage: progress.StageRunStart, Site: site, Term: term},
		{RunID: id, TS: now, Stage: progress.StageFetchDone, Site: site,
			StatusClass: progress.Status2xx, Bytes: 1024, Dur: 30 * time.Millisecond},
		{RunID: id, TS: now.Add(time.Second), Stage: progress.StageRunDone, Site: site,
			Term: term, Items: items, Dur: time.Second},
	}
}

func TestStatsSinkAggregates(t *testing.T) {
	t.Parallel()

	s := NewStatsSink()
	require.NoError(t, s.Consume(context.Background(), runEvents("candidpix", "jane", 7)))
	require.NoError(t, s.Consume(context.Background(), runEvents("vidvault", "jane", 2)))
	require.NoError(t, s.Consume(context.Background(), []progress.Event{
		{RunID: progress.UUIDToBytes(uuid.New()), TS: time.Now().UTC(),
			Stage: progress.StageFetchDone, Site: "candidpix",
			StatusClass: progress.Status4xx, Bytes: 12},
	}))

	snap := s.Snapshot()
	require.Equal(t, int64(2), snap.RunsStarted)
	require.Equal(t, int64(2), snap.RunsSucceeded)
	require.Equal(t, int64(0), snap.RunsFailed)

	require.Len(t, snap.Sites, 2)
	// Sites sorted by name.
	require.Equal(t, "candidpix", snap.Sites[0].Site)
	require.Equal(t, "vidvault", snap.Sites[1].Site)
	require.Equal(t, int64(2), snap.Sites[0].Visits)
	require.Equal(t, int64(1036), snap.Sites[0].BytesTotal)
	require.Equal(t, int64(1), snap.Sites[0].Fetch2xx)
	require.Equal(t, int64(1), snap.Sites[0].Fetch4xx)

	// Recent runs newest first.
	require.Len(t, snap.RecentRuns, 2)
	require.Equal(t, "vidvault", snap.RecentRuns[0].Site)
	require.Equal(t, int64(2), snap.RecentRuns[0].Items)
	require.Equal(t, "candidpix", snap.RecentRuns[1].Site)
}

func TestStatsSinkRecordsFailedRuns(t *testing.T) {
	t.Parallel()

	s := NewStatsSink()
	require.NoError(t, s.Consume(context.Background(), []progress.Event{
		{RunID: progress.UUIDToBytes(uuid.New()), TS: time.Now().UTC(),
			Stage: progress.StageRunError, Site: "fanvault", Note: "discovery failed"},
	}))

	snap := s.Snapshot()
	require.Equal(t, int64(1), snap.RunsFailed)
	require.Len(t, snap.RecentRuns, 1)
	require.Equal(t, "discovery failed", snap.RecentRuns[0].Error)
}

func TestStatsSinkRecentRunRing(t *testing.T) {
	t.Parallel()

	s := NewStatsSink()
	for i := 0; i < recentRunCap+10; i++ {
		require.NoError(t, s.Consume(context.Background(),
			runEvents("candidpix", fmt.Sprintf("term-%d", i), int64(i))))
	}
	snap := s.Snapshot()
	require.Len(t, snap.RecentRuns, recentRunCap)
	// Newest first, oldest entries evicted.
	require.Equal(t, fmt.Sprintf("term-%d", recentRunCap+9), snap.RecentRuns[0].Term)
	require.Equal(t, "term-10", snap.RecentRuns[recentRunCap-1].Term)
}

func TestStatsSinkSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	s := NewStatsSink()
	require.NoError(t, s.Consume(context.Background(), runEvents("candidpix", "jane", 1)))

	snap := s.Snapshot()
	snap.Sites[0].Visits = 999
	require.Equal(t, int64(1), s.Snapshot().Sites[0].Visits)
}
