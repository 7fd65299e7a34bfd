package sinks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quarryhq/quarry/internal/progress"
)

// SiteStats aggregates fetch activity for one site over the process lifetime.
type SiteStats struct {
	Site       string    `json:"site"`
	Visits     int64     `json:"visits"`
	BytesTotal int64     `json:"bytes_total"`
	Fetch2xx   int64     `json:"fetch_2xx"`
	Fetch3xx   int64     `json:"fetch_3xx"`
	Fetch4xx   int64     `json:"fetch_4xx"`
	Fetch5xx   int64     `json:"fetch_5xx"`
	LastUpdate time.Time `json:"last_update"`
}

// RunSummary is the terminal record of one pipeline run.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	Site       string        `json:"site"`
	Term       string        `json:"term,omitempty"`
	Items      int64         `json:"items"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Snapshot is the queryable view the stats endpoint serves.
type Snapshot struct {
	RunsStarted   int64        `json:"runs_started"`
	RunsSucceeded int64        `json:"runs_succeeded"`
	RunsFailed    int64        `json:"runs_failed"`
	Sites         []SiteStats  `json:"sites"`
	RecentRuns    []RunSummary `json:"recent_runs"`
}

const recentRunCap = 50

// StatsSink folds the progress stream into process-scoped aggregates:
// per-site fetch counters and a bounded ring of recent run summaries.
// It is the in-memory stand-in for a durable progress store.
type StatsSink struct {
	mu            sync.Mutex
	runsStarted   int64
	runsSucceeded int64
	runsFailed    int64
	sites         map[string]*SiteStats
	recent        []RunSummary
}

// NewStatsSink returns an empty aggregate.
func NewStatsSink() *StatsSink {
	return &StatsSink{sites: make(map[string]*SiteStats)}
}

// Consume folds the batch into the aggregates.
func (s *StatsSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted++
		case progress.StageRunDone:
			s.runsSucceeded++
			s.recordRun(evt, "")
		case progress.StageRunError:
			s.runsFailed++
			s.recordRun(evt, evt.Note)
		case progress.StageFetchDone:
			s.recordFetch(evt)
		}
	}
	return nil
}

func (s *StatsSink) recordRun(evt progress.Event, errText string) {
	s.recent = append(s.recent, RunSummary{
		RunID:      evt.RunUUID().String(),
		Site:       evt.Site,
		Term:       evt.Term,
		Items:      evt.Items,
		Duration:   evt.Dur,
		Error:      errText,
		FinishedAt: evt.TS,
	})
	if len(s.recent) > recentRunCap {
		s.recent = s.recent[len(s.recent)-recentRunCap:]
	}
}

func (s *StatsSink) recordFetch(evt progress.Event) {
	if evt.Site == "" {
		return
	}
	stat := s.sites[evt.Site]
	if stat == nil {
		stat = &SiteStats{Site: evt.Site}
		s.sites[evt.Site] = stat
	}
	stat.Visits++
	stat.BytesTotal += evt.Bytes
	switch evt.StatusClass {
	case progress.Status2xx:
		stat.Fetch2xx++
	case progress.Status3xx:
		stat.Fetch3xx++
	case progress.Status4xx:
		stat.Fetch4xx++
	case progress.Status5xx:
		stat.Fetch5xx++
	}
	if evt.TS.After(stat.LastUpdate) {
		stat.LastUpdate = evt.TS
	}
}

// Snapshot copies the current aggregates, sites sorted by name and recent
// runs newest first.
func (s *StatsSink) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		RunsStarted:   s.runsStarted,
		RunsSucceeded: s.runsSucceeded,
		RunsFailed:    s.runsFailed,
		Sites:         make([]SiteStats, 0, len(s.sites)),
		RecentRuns:    make([]RunSummary, 0, len(s.recent)),
	}
	for _, stat := range s.sites {
		snap.Sites = append(snap.Sites, *stat)
	}
	sort.Slice(snap.Sites, func(i, j int) bool { return snap.Sites[i].Site < snap.Sites[j].Site })
	for i := len(s.recent) - 1; i >= 0; i-- {
		snap.RecentRuns = append(snap.RecentRuns, s.recent[i])
	}
	return snap
}

// Close implements the Sink interface; it performs no action.
func (s *StatsSink) Close(context.Context) error {
	return nil
}
