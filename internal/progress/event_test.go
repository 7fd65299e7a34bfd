package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func validEvent(stage Stage) Event {
	evt := Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: stage,
		Site:  "candidpix",
	}
	if stage == StageFetchDone {
		evt.StatusClass = Status2xx
	}
	return evt
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	for _, stage := range []Stage{StageRunStart, StageRunDone, StageRunError, StageFetchDone} {
		require.NoError(t, validEvent(stage).Validate(), string(stage))
	}

	cases := []struct {
		name   string
		mutate func(*Event)
	}{
		{"zero run id", func(e *Event) { e.RunID = [16]byte{} }},
		{"zero timestamp", func(e *Event) { e.TS = time.Time{} }},
		{"missing site", func(e *Event) { e.Site = "" }},
		{"unknown stage", func(e *Event) { e.Stage = "SOMETHING" }},
		{"negative duration", func(e *Event) { e.Dur = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			evt := validEvent(StageRunDone)
			tc.mutate(&evt)
			require.Error(t, evt.Validate())
		})
	}

	t.Run("fetch done requires status class", func(t *testing.T) {
		t.Parallel()
		evt := validEvent(StageFetchDone)
		evt.StatusClass = ""
		require.Error(t, evt.Validate())
	})
}

func TestRunUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{RunID: UUIDToBytes(id)}
	require.Equal(t, id, evt.RunUUID())
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, Status2xx, ClassifyStatus(200))
	require.Equal(t, Status2xx, ClassifyStatus(206))
	require.Equal(t, Status3xx, ClassifyStatus(302))
	require.Equal(t, Status4xx, ClassifyStatus(404))
	require.Equal(t, Status5xx, ClassifyStatus(503))
	require.Equal(t, StatusOther, ClassifyStatus(0))
	require.Equal(t, StatusOther, ClassifyStatus(999))
}
