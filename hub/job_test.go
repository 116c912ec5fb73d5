package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobTrackerDeliversQueuedImmediatelyOnStart(t *testing.T) {
	tracker := NewJobTracker()
	_, stream := tracker.Start()

	status := <-stream
	assert.Equal(t, JobQueued, status.State)
}

func TestJobTrackerBroadcastsUpdatesToAllSubscribers(t *testing.T) {
	tracker := NewJobTracker()
	id, first := tracker.Start()
	<-first // drain initial Queued

	second, ok := tracker.Subscribe(id)
	require.True(t, ok)
	<-second // drain replayed Queued

	tracker.Update(id, JobStatus{State: JobRunning})

	assert.Equal(t, JobRunning, (<-first).State)
	assert.Equal(t, JobRunning, (<-second).State)
}

func TestJobTrackerTerminalStateClosesChannelAndIsAbsorbing(t *testing.T) {
	tracker := NewJobTracker()
	id, stream := tracker.Start()
	<-stream // Queued

	tracker.Update(id, JobStatus{State: JobCompleted, Output: 42})
	status := <-stream
	assert.Equal(t, JobCompleted, status.State)

	_, open := <-stream
	assert.False(t, open)

	// Further updates after terminal are ignored.
	tracker.Update(id, JobStatus{State: JobFailed})
	late, ok := tracker.Subscribe(id)
	require.True(t, ok)
	final := <-late
	assert.Equal(t, JobCompleted, final.State)
}

func TestJobTrackerCancelIsExactlyOnce(t *testing.T) {
	tracker := NewJobTracker()
	id, stream := tracker.Start()
	<-stream

	tracker.Cancel(id)
	status := <-stream
	assert.Equal(t, JobCancelled, status.State)

	tracker.Cancel(id) // no-op, already terminal
	replay, ok := tracker.Subscribe(id)
	require.True(t, ok)
	assert.Equal(t, JobCancelled, (<-replay).State)
}
