package hub

import (
	"sync"

	"github.com/devicemesh-io/devicecore/core"
)

const jobSubscriberBuffer = 8

// job tracks one deferred execution's status stream. Subscribers
// receive the current status immediately on Subscribe, then every
// subsequent update; once a terminal state is delivered the channel is
// closed, matching §4.5's "terminal states are absorbing".
type job struct {
	mu          sync.Mutex
	id          string
	current     JobStatus
	subscribers []chan JobStatus
}

func newJob() *job {
	return &job{id: core.NewJobID(), current: JobStatus{State: JobQueued}}
}

func (j *job) subscribe() <-chan JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	ch := make(chan JobStatus, jobSubscriberBuffer)
	ch <- j.current
	if j.current.State.Terminal() {
		close(ch)
		return ch
	}
	j.subscribers = append(j.subscribers, ch)
	return ch
}

// update publishes a new status, broadcasting to every subscriber. If
// the new state is terminal, every subscriber channel is closed after
// delivery and no further update is accepted.
func (j *job) update(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.current.State.Terminal() {
		return // absorbing: a terminal state never transitions again
	}
	j.current = status
	for _, ch := range j.subscribers {
		select {
		case ch <- status:
		default:
		}
		if status.State.Terminal() {
			close(ch)
		}
	}
	if status.State.Terminal() {
		j.subscribers = nil
	}
}

// JobTracker owns every in-flight deferred job for a hub.
type JobTracker struct {
	mu   sync.Mutex
	jobs map[string]*job
}

// NewJobTracker creates an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: map[string]*job{}}
}

// Start registers a new job in the Queued state and returns its id
// plus a status stream for the caller who will drive ExecutionResult.
func (t *JobTracker) Start() (string, <-chan JobStatus) {
	j := newJob()
	t.mu.Lock()
	t.jobs[j.id] = j
	t.mu.Unlock()
	return j.id, j.subscribe()
}

// Update publishes a new status for jobID, if it exists.
func (t *JobTracker) Update(jobID string, status JobStatus) {
	t.mu.Lock()
	j, ok := t.jobs[jobID]
	t.mu.Unlock()
	if !ok {
		return
	}
	j.update(status)
}

// Subscribe attaches a new listener to an existing job's status
// stream, replaying its current status immediately.
func (t *JobTracker) Subscribe(jobID string) (<-chan JobStatus, bool) {
	t.mu.Lock()
	j, ok := t.jobs[jobID]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return j.subscribe(), true
}

// Cancel transitions jobID to Cancelled exactly once (§5: "Cancelling
// a Deferred job transitions its status flow to Cancelled exactly
// once").
func (t *JobTracker) Cancel(jobID string) {
	t.Update(jobID, JobStatus{State: JobCancelled})
}
