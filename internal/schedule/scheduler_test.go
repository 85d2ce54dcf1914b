package schedule

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	mu      sync.Mutex
	runs    int
	release chan struct{}
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	<-j.release
	return nil
}

func TestSingleFlight_SkipsOverlappingTick(t *testing.T) {
	s := New()
	job := &blockingJob{release: make(chan struct{})}
	tick := s.singleFlight(job)

	firstDone := make(chan struct{})
	go func() {
		tick()
		close(firstDone)
	}()

	// Wait until the first run holds the flight slot.
	for {
		job.mu.Lock()
		started := job.runs == 1
		job.mu.Unlock()
		if started {
			break
		}
	}

	tick()
	job.mu.Lock()
	require.Equal(t, 1, job.runs, "overlapping tick must be skipped")
	job.mu.Unlock()

	close(job.release)
	<-firstDone

	job.release = make(chan struct{})
	close(job.release)
	tick()
	job.mu.Lock()
	require.Equal(t, 2, job.runs, "next tick runs once the slot frees")
	job.mu.Unlock()
}

func TestAdd_RejectsBadSpec(t *testing.T) {
	s := New()
	err := s.Add(&blockingJob{release: make(chan struct{})}, "not a cron spec")
	require.Error(t, err)
}

func TestAdd_AcceptsFiveFieldSpec(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(&blockingJob{release: make(chan struct{})}, "*/5 * * * *"))
}
