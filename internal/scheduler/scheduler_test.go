package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	calls atomic.Int32
	err   error
}

func (j *countingJob) Run() error {
	j.calls.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("every now and then", &countingJob{name: "bad"})
	require.Error(t, err)
	assert.Empty(t, s.Status())
}

func TestAddJob_DuplicateName(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "cleanup"}))
	assert.Error(t, s.AddJob("@daily", &countingJob{name: "cleanup"}))
}

func TestRunNow_RecordsStatus(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("bucket missing")}

	require.NoError(t, s.AddJob("@daily", ok))
	require.NoError(t, s.RunNow(ok))
	require.NoError(t, s.RunNow(ok))
	assert.EqualError(t, s.RunNow(failing), "bucket missing")

	byName := map[string]RunStatus{}
	for _, st := range s.Status() {
		byName[st.Job] = st
	}
	assert.Equal(t, 2, byName["ok"].Runs)
	assert.Equal(t, "@daily", byName["ok"].Schedule)
	assert.Empty(t, byName["ok"].LastError)
	assert.Equal(t, "bucket missing", byName["failing"].LastError)
	assert.False(t, byName["failing"].LastRun.IsZero())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}

	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
