package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingPruner struct {
	calls atomic.Int32
}

func (p *countingPruner) PruneCaches() int {
	p.calls.Add(1)
	return 2
}

type countingWarmer struct {
	calls atomic.Int32
	err   error
}

func (w *countingWarmer) Warm(ctx context.Context) error {
	w.calls.Add(1)
	return w.err
}

func TestScheduler_RunsJobs(t *testing.T) {
	pruner := &countingPruner{}
	warmer := &countingWarmer{err: fmt.Errorf("db down")}

	s := New(pruner, warmer, 20*time.Millisecond, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return pruner.calls.Load() >= 2 && warmer.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_DisabledJobs(t *testing.T) {
	pruner := &countingPruner{}
	warmer := &countingWarmer{}

	s := New(pruner, warmer, 0, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool {
		return warmer.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(0), pruner.calls.Load())
}
