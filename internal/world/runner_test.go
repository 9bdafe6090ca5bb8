package world

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerToggleGatesStep(t *testing.T) {
	w := newTestWorld(t, cube(2), cube(1), allSolid)
	r := NewRunner(w, nil, 0)
	assert.Equal(t, 60, r.rate)
	assert.Equal(t, Running, r.State())

	assert.Equal(t, Paused, r.Toggle())
	stats, err := r.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
	assert.Equal(t, 1, w.DirtyCount())

	last, ticks := r.LastStats()
	assert.Equal(t, uint64(1), ticks)
	assert.Zero(t, last.ChunksMeshed)

	assert.Equal(t, Running, r.Toggle())
	stats, err = r.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunksMeshed)
	assert.Zero(t, w.DirtyCount())

	last, ticks = r.LastStats()
	assert.Equal(t, uint64(2), ticks)
	assert.Equal(t, 8, last.Attachments)
}

func TestRunnerRunStopsOnCancel(t *testing.T) {
	w := newTestWorld(t, cube(2), cube(2), checkerboard)
	r := NewRunner(w, nil, 200)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ticks := r.LastStats()
		return ticks > 0 && w.DirtyCount() == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}

func TestRunnerHooks(t *testing.T) {
	w := newTestWorld(t, cube(2), cube(1), allSolid)
	r := NewRunner(w, nil, 60)

	var cycles []UpdateStats
	var states []SimulationState
	r.OnCycle(func(_ context.Context, s UpdateStats) { cycles = append(cycles, s) })
	r.OnToggle(func(s SimulationState) { states = append(states, s) })

	_, err := r.Step(context.Background())
	require.NoError(t, err)
	// Второй цикл без грязных чанков хук не вызывает
	_, err = r.Step(context.Background())
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, 8, cycles[0].Attachments)

	r.Toggle()
	r.Toggle()
	assert.Equal(t, []SimulationState{Paused, Running}, states)
}

func TestRunnerClampsTickRate(t *testing.T) {
	w := newTestWorld(t, cube(2), cube(1), allSolid)
	r := NewRunner(w, nil, 2_000_000_000)
	assert.Equal(t, config.MaxTickRate, r.rate)
	assert.Equal(t, config.DefaultTickRate, NewRunner(w, nil, -5).rate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		_, ticks := r.LastStats()
		return ticks > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
