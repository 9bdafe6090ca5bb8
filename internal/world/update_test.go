package world

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/annel0/voxelcore/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingSink struct {
	mu   sync.Mutex
	got  []Attachment
	fail error
}

func (s *collectingSink) Attach(a Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.got = append(s.got, a)
	return nil
}

var checkerboard = PopulatorFunc(func(g vec.Vec3) bool {
	return (g.X+g.Y+g.Z)%2 == 0
})

func snapshot(w *World) map[vec.Vec3][]Voxel {
	out := make(map[vec.Vec3][]Voxel)
	for _, coord := range w.ChunkCoords() {
		c, _ := w.Chunk(coord)
		out[coord] = append([]Voxel(nil), c.grid.voxels...)
	}
	return out
}

func TestUpdateMeshesDirtyChunks(t *testing.T) {
	w := newTestWorld(t, cube(3), Dimensions{Width: 2, Depth: 1, Height: 1}, allSolid)
	sink := &collectingSink{}

	stats, err := w.Update(context.Background(), Running, sink)
	require.NoError(t, err)

	assert.False(t, stats.Skipped)
	assert.Equal(t, 2, stats.ChunksMeshed)
	assert.Equal(t, 54, stats.Attachments)
	assert.Len(t, sink.got, 54)
	assert.Zero(t, w.DirtyCount())

	// Центральный воксель полностью скрыт, но вложение (пустой меш) всё равно есть
	c, _ := w.Chunk(vec.Vec3{})
	center := cube(3).MustLocal(1, 1, 1)
	m, ok := c.Attachment(center)
	require.True(t, ok)
	assert.True(t, m.Empty())
	assert.Equal(t, MaskNone, c.Voxel(center).Mask)

	// Второй цикл без правок ничего не делает
	stats, err = w.Update(context.Background(), Running, sink)
	require.NoError(t, err)
	assert.Zero(t, stats.ChunksMeshed)
	assert.Len(t, sink.got, 54)
}

func TestUpdateSharesMeshesByMask(t *testing.T) {
	w := newTestWorld(t, cube(4), cube(2), checkerboard)
	sink := &collectingSink{}
	_, err := w.Update(context.Background(), Running, sink)
	require.NoError(t, err)

	byMask := make(map[FaceMask]*Mesh)
	for _, a := range sink.got {
		c, _ := w.Chunk(a.Chunk)
		assert.Equal(t, c.Voxel(a.Local).Mask, a.Mesh.Mask())
		if prev, ok := byMask[a.Mesh.Mask()]; ok {
			assert.Same(t, prev, a.Mesh)
		}
		byMask[a.Mesh.Mask()] = a.Mesh
	}
	assert.Equal(t, len(byMask), w.Cache().Len())
	assert.LessOrEqual(t, w.Cache().Len(), MaskCount)
}

func TestUpdateNeverAttachesEmptyVoxels(t *testing.T) {
	w := newTestWorld(t, cube(4), cube(2), NewRandomPopulator(7, 0.5))
	_, err := w.Update(context.Background(), Running, nil)
	require.NoError(t, err)

	// Правка после цикла: опустевший воксель теряет вложение сразу
	_, err = w.SetSolidGlobal(vec.Vec3{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)
	_, err = w.Update(context.Background(), Running, nil)
	require.NoError(t, err)
	_, err = w.SetSolidGlobal(vec.Vec3{X: 1, Y: 1, Z: 1}, false)
	require.NoError(t, err)

	for _, coord := range w.ChunkCoords() {
		c, _ := w.Chunk(coord)
		c.grid.Each(func(lc LocalCoord, v Voxel) {
			m, ok := c.Attachment(lc)
			if !v.Solid {
				assert.False(t, ok, "%s %s", c.Name(), lc)
			} else if !c.Dirty() {
				require.True(t, ok, "%s %s", c.Name(), lc)
				assert.Equal(t, v.Mask, m.Mask())
			}
		})
	}
}

func TestUpdatePausedLeavesStateUntouched(t *testing.T) {
	w := newTestWorld(t, cube(2), cube(2), checkerboard)
	rec := &recordingMetrics{}
	w.SetMetrics(rec)

	before := snapshot(w)
	stats, err := w.Update(context.Background(), Paused, &collectingSink{fail: errors.New("must not be called")})
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
	assert.Equal(t, 8, w.DirtyCount())
	assert.Equal(t, before, snapshot(w))
	assert.Zero(t, w.Cache().Len())

	// После цикла правка снова пачкает чанк; на паузе маски не пересчитываются
	_, err = w.Update(context.Background(), Running, nil)
	require.NoError(t, err)
	_, err = w.SetSolidGlobal(vec.Vec3{X: 1, Y: 0, Z: 0}, true)
	require.NoError(t, err)
	before = snapshot(w)
	_, err = w.Update(context.Background(), Paused, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, w.DirtyCount())
	assert.Equal(t, before, snapshot(w))

	require.Len(t, rec.cycles, 3)
	assert.True(t, rec.cycles[0].Skipped)
	assert.False(t, rec.cycles[1].Skipped)
	assert.Equal(t, 8, rec.cycles[1].ChunksMeshed)
	assert.True(t, rec.cycles[2].Skipped)
	assert.Positive(t, rec.misses)
}

func TestUpdateSinkErrorKeepsChunkDirty(t *testing.T) {
	w := newTestWorld(t, cube(2), Dimensions{Width: 1, Depth: 1, Height: 1}, allSolid)
	boom := errors.New("renderer gone")

	stats, err := w.Update(context.Background(), Running, &collectingSink{fail: boom})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, stats.ChunksMeshed)
	assert.Equal(t, 1, w.DirtyCount())

	_, err = w.Update(context.Background(), Running, &collectingSink{})
	require.NoError(t, err)
	assert.Zero(t, w.DirtyCount())
}

func TestUpdateParallelMatchesSequential(t *testing.T) {
	chunk := cube(4)
	dims := Dimensions{Width: 3, Depth: 2, Height: 3}
	seq, err := NewWorld(Options{ChunkDims: chunk, WorldDims: dims, Boundary: BoundaryNeighbor}, checkerboard)
	require.NoError(t, err)
	par, err := NewWorld(Options{ChunkDims: chunk, WorldDims: dims, Boundary: BoundaryNeighbor, Workers: 4}, checkerboard)
	require.NoError(t, err)

	seqSink, parSink := &collectingSink{}, &collectingSink{}
	s1, err := seq.Update(context.Background(), Running, seqSink)
	require.NoError(t, err)
	s2, err := par.Update(context.Background(), Running, parSink)
	require.NoError(t, err)

	assert.Equal(t, s1.ChunksMeshed, s2.ChunksMeshed)
	assert.Equal(t, s1.Attachments, s2.Attachments)
	assert.Len(t, parSink.got, len(seqSink.got))
	assert.Equal(t, snapshot(seq), snapshot(par))
	assert.Zero(t, par.DirtyCount())
}

func TestUpdateSinkErrorSameForAnyWorkerCount(t *testing.T) {
	for _, failAt := range []int{0, 2} {
		dirty := make(map[int]int)
		attached := make(map[int]int)
		for _, workers := range []int{1, 4} {
			w, err := NewWorld(Options{
				ChunkDims: cube(2),
				WorldDims: Dimensions{Width: 4, Depth: 1, Height: 1},
				Workers:   workers,
			}, allSolid)
			require.NoError(t, err)

			boom := errors.New("renderer gone")
			sink := SinkFunc(func(a Attachment) error {
				if a.Chunk.X == failAt {
					return boom
				}
				return nil
			})
			_, err = w.Update(context.Background(), Running, sink)
			require.ErrorIs(t, err, boom, "workers=%d", workers)
			dirty[workers] = w.DirtyCount()
			w.EachAttachment(func(Attachment) { attached[workers]++ })

			// Следующий цикл доделывает оставшиеся чанки
			_, err = w.Update(context.Background(), Running, nil)
			require.NoError(t, err)
			assert.Zero(t, w.DirtyCount())
		}
		assert.Equal(t, 4-failAt, dirty[1], "failAt=%d", failAt)
		assert.Equal(t, dirty[1], dirty[4], "failAt=%d", failAt)
		assert.Equal(t, attached[1], attached[4], "failAt=%d", failAt)
	}
}

func TestUpdateParallelHonoursCancelledContext(t *testing.T) {
	w, err := NewWorld(Options{
		ChunkDims: cube(2),
		WorldDims: Dimensions{Width: 3, Depth: 1, Height: 1},
		Workers:   2,
	}, allSolid)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Update(ctx, Running, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, w.DirtyCount())
}

func TestEachAttachment(t *testing.T) {
	w := newTestWorld(t, cube(2), Dimensions{Width: 2, Depth: 1, Height: 1}, checkerboard)
	n := 0
	w.EachAttachment(func(Attachment) { n++ })
	assert.Zero(t, n, "до первого цикла вложений нет")

	stats, err := w.Update(context.Background(), Running, nil)
	require.NoError(t, err)

	var got []Attachment
	w.EachAttachment(func(a Attachment) { got = append(got, a) })
	assert.Len(t, got, stats.Attachments)
	assert.Equal(t, vec.Vec3{}, got[0].Chunk)
	assert.Equal(t, vec.Vec3{X: 1}, got[len(got)-1].Chunk)
	for _, a := range got {
		assert.Equal(t, w.Placement(a.Chunk, a.Local), a.Position)
	}
}

func TestSimulationStateToggle(t *testing.T) {
	assert.Equal(t, Paused, Running.Toggle())
	assert.Equal(t, Running, Paused.Toggle())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "paused", Paused.String())
}
