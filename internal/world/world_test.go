package world

import (
	"context"
	"reflect"
	"testing"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSolid = PopulatorFunc(func(vec.Vec3) bool { return true })

func newTestWorld(t *testing.T, chunk, world Dimensions, pop Populator) *World {
	t.Helper()
	w, err := NewWorld(Options{ChunkDims: chunk, WorldDims: world, VoxelSize: 1}, pop)
	require.NoError(t, err)
	return w
}

func TestNewWorldRejectsBadDimensions(t *testing.T) {
	_, err := NewWorld(Options{ChunkDims: cube(0), WorldDims: cube(1)}, nil)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = NewWorld(Options{ChunkDims: cube(2), WorldDims: Dimensions{Width: 1, Depth: 0, Height: 1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestNewWorldCreatesDirtyChunks(t *testing.T) {
	w := newTestWorld(t, cube(2), Dimensions{Width: 2, Depth: 1, Height: 2}, nil)

	assert.Equal(t, []vec.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1},
		{X: 1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1},
	}, w.ChunkCoords())
	assert.Equal(t, 4, w.DirtyCount())

	_, ok := w.Chunk(vec.Vec3{X: 2})
	assert.False(t, ok)
	assert.Equal(t, 1, w.Options().Workers)
}

func TestNewWorldPopulatesByGlobalCoordinate(t *testing.T) {
	target := vec.Vec3{X: 3, Y: 0, Z: 1}
	pop := PopulatorFunc(func(g vec.Vec3) bool { return g == target })
	w := newTestWorld(t, cube(2), Dimensions{Width: 2, Depth: 1, Height: 2}, pop)

	c, ok := w.Chunk(vec.Vec3{X: 1})
	require.True(t, ok)
	assert.True(t, c.IsSolid(c.Dimensions().MustLocal(1, 0, 1)))
	assert.Equal(t, 1, c.Grid().SolidCount())

	chunk, lc := w.Locate(target)
	assert.Equal(t, vec.Vec3{X: 1}, chunk)
	assert.Equal(t, "(1, 0, 1)", lc.String())
}

func TestLocateNegative(t *testing.T) {
	w := newTestWorld(t, cube(4), cube(1), nil)
	chunk, lc := w.Locate(vec.Vec3{X: -1, Y: 5, Z: -4})
	assert.Equal(t, vec.Vec3{X: -1, Y: 1, Z: -1}, chunk)
	assert.Equal(t, vec.Vec3{X: 3, Y: 1, Z: 0}, lc.Vec())
}

func TestWorldSetSolid(t *testing.T) {
	w := newTestWorld(t, cube(2), cube(1), nil)
	origin := vec.Vec3{}

	changed, err := w.SetSolidAt(origin, vec.Vec3{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = w.SetSolidAt(origin, vec.Vec3{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = w.SetSolidAt(origin, vec.Vec3{X: 2}, true)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = w.SetSolidAt(vec.Vec3{X: 5}, vec.Vec3{}, true)
	assert.ErrorIs(t, err, ErrUnknownChunk)

	_, err = w.SetSolidGlobal(vec.Vec3{X: -1}, true)
	assert.ErrorIs(t, err, ErrUnknownChunk)

	changed, err = w.SetSolidGlobal(vec.Vec3{X: 0, Y: 1, Z: 0}, true)
	require.NoError(t, err)
	assert.True(t, changed)

	info, err := w.ChunkInfo(origin, false)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Solid)
	assert.Len(t, info.Voxels, 2)
}

func TestPlacementAndTransform(t *testing.T) {
	w, err := NewWorld(Options{ChunkDims: cube(2), WorldDims: cube(2), VoxelSize: 0.1}, nil)
	require.NoError(t, err)

	lc := cube(2).MustLocal(1, 0, 1)
	p := w.Placement(vec.Vec3{X: 1}, lc)
	assert.InDelta(t, 0.3, p.X(), 1e-6)
	assert.InDelta(t, 0.0, p.Y(), 1e-6)
	assert.InDelta(t, 0.1, p.Z(), 1e-6)

	m := w.Transform(vec.Vec3{X: 1}, lc)
	assert.Equal(t, mgl32.Vec4{p.X(), p.Y(), p.Z(), 1}, m.Col(3))
	assert.Equal(t, p, mgl32.TransformCoordinate(mgl32.Vec3{}, m))
}

func TestNeighborPolicyDirtiesAdjacentChunk(t *testing.T) {
	opts := Options{
		ChunkDims: cube(2),
		WorldDims: Dimensions{Width: 2, Depth: 1, Height: 1},
		Boundary:  BoundaryNeighbor,
	}
	w, err := NewWorld(opts, allSolid)
	require.NoError(t, err)
	_, err = w.Update(context.Background(), Running, nil)
	require.NoError(t, err)
	require.Zero(t, w.DirtyCount())

	// Внутренний воксель не касается соседа
	_, err = w.SetSolidAt(vec.Vec3{}, vec.Vec3{X: 0, Y: 0, Z: 0}, false)
	require.NoError(t, err)
	right, _ := w.Chunk(vec.Vec3{X: 1})
	assert.False(t, right.Dirty())

	_, err = w.SetSolidAt(vec.Vec3{}, vec.Vec3{X: 1, Y: 0, Z: 0}, false)
	require.NoError(t, err)
	assert.True(t, right.Dirty())

	_, err = w.Update(context.Background(), Running, nil)
	require.NoError(t, err)
	// Грань соседа, смотревшая на удалённый воксель, стала видимой
	assert.True(t, right.Voxel(cube(2).MustLocal(0, 0, 0)).Mask.Has(FaceLeft))
	assert.False(t, right.Voxel(cube(2).MustLocal(0, 1, 0)).Mask.Has(FaceLeft))
}

func TestVisiblePolicyKeepsNeighborClean(t *testing.T) {
	w := newTestWorld(t, cube(2), Dimensions{Width: 2, Depth: 1, Height: 1}, allSolid)
	_, err := w.Update(context.Background(), Running, nil)
	require.NoError(t, err)

	_, err = w.SetSolidAt(vec.Vec3{}, vec.Vec3{X: 1, Y: 0, Z: 0}, false)
	require.NoError(t, err)
	right, _ := w.Chunk(vec.Vec3{X: 1})
	assert.False(t, right.Dirty())
	assert.Equal(t, 1, w.DirtyCount())
}

func TestWorldInfo(t *testing.T) {
	w := newTestWorld(t, cube(2), Dimensions{Width: 1, Depth: 1, Height: 2}, allSolid)
	info := w.Info()

	assert.Equal(t, cube(2), info.ChunkDims)
	assert.Equal(t, "visible", info.Boundary)
	assert.Equal(t, 2, info.DirtyChunks)
	require.Len(t, info.Chunks, 2)
	assert.Equal(t, "Chunk (0, 0, 1)", info.Chunks[1].Name)
	assert.Equal(t, 8, info.Chunks[1].Solid)

	_, err := w.ChunkInfo(vec.Vec3{X: 9}, true)
	assert.ErrorIs(t, err, ErrUnknownChunk)

	ci, err := w.ChunkInfo(vec.Vec3{}, true)
	require.NoError(t, err)
	assert.Len(t, ci.Voxels, 8)
	assert.False(t, ci.Voxels[0].Attached)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().World
	cfg.CrossChunkCulling = true
	cfg.UpdateWorkers = 3

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, Dimensions{Width: cfg.ChunkWidth, Depth: cfg.ChunkDepth, Height: cfg.ChunkHeight}, opts.ChunkDims)
	assert.Equal(t, Dimensions{Width: cfg.WidthInChunks, Depth: cfg.DepthInChunks, Height: cfg.HeightInChunks}, opts.WorldDims)
	assert.Equal(t, BoundaryNeighbor, opts.Boundary)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, cfg.VoxelSize, opts.VoxelSize)
}

func TestChunkEditsOnlyThroughWorld(t *testing.T) {
	// Сетка и чанк наружу открыты только для чтения
	for _, name := range []string{"SetSolid", "SetMask"} {
		_, ok := reflect.TypeOf(&Grid{}).MethodByName(name)
		assert.False(t, ok, "Grid.%s", name)
	}
	for _, name := range []string{"SetSolid", "MarkDirty", "MarkClean"} {
		_, ok := reflect.TypeOf(&Chunk{}).MethodByName(name)
		assert.False(t, ok, "Chunk.%s", name)
	}

	w := newTestWorld(t, cube(2), cube(1), allSolid)
	_, err := w.Update(context.Background(), Running, nil)
	require.NoError(t, err)

	c, ok := w.Chunk(vec.Vec3{})
	require.True(t, ok)
	lc := c.Dimensions().MustLocal(1, 1, 1)
	_, attached := c.Attachment(lc)
	require.True(t, attached)
	require.False(t, c.Dirty())

	changed, err := w.SetSolid(c.Coord(), lc, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, c.Dirty())
	_, attached = c.Attachment(lc)
	assert.False(t, attached, "опустевший воксель не держит меш")
	assert.False(t, c.Grid().IsSolid(lc))
}
