package world

import (
	"testing"

	"github.com/annel0/voxelcore/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cube(n int) Dimensions {
	return Dimensions{Width: n, Depth: n, Height: n}
}

func fillChunk(c *Chunk) {
	for i := range c.grid.voxels {
		c.grid.voxels[i].Solid = true
	}
}

func TestRecomputeSingleVoxelAllFacesVisible(t *testing.T) {
	dims := cube(2)
	c := NewChunk(vec.Vec3{}, dims)
	origin := dims.MustLocal(0, 0, 0)
	c.setSolid(origin, true)

	Resolver{}.Recompute(c)

	// left, bottom, back смотрят за край чанка; right, top, front - на пустые воксели
	assert.Equal(t, MaskAll, c.Voxel(origin).Mask)
	c.grid.Each(func(lc LocalCoord, v Voxel) {
		if lc != origin {
			assert.Equal(t, MaskNone, v.Mask, lc.String())
		}
	})
}

func TestRecomputeFullChunkOnlyOuterFaces(t *testing.T) {
	dims := cube(2)
	c := NewChunk(vec.Vec3{}, dims)
	fillChunk(c)

	Resolver{}.Recompute(c)

	assert.Equal(t, MaskLeft|MaskBottom|MaskBack, c.Voxel(dims.MustLocal(0, 0, 0)).Mask)
	assert.Equal(t, MaskRight|MaskTop|MaskFront, c.Voxel(dims.MustLocal(1, 1, 1)).Mask)
	assert.Equal(t, MaskRight|MaskBottom|MaskFront, c.Voxel(dims.MustLocal(1, 0, 1)).Mask)

	c.grid.Each(func(lc LocalCoord, v Voxel) {
		assert.Equal(t, 3, v.Mask.Count(), lc.String())
		for _, f := range Faces {
			assert.Equal(t, dims.OnBoundary(lc, f), v.Mask.Has(f), "%s %s", lc, f)
		}
	})
}

func TestRecomputeBuriedVoxelHasEmptyMask(t *testing.T) {
	dims := cube(3)
	c := NewChunk(vec.Vec3{}, dims)
	fillChunk(c)

	Resolver{}.Recompute(c)

	assert.Equal(t, MaskNone, c.Voxel(dims.MustLocal(1, 1, 1)).Mask)
	assert.Equal(t, MaskTop, c.Voxel(dims.MustLocal(1, 2, 1)).Mask)
}

func TestRecomputeBoundaryFacesAlwaysVisible(t *testing.T) {
	dims := cube(3)
	c := NewChunk(vec.Vec3{}, dims)
	fillChunk(c)
	// Соседний чанк существует, но политика BoundaryVisible его не читает
	other := NewChunk(vec.Vec3{X: 1}, dims)
	fillChunk(other)
	r := Resolver{
		Policy: BoundaryVisible,
		Neighbors: func(coord vec.Vec3) (*Chunk, bool) {
			return other, coord == other.Coord()
		},
	}

	r.Recompute(c)

	c.grid.Each(func(lc LocalCoord, v Voxel) {
		for _, f := range Faces {
			if dims.OnBoundary(lc, f) {
				assert.True(t, v.Mask.Has(f), "%s %s", lc, f)
			}
		}
	})
}

func TestRecomputeClearsEmptyVoxelsAndKeepsDirty(t *testing.T) {
	dims := cube(2)
	c := NewChunk(vec.Vec3{}, dims)
	lc := dims.MustLocal(1, 1, 0)
	c.grid.voxels[dims.index(lc)].Mask = MaskAll

	Resolver{}.Recompute(c)

	assert.Equal(t, MaskNone, c.grid.voxels[dims.index(lc)].Mask)
	assert.True(t, c.Dirty())
}

func TestRecomputeNeighborPolicy(t *testing.T) {
	dims := cube(2)
	left := NewChunk(vec.Vec3{}, dims)
	right := NewChunk(vec.Vec3{X: 1}, dims)
	fillChunk(left)
	fillChunk(right)
	chunks := map[vec.Vec3]*Chunk{left.Coord(): left, right.Coord(): right}

	r := Resolver{
		Policy: BoundaryNeighbor,
		Neighbors: func(coord vec.Vec3) (*Chunk, bool) {
			c, ok := chunks[coord]
			return c, ok
		},
	}
	r.Recompute(left)

	// Шов между чанками скрыт, край мира остаётся видимым
	seam := left.Voxel(dims.MustLocal(1, 0, 0)).Mask
	assert.False(t, seam.Has(FaceRight))
	outer := left.Voxel(dims.MustLocal(0, 0, 0)).Mask
	assert.True(t, outer.Has(FaceLeft))

	// Пустой прилегающий воксель в соседе открывает грань
	right.setSolid(dims.MustLocal(0, 0, 0), false)
	r.Recompute(left)
	assert.True(t, left.Voxel(dims.MustLocal(1, 0, 0)).Mask.Has(FaceRight))
	assert.False(t, left.Voxel(dims.MustLocal(1, 1, 0)).Mask.Has(FaceRight))
}

func TestMaskAtMatchesRecompute(t *testing.T) {
	dims := Dimensions{Width: 3, Depth: 2, Height: 4}
	c := NewChunk(vec.Vec3{}, dims)
	for i := range c.grid.voxels {
		c.grid.voxels[i].Solid = i%3 != 0
	}
	r := Resolver{}
	r.Recompute(c)

	c.grid.Each(func(lc LocalCoord, v Voxel) {
		require.Equal(t, v.Mask, r.MaskAt(c, lc), lc.String())
	})
}

func TestBoundaryPolicyString(t *testing.T) {
	assert.Equal(t, "visible", BoundaryVisible.String())
	assert.Equal(t, "neighbor", BoundaryNeighbor.String())
	assert.Equal(t, "unknown", BoundaryPolicy(7).String())
}
