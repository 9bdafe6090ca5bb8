package world

import "github.com/annel0/voxelcore/internal/vec"

// BoundaryPolicy определяет, как трактуется грань на краю чанка
type BoundaryPolicy int

const (
	// BoundaryVisible: грань на краю чанка всегда видима, соседний чанк не читается
	BoundaryVisible BoundaryPolicy = iota
	// BoundaryNeighbor: грань на краю скрыта, если соседний чанк существует и
	// прилегающий воксель в нём твёрдый
	BoundaryNeighbor
)

func (p BoundaryPolicy) String() string {
	switch p {
	case BoundaryVisible:
		return "visible"
	case BoundaryNeighbor:
		return "neighbor"
	default:
		return "unknown"
	}
}

// NeighborLookup находит чанк по координатам
type NeighborLookup func(coord vec.Vec3) (*Chunk, bool)

// Resolver пересчитывает маски видимых граней
type Resolver struct {
	Policy    BoundaryPolicy
	Neighbors NeighborLookup
}

// Recompute записывает маску каждому твёрдому вокселю чанка.
// Флаг dirty не снимается: это делает этап привязки мешей.
func (r Resolver) Recompute(c *Chunk) {
	g := c.grid
	for i := range g.voxels {
		if !g.voxels[i].Solid {
			g.voxels[i].Mask = MaskNone
			continue
		}
		g.voxels[i].Mask = r.MaskAt(c, g.dims.coordAt(i))
	}
}

// MaskAt вычисляет маску для одного вокселя, не изменяя чанк
func (r Resolver) MaskAt(c *Chunk, lc LocalCoord) FaceMask {
	if !c.IsSolid(lc) {
		return MaskNone
	}
	dims := c.grid.dims
	mask := MaskNone
	for _, f := range Faces {
		if n, ok := dims.Neighbor(lc, f); ok {
			if !c.IsSolid(n) {
				mask = mask.With(f)
			}
			continue
		}
		if r.boundaryVisible(c, lc, f) {
			mask = mask.With(f)
		}
	}
	return mask
}

func (r Resolver) boundaryVisible(c *Chunk, lc LocalCoord, f Face) bool {
	if r.Policy != BoundaryNeighbor || r.Neighbors == nil {
		return true
	}
	neighbor, ok := r.Neighbors(c.coord.Add(f.Offset()))
	if !ok {
		return true
	}
	return !neighbor.IsSolid(c.grid.dims.Wrap(lc, f))
}
