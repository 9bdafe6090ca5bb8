package world

// Voxel - одна ячейка сетки. Маска имеет смысл только для твёрдого вокселя.
type Voxel struct {
	Solid bool     `json:"solid"`
	Mask  FaceMask `json:"mask"`
}

// VisibleMask возвращает маску, считая её нулевой для пустого вокселя
func (v Voxel) VisibleMask() FaceMask {
	if !v.Solid {
		return MaskNone
	}
	return v.Mask
}

// Grid - плотный массив вокселей одного чанка
type Grid struct {
	dims   Dimensions
	voxels []Voxel
}

// NewGrid создаёт сетку из пустых вокселей
func NewGrid(dims Dimensions) *Grid {
	return &Grid{
		dims:   dims,
		voxels: make([]Voxel, dims.Volume()),
	}
}

func (g *Grid) Dimensions() Dimensions {
	return g.dims
}

// Voxel возвращает копию вокселя с нормализованной маской
func (g *Grid) Voxel(c LocalCoord) Voxel {
	v := g.voxels[g.dims.index(c)]
	v.Mask = v.VisibleMask()
	return v
}

func (g *Grid) IsSolid(c LocalCoord) bool {
	return g.voxels[g.dims.index(c)].Solid
}

// setSolid меняет твёрдость и сообщает, изменилось ли что-нибудь.
// Пустой воксель сразу теряет маску.
func (g *Grid) setSolid(c LocalCoord, solid bool) bool {
	v := &g.voxels[g.dims.index(c)]
	if v.Solid == solid {
		return false
	}
	v.Solid = solid
	if !solid {
		v.Mask = MaskNone
	}
	return true
}

func (g *Grid) setMask(c LocalCoord, m FaceMask) {
	g.voxels[g.dims.index(c)].Mask = m
}

// Each обходит воксели в порядке плотной раскладки
func (g *Grid) Each(fn func(c LocalCoord, v Voxel)) {
	for i := range g.voxels {
		v := g.voxels[i]
		v.Mask = v.VisibleMask()
		fn(g.dims.coordAt(i), v)
	}
}

// SolidCount возвращает число твёрдых вокселей
func (g *Grid) SolidCount() int {
	n := 0
	for i := range g.voxels {
		if g.voxels[i].Solid {
			n++
		}
	}
	return n
}
