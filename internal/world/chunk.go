package world

import (
	"fmt"

	"github.com/annel0/voxelcore/internal/vec"
)

// Chunk представляет участок мира фиксированного размера.
// Чанк владеет сеткой вокселей, флагом dirty и текущими вложениями мешей.
type Chunk struct {
	coord vec.Vec3 // Координаты чанка в пространстве чанков
	grid  *Grid
	dirty bool

	// attachments[i] - меш, выданный рендеру для вокселя с индексом i; nil, если нет
	attachments []*Mesh
}

// NewChunk создаёт пустой чанк. Новый чанк всегда грязный.
func NewChunk(coord vec.Vec3, dims Dimensions) *Chunk {
	return &Chunk{
		coord:       coord,
		grid:        NewGrid(dims),
		dirty:       true,
		attachments: make([]*Mesh, dims.Volume()),
	}
}

func (c *Chunk) Coord() vec.Vec3 {
	return c.coord
}

// Name возвращает имя для инспекции, как в исходном мире
func (c *Chunk) Name() string {
	return fmt.Sprintf("Chunk (%d, %d, %d)", c.coord.X, c.coord.Y, c.coord.Z)
}

// Grid открывает сетку только для чтения; правки идут через World.SetSolid
func (c *Chunk) Grid() *Grid {
	return c.grid
}

func (c *Chunk) Dimensions() Dimensions {
	return c.grid.dims
}

// Dirty сообщает, требует ли чанк пересчёта видимости и мешей
func (c *Chunk) Dirty() bool {
	return c.dirty
}

func (c *Chunk) markDirty() {
	c.dirty = true
}

func (c *Chunk) markClean() {
	c.dirty = false
}

func (c *Chunk) Voxel(lc LocalCoord) Voxel {
	return c.grid.Voxel(lc)
}

func (c *Chunk) IsSolid(lc LocalCoord) bool {
	return c.grid.IsSolid(lc)
}

// setSolid меняет твёрдость вокселя и помечает чанк грязным.
// У опустевшего вокселя вложение снимается сразу, не дожидаясь цикла обновления.
func (c *Chunk) setSolid(lc LocalCoord, solid bool) bool {
	if !c.grid.setSolid(lc, solid) {
		return false
	}
	if !solid {
		c.attachments[c.grid.dims.index(lc)] = nil
	}
	c.dirty = true
	return true
}

// Attachment возвращает меш, выданный вокселю в последнем цикле
func (c *Chunk) Attachment(lc LocalCoord) (*Mesh, bool) {
	m := c.attachments[c.grid.dims.index(lc)]
	return m, m != nil
}

func (c *Chunk) attach(lc LocalCoord, m *Mesh) {
	c.attachments[c.grid.dims.index(lc)] = m
}

// Origin возвращает глобальную координату вокселя (0,0,0) этого чанка
func (c *Chunk) Origin() vec.Vec3 {
	return c.coord.Scale(c.grid.dims.Vec())
}

// Global переводит локальную координату в глобальную
func (c *Chunk) Global(lc LocalCoord) vec.Vec3 {
	return c.Origin().Add(lc.Vec())
}
