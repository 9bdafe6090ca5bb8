package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh - неизменяемый набор буферов для одной маски граней.
// Один и тот же меш разделяется всеми вокселями с этой маской,
// поэтому аксессоры возвращают копии.
type Mesh struct {
	mask      FaceMask
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2
	indices   []uint32
}

func (m *Mesh) Mask() FaceMask { return m.mask }

func (m *Mesh) VertexCount() int { return len(m.positions) }

func (m *Mesh) IndexCount() int { return len(m.indices) }

func (m *Mesh) TriangleCount() int { return len(m.indices) / 3 }

// Empty сообщает, что у меша нет ни одной грани (маска 0)
func (m *Mesh) Empty() bool { return len(m.positions) == 0 }

func (m *Mesh) Positions() []mgl32.Vec3 {
	return append([]mgl32.Vec3(nil), m.positions...)
}

func (m *Mesh) Normals() []mgl32.Vec3 {
	return append([]mgl32.Vec3(nil), m.normals...)
}

func (m *Mesh) UVs() []mgl32.Vec2 {
	return append([]mgl32.Vec2(nil), m.uvs...)
}

func (m *Mesh) Indices() []uint32 {
	return append([]uint32(nil), m.indices...)
}

// faceBasis задаёт нормаль и оси u, v грани так, что u × v = normal.
// Обход углов (-u-v, +u-v, +u+v, -u+v) тогда идёт против часовой стрелки,
// если смотреть на грань снаружи.
type faceBasis struct {
	normal, u, v mgl32.Vec3
}

var faceBases = [FaceCount]faceBasis{
	FaceTop:    {normal: mgl32.Vec3{0, 1, 0}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 0, -1}},
	FaceBottom: {normal: mgl32.Vec3{0, -1, 0}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 0, 1}},
	FaceLeft:   {normal: mgl32.Vec3{-1, 0, 0}, u: mgl32.Vec3{0, 0, 1}, v: mgl32.Vec3{0, 1, 0}},
	FaceRight:  {normal: mgl32.Vec3{1, 0, 0}, u: mgl32.Vec3{0, 0, -1}, v: mgl32.Vec3{0, 1, 0}},
	FaceFront:  {normal: mgl32.Vec3{0, 0, 1}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 1, 0}},
	FaceBack:   {normal: mgl32.Vec3{0, 0, -1}, u: mgl32.Vec3{-1, 0, 0}, v: mgl32.Vec3{0, 1, 0}},
}

var quadUVs = [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// Synthesizer строит меш куба по маске граней
type Synthesizer struct {
	// Size - длина ребра куба; куб центрирован в начале координат
	Size float32
}

// NewSynthesizer создаёт синтезатор; неположительный размер заменяется на 1
func NewSynthesizer(size float32) Synthesizer {
	if size <= 0 {
		size = 1
	}
	return Synthesizer{Size: size}
}

// Synthesize - чистая функция: одинаковая маска всегда даёт одинаковый меш.
// На каждую видимую грань приходится 4 вершины и 6 индексов.
func (s Synthesizer) Synthesize(mask FaceMask) *Mesh {
	if !mask.Valid() {
		panic(fmt.Errorf("%w: %d", ErrInvalidMask, mask))
	}
	size := s.Size
	if size <= 0 {
		size = 1
	}
	h := size / 2

	n := mask.Count()
	m := &Mesh{
		mask:      mask,
		positions: make([]mgl32.Vec3, 0, n*4),
		normals:   make([]mgl32.Vec3, 0, n*4),
		uvs:       make([]mgl32.Vec2, 0, n*4),
		indices:   make([]uint32, 0, n*6),
	}

	for _, f := range Faces {
		if !mask.Has(f) {
			continue
		}
		b := faceBases[f]
		center := b.normal.Mul(h)
		u, v := b.u.Mul(h), b.v.Mul(h)
		base := uint32(len(m.positions))

		m.positions = append(m.positions,
			center.Sub(u).Sub(v),
			center.Add(u).Sub(v),
			center.Add(u).Add(v),
			center.Sub(u).Add(v),
		)
		for i := 0; i < 4; i++ {
			m.normals = append(m.normals, b.normal)
			m.uvs = append(m.uvs, quadUVs[i])
		}
		m.indices = append(m.indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return m
}
