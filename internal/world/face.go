package world

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/annel0/voxelcore/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// Face - одна из шести граней вокселя. Порядок констант совпадает с порядком,
// в котором синтезатор добавляет грани в меш.
type Face uint8

const (
	FaceTop    Face = iota // +Y
	FaceBottom             // -Y
	FaceLeft               // -X
	FaceRight              // +X
	FaceFront              // +Z
	FaceBack               // -Z
)

// FaceCount - количество граней куба
const FaceCount = 6

// Faces перечисляет грани в каноническом порядке
var Faces = [FaceCount]Face{FaceTop, FaceBottom, FaceLeft, FaceRight, FaceFront, FaceBack}

// FaceMask - 6-битная маска видимых граней
type FaceMask uint8

const (
	MaskNone   FaceMask = 0b000000
	MaskTop    FaceMask = 0b100000
	MaskBottom FaceMask = 0b010000
	MaskLeft   FaceMask = 0b001000
	MaskRight  FaceMask = 0b000100
	MaskFront  FaceMask = 0b000010
	MaskBack   FaceMask = 0b000001
	MaskAll    FaceMask = 0b111111
)

// MaskCount - число различных масок (0..63)
const MaskCount = 64

var ErrInvalidMask = errors.New("invalid face mask")

var faceNames = [FaceCount]string{"top", "bottom", "left", "right", "front", "back"}

var faceOffsets = [FaceCount]vec.Vec3{
	FaceTop:    {X: 0, Y: 1, Z: 0},
	FaceBottom: {X: 0, Y: -1, Z: 0},
	FaceLeft:   {X: -1, Y: 0, Z: 0},
	FaceRight:  {X: 1, Y: 0, Z: 0},
	FaceFront:  {X: 0, Y: 0, Z: 1},
	FaceBack:   {X: 0, Y: 0, Z: -1},
}

// Bit возвращает бит грани в маске
func (f Face) Bit() FaceMask {
	return MaskTop >> f
}

// Offset возвращает смещение к соседу через эту грань
func (f Face) Offset() vec.Vec3 {
	return faceOffsets[f]
}

// Normal возвращает внешнюю единичную нормаль грани
func (f Face) Normal() mgl32.Vec3 {
	o := faceOffsets[f]
	return mgl32.Vec3{float32(o.X), float32(o.Y), float32(o.Z)}
}

// Opposite возвращает противоположную грань
func (f Face) Opposite() Face {
	return f ^ 1
}

func (f Face) String() string {
	if int(f) >= FaceCount {
		return fmt.Sprintf("Face(%d)", f)
	}
	return faceNames[f]
}

// Has проверяет, установлен ли бит грани
func (m FaceMask) Has(f Face) bool {
	return m&f.Bit() != 0
}

func (m FaceMask) With(f Face) FaceMask {
	return m | f.Bit()
}

func (m FaceMask) Without(f Face) FaceMask {
	return m &^ f.Bit()
}

// Count возвращает число видимых граней
func (m FaceMask) Count() int {
	return bits.OnesCount8(uint8(m & MaskAll))
}

// Valid сообщает, помещается ли маска в шесть бит
func (m FaceMask) Valid() bool {
	return m <= MaskAll
}

// Faces возвращает установленные грани в каноническом порядке
func (m FaceMask) Faces() []Face {
	faces := make([]Face, 0, m.Count())
	for _, f := range Faces {
		if m.Has(f) {
			faces = append(faces, f)
		}
	}
	return faces
}

// Names возвращает имена видимых граней (для API и логов)
func (m FaceMask) Names() []string {
	names := make([]string, 0, m.Count())
	for _, f := range m.Faces() {
		names = append(names, f.String())
	}
	return names
}

func (m FaceMask) String() string {
	if m&MaskAll == 0 {
		return "none"
	}
	return strings.Join(m.Names(), "|")
}

// ParseMask проверяет числовое значение маски, пришедшее снаружи
func ParseMask(v int) (FaceMask, error) {
	if v < 0 || v >= MaskCount {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidMask, v, MaskCount)
	}
	return FaceMask(v), nil
}
