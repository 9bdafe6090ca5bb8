package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelcore/internal/vec"
)

var (
	ErrOutOfBounds       = errors.New("local coordinate out of bounds")
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// Dimensions задаёт размер кубоида: Width по X, Depth по Y, Height по Z.
// Используется и для размера чанка в вокселях, и для размера мира в чанках.
type Dimensions struct {
	Width  int `json:"width"`
	Depth  int `json:"depth"`
	Height int `json:"height"`
}

// NewDimensions проверяет, что все стороны положительны
func NewDimensions(width, depth, height int) (Dimensions, error) {
	if width <= 0 || depth <= 0 || height <= 0 {
		return Dimensions{}, fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimensions, width, depth, height)
	}
	return Dimensions{Width: width, Depth: depth, Height: height}, nil
}

// Volume возвращает количество ячеек
func (d Dimensions) Volume() int {
	return d.Width * d.Depth * d.Height
}

func (d Dimensions) Vec() vec.Vec3 {
	return vec.Vec3{X: d.Width, Y: d.Depth, Z: d.Height}
}

// Contains проверяет, лежит ли точка внутри кубоида
func (d Dimensions) Contains(x, y, z int) bool {
	return x >= 0 && x < d.Width && y >= 0 && y < d.Depth && z >= 0 && z < d.Height
}

// Local создаёт локальную координату, отклоняя значения вне границ.
// Других способов получить LocalCoord с произвольными значениями нет.
func (d Dimensions) Local(x, y, z int) (LocalCoord, error) {
	if !d.Contains(x, y, z) {
		return LocalCoord{}, fmt.Errorf("%w: (%d, %d, %d) not in %dx%dx%d",
			ErrOutOfBounds, x, y, z, d.Width, d.Depth, d.Height)
	}
	return LocalCoord{x: x, y: y, z: z}, nil
}

// MustLocal как Local, но паникует: выход за границы здесь - ошибка программиста.
func (d Dimensions) MustLocal(x, y, z int) LocalCoord {
	c, err := d.Local(x, y, z)
	if err != nil {
		panic(err)
	}
	return c
}

// Neighbor возвращает соседа через грань f, если он внутри тех же границ
func (d Dimensions) Neighbor(c LocalCoord, f Face) (LocalCoord, bool) {
	o := f.Offset()
	x, y, z := c.x+o.X, c.y+o.Y, c.z+o.Z
	if !d.Contains(x, y, z) {
		return LocalCoord{}, false
	}
	return LocalCoord{x: x, y: y, z: z}, true
}

// Wrap переносит координату, вышедшую за грань f, на противоположную сторону
// соседнего чанка того же размера.
func (d Dimensions) Wrap(c LocalCoord, f Face) LocalCoord {
	o := f.Offset()
	return LocalCoord{
		x: mod(c.x+o.X, d.Width),
		y: mod(c.y+o.Y, d.Depth),
		z: mod(c.z+o.Z, d.Height),
	}
}

// OnBoundary сообщает, смотрит ли грань f вокселя c за пределы кубоида
func (d Dimensions) OnBoundary(c LocalCoord, f Face) bool {
	_, inside := d.Neighbor(c, f)
	return !inside
}

// index - плотная раскладка x + y*W + z*W*D
func (d Dimensions) index(c LocalCoord) int {
	return c.x + c.y*d.Width + c.z*d.Width*d.Depth
}

func (d Dimensions) coordAt(i int) LocalCoord {
	plane := d.Width * d.Depth
	return LocalCoord{
		x: i % d.Width,
		y: (i % plane) / d.Width,
		z: i / plane,
	}
}

// LocalCoord - координата вокселя внутри чанка
type LocalCoord struct {
	x, y, z int
}

func (c LocalCoord) X() int { return c.x }
func (c LocalCoord) Y() int { return c.y }
func (c LocalCoord) Z() int { return c.z }

func (c LocalCoord) Vec() vec.Vec3 {
	return vec.Vec3{X: c.x, Y: c.y, Z: c.z}
}

func (c LocalCoord) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.x, c.y, c.z)
}

// floorDiv делит с округлением вниз (для отрицательных глобальных координат)
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	return a - floorDiv(a, b)*b
}
