package util

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Параметры шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// PerlinNoise - генератор шума Перлина, привязанный к сиду.
// Не разделяется между сидами: каждый генератор мира создаёт свой.
type PerlinNoise struct {
	p *perlin.Perlin
}

// NewPerlinNoise создаёт генератор шума Перлина с указанным сидом
func NewPerlinNoise(seed int64) *PerlinNoise {
	return &PerlinNoise{p: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)}
}

// Noise2D возвращает значение шума для указанных координат (от 0 до 1)
func (n *PerlinNoise) Noise2D(x, y float64) float64 {
	// Значение шума от -1 до 1, переводим в диапазон от 0 до 1
	return Clamp01((n.p.Noise2D(x, y) + 1.0) / 2.0)
}

// Noise3D возвращает трёхмерный шум Перлина (от 0 до 1)
func (n *PerlinNoise) Noise3D(x, y, z float64) float64 {
	return Clamp01((n.p.Noise3D(x, y, z) + 1.0) / 2.0)
}

// SimplexNoise - генератор шума OpenSimplex с нормализованным выходом
type SimplexNoise struct {
	n opensimplex.Noise
}

func NewSimplexNoise(seed int64) *SimplexNoise {
	return &SimplexNoise{n: opensimplex.NewNormalized(seed)}
}

// Noise2D возвращает значение в диапазоне [0, 1)
func (s *SimplexNoise) Noise2D(x, y float64) float64 {
	return s.n.Eval2(x, y)
}

// Noise3D возвращает значение в диапазоне [0, 1)
func (s *SimplexNoise) Noise3D(x, y, z float64) float64 {
	return s.n.Eval3(x, y, z)
}

// Clamp01 ограничивает значение отрезком [0, 1]
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
