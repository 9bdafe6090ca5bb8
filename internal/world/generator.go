package world

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/util"
	"github.com/annel0/voxelcore/internal/vec"
)

// RandomPopulator делает каждый воксель твёрдым с вероятностью Density.
// Результат зависит от порядка обхода, который в NewWorld фиксирован.
type RandomPopulator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	Density float64
}

// NewRandomPopulator создаёт генератор с детерминированным сидом
func NewRandomPopulator(seed int64, density float64) *RandomPopulator {
	return &RandomPopulator{
		rng:     rand.New(rand.NewSource(seed)),
		Density: util.Clamp01(density),
	}
}

func (p *RandomPopulator) Solid(vec.Vec3) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < p.Density
}

// PerlinPopulator строит ландшафт по карте высот: столбец (x, z) заполнен
// снизу вверх по оси Y до высоты, заданной шумом Перлина.
type PerlinPopulator struct {
	noise     *util.PerlinNoise
	Scale     float64 // Масштаб шума (сглаженность ландшафта)
	MaxHeight int     // Высота мира в вокселях по оси Y
}

func NewPerlinPopulator(seed int64, scale float64, maxHeight int) *PerlinPopulator {
	return &PerlinPopulator{
		noise:     util.NewPerlinNoise(seed),
		Scale:     scale,
		MaxHeight: maxHeight,
	}
}

// Height возвращает высоту столбца; нижний слой всегда заполнен
func (p *PerlinPopulator) Height(x, z int) int {
	n := p.noise.Noise2D(float64(x)*p.Scale, float64(z)*p.Scale)
	h := int(n * float64(p.MaxHeight))
	if h < 1 {
		h = 1
	}
	return h
}

func (p *PerlinPopulator) Solid(g vec.Vec3) bool {
	return g.Y < p.Height(g.X, g.Z)
}

// SimplexPopulator заполняет воксели по трёхмерной плотности OpenSimplex:
// воксель твёрдый, если плотность выше порога. Даёт пещеры и нависания.
type SimplexPopulator struct {
	noise     *util.SimplexNoise
	Scale     float64
	Threshold float64
}

func NewSimplexPopulator(seed int64, scale, threshold float64) *SimplexPopulator {
	return &SimplexPopulator{
		noise:     util.NewSimplexNoise(seed),
		Scale:     scale,
		Threshold: threshold,
	}
}

func (p *SimplexPopulator) Solid(g vec.Vec3) bool {
	d := p.noise.Noise3D(float64(g.X)*p.Scale, float64(g.Y)*p.Scale, float64(g.Z)*p.Scale)
	return d > p.Threshold
}

// NewPopulator выбирает генератор по конфигурации.
// Для random порог трактуется как доля твёрдых вокселей.
func NewPopulator(cfg config.GeneratorConfig, opts Options) (Populator, error) {
	switch cfg.Kind {
	case "random", "":
		return NewRandomPopulator(cfg.Seed, cfg.Threshold), nil
	case "perlin":
		return NewPerlinPopulator(cfg.Seed, cfg.Scale, opts.WorldDims.Depth*opts.ChunkDims.Depth), nil
	case "simplex":
		return NewSimplexPopulator(cfg.Seed, cfg.Scale, cfg.Threshold), nil
	default:
		return nil, fmt.Errorf("unknown generator kind %q", cfg.Kind)
	}
}
