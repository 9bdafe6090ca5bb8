package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrUnknownChunk = errors.New("unknown chunk")

// Populator задаёт начальную твёрдость вокселя по его глобальной координате
type Populator interface {
	Solid(global vec.Vec3) bool
}

// PopulatorFunc позволяет использовать функцию как Populator
type PopulatorFunc func(global vec.Vec3) bool

func (f PopulatorFunc) Solid(global vec.Vec3) bool { return f(global) }

// Options - неизменяемые параметры мира, задаются один раз при создании
type Options struct {
	ChunkDims Dimensions // размер чанка в вокселях
	WorldDims Dimensions // размер мира в чанках
	VoxelSize float32    // длина ребра вокселя в единицах сцены
	Boundary  BoundaryPolicy
	Workers   int // сколько чанков обрабатывать параллельно за цикл
}

// OptionsFromConfig переводит секцию world конфигурации в Options
func OptionsFromConfig(cfg config.WorldConfig) Options {
	opts := Options{
		ChunkDims: Dimensions{Width: cfg.ChunkWidth, Depth: cfg.ChunkDepth, Height: cfg.ChunkHeight},
		WorldDims: Dimensions{Width: cfg.WidthInChunks, Depth: cfg.DepthInChunks, Height: cfg.HeightInChunks},
		VoxelSize: cfg.VoxelSize,
		Boundary:  BoundaryVisible,
		Workers:   cfg.UpdateWorkers,
	}
	if cfg.CrossChunkCulling {
		opts.Boundary = BoundaryNeighbor
	}
	return opts
}

func (o Options) validate() error {
	if _, err := NewDimensions(o.ChunkDims.Width, o.ChunkDims.Depth, o.ChunkDims.Height); err != nil {
		return fmt.Errorf("chunk dimensions: %w", err)
	}
	if _, err := NewDimensions(o.WorldDims.Width, o.WorldDims.Depth, o.WorldDims.Height); err != nil {
		return fmt.Errorf("world dimensions: %w", err)
	}
	return nil
}

// World владеет всеми чанками и общим кешем мешей.
// Набор чанков фиксирован после создания; меняется только твёрдость вокселей.
type World struct {
	mu sync.RWMutex // правки вокселей против цикла обновления

	opts     Options
	chunks   map[vec.Vec3]*Chunk
	order    []vec.Vec3 // координаты чанков в порядке создания
	cache    *MeshCache
	resolver Resolver
	metrics  Metrics
	logger   *logging.Logger // nil - без логов по чанкам
}

// NewWorld создаёт мир и заполняет воксели через populator (nil - пустой мир).
// Все чанки после создания грязные.
func NewWorld(opts Options, pop Populator) (*World, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.VoxelSize <= 0 {
		opts.VoxelSize = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	w := &World{
		opts:   opts,
		chunks: make(map[vec.Vec3]*Chunk, opts.WorldDims.Volume()),
		order:  make([]vec.Vec3, 0, opts.WorldDims.Volume()),
		cache:  NewMeshCache(NewSynthesizer(opts.VoxelSize)),
	}
	w.resolver = Resolver{Policy: opts.Boundary, Neighbors: w.lookup}

	for x := 0; x < opts.WorldDims.Width; x++ {
		for y := 0; y < opts.WorldDims.Depth; y++ {
			for z := 0; z < opts.WorldDims.Height; z++ {
				coord := vec.Vec3{X: x, Y: y, Z: z}
				c := NewChunk(coord, opts.ChunkDims)
				if pop != nil {
					populate(c, pop)
				}
				w.chunks[coord] = c
				w.order = append(w.order, coord)
			}
		}
	}

	solid := 0
	for _, c := range w.chunks {
		solid += c.grid.SolidCount()
	}
	logging.Info("Мир создан: %d чанков %dx%dx%d, вокселей в чанке %dx%dx%d, твёрдых %d, границы=%s",
		len(w.order), opts.WorldDims.Width, opts.WorldDims.Depth, opts.WorldDims.Height,
		opts.ChunkDims.Width, opts.ChunkDims.Depth, opts.ChunkDims.Height, solid, opts.Boundary)
	return w, nil
}

func populate(c *Chunk, pop Populator) {
	g := c.grid
	for i := range g.voxels {
		g.voxels[i].Solid = pop.Solid(c.Global(g.dims.coordAt(i)))
	}
}

func (w *World) lookup(coord vec.Vec3) (*Chunk, bool) {
	c, ok := w.chunks[coord]
	return c, ok
}

func (w *World) Options() Options {
	return w.opts
}

// Cache возвращает общий кеш мешей
func (w *World) Cache() *MeshCache {
	return w.cache
}

// SetMetrics подключает сборщик метрик к циклу обновления и кешу
func (w *World) SetMetrics(m Metrics) {
	w.mu.Lock()
	w.metrics = m
	w.mu.Unlock()
	if m == nil {
		w.cache.SetObserver(nil)
		return
	}
	w.cache.SetObserver(m)
}

// SetLogger задаёт логгер компонента для подробных логов цикла обновления
func (w *World) SetLogger(l *logging.Logger) {
	w.mu.Lock()
	w.logger = l
	w.mu.Unlock()
}

// Chunk возвращает чанк по координатам. Чанк нельзя изменять в обход World.
func (w *World) Chunk(coord vec.Vec3) (*Chunk, bool) {
	return w.lookup(coord)
}

// ChunkCoords возвращает координаты всех чанков в порядке создания
func (w *World) ChunkCoords() []vec.Vec3 {
	return append([]vec.Vec3(nil), w.order...)
}

// SetSolid меняет твёрдость вокселя и помечает чанк грязным.
// В режиме BoundaryNeighbor правка на краю чанка пачкает и соседа через эту грань.
func (w *World) SetSolid(chunk vec.Vec3, lc LocalCoord, solid bool) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, ok := w.chunks[chunk]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownChunk, chunk)
	}
	if !c.setSolid(lc, solid) {
		return false, nil
	}
	if w.opts.Boundary == BoundaryNeighbor {
		for _, f := range Faces {
			if !c.grid.dims.OnBoundary(lc, f) {
				continue
			}
			if n, ok := w.chunks[chunk.Add(f.Offset())]; ok {
				n.markDirty()
			}
		}
	}
	logging.Debug("Воксель %s в %s: solid=%v", lc, c.Name(), solid)
	return true, nil
}

// SetSolidAt - как SetSolid, но локальная координата приходит снаружи и проверяется
func (w *World) SetSolidAt(chunk, local vec.Vec3, solid bool) (bool, error) {
	lc, err := w.opts.ChunkDims.Local(local.X, local.Y, local.Z)
	if err != nil {
		return false, err
	}
	return w.SetSolid(chunk, lc, solid)
}

// SetSolidGlobal меняет воксель по глобальной координате
func (w *World) SetSolidGlobal(global vec.Vec3, solid bool) (bool, error) {
	chunk, lc := w.Locate(global)
	return w.SetSolid(chunk, lc, solid)
}

// Locate раскладывает глобальную координату на чанк и локальную координату
func (w *World) Locate(global vec.Vec3) (vec.Vec3, LocalCoord) {
	d := w.opts.ChunkDims
	chunk := vec.Vec3{
		X: floorDiv(global.X, d.Width),
		Y: floorDiv(global.Y, d.Depth),
		Z: floorDiv(global.Z, d.Height),
	}
	lc := LocalCoord{
		x: mod(global.X, d.Width),
		y: mod(global.Y, d.Depth),
		z: mod(global.Z, d.Height),
	}
	return chunk, lc
}

// Placement возвращает позицию центра вокселя в сцене.
// Меши в кеше построены с ребром VoxelSize, так что соседние кубы смыкаются.
func (w *World) Placement(chunk vec.Vec3, lc LocalCoord) mgl32.Vec3 {
	g := chunk.Scale(w.opts.ChunkDims.Vec()).Add(lc.Vec())
	s := w.opts.VoxelSize
	return mgl32.Vec3{float32(g.X) * s, float32(g.Y) * s, float32(g.Z) * s}
}

// Transform возвращает матрицу переноса вокселя в позицию Placement
func (w *World) Transform(chunk vec.Vec3, lc LocalCoord) mgl32.Mat4 {
	p := w.Placement(chunk, lc)
	return mgl32.Translate3D(p.X(), p.Y(), p.Z())
}

// DirtyCount возвращает число грязных чанков
func (w *World) DirtyCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, c := range w.chunks {
		if c.dirty {
			n++
		}
	}
	return n
}

// ChunkSummary - краткое описание чанка для инспекции
type ChunkSummary struct {
	Coord vec.Vec3 `json:"coord"`
	Name  string   `json:"name"`
	Dirty bool     `json:"dirty"`
	Solid int      `json:"solid"`
}

// Info - снимок состояния мира
type Info struct {
	ChunkDims   Dimensions     `json:"chunk_dims"`
	WorldDims   Dimensions     `json:"world_dims"`
	VoxelSize   float32        `json:"voxel_size"`
	Boundary    string         `json:"boundary"`
	CacheSize   int            `json:"cache_size"`
	DirtyChunks int            `json:"dirty_chunks"`
	Chunks      []ChunkSummary `json:"chunks"`
}

func (w *World) Info() Info {
	w.mu.RLock()
	defer w.mu.RUnlock()

	info := Info{
		ChunkDims: w.opts.ChunkDims,
		WorldDims: w.opts.WorldDims,
		VoxelSize: w.opts.VoxelSize,
		Boundary:  w.opts.Boundary.String(),
		CacheSize: w.cache.Len(),
		Chunks:    make([]ChunkSummary, 0, len(w.order)),
	}
	for _, coord := range w.order {
		c := w.chunks[coord]
		if c.dirty {
			info.DirtyChunks++
		}
		info.Chunks = append(info.Chunks, ChunkSummary{
			Coord: coord,
			Name:  c.Name(),
			Dirty: c.dirty,
			Solid: c.grid.SolidCount(),
		})
	}
	return info
}

// VoxelInfo описывает один воксель чанка
type VoxelInfo struct {
	Local    vec.Vec3 `json:"local"`
	Solid    bool     `json:"solid"`
	Mask     FaceMask `json:"mask"`
	Faces    []string `json:"faces"`
	Attached bool     `json:"attached"`
}

// ChunkInfo - снимок содержимого чанка
type ChunkInfo struct {
	ChunkSummary
	Dims   Dimensions  `json:"dims"`
	Voxels []VoxelInfo `json:"voxels"`
}

// ChunkInfo возвращает снимок чанка; withEmpty включает пустые воксели
func (w *World) ChunkInfo(coord vec.Vec3, withEmpty bool) (ChunkInfo, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	c, ok := w.chunks[coord]
	if !ok {
		return ChunkInfo{}, fmt.Errorf("%w: %s", ErrUnknownChunk, coord)
	}
	info := ChunkInfo{
		ChunkSummary: ChunkSummary{Coord: coord, Name: c.Name(), Dirty: c.dirty, Solid: c.grid.SolidCount()},
		Dims:         c.grid.dims,
	}
	c.grid.Each(func(lc LocalCoord, v Voxel) {
		if !v.Solid && !withEmpty {
			return
		}
		_, attached := c.Attachment(lc)
		info.Voxels = append(info.Voxels, VoxelInfo{
			Local:    lc.Vec(),
			Solid:    v.Solid,
			Mask:     v.Mask,
			Faces:    v.Mask.Names(),
			Attached: attached,
		})
	})
	return info, nil
}

// EachAttachment обходит текущие вложения всех чанков в детерминированном порядке
func (w *World) EachAttachment(fn func(a Attachment)) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	coords := append([]vec.Vec3(nil), w.order...)
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	for _, coord := range coords {
		c := w.chunks[coord]
		for i, m := range c.attachments {
			if m == nil {
				continue
			}
			fn(w.attachment(c, c.grid.dims.coordAt(i), m))
		}
	}
}

func (w *World) attachment(c *Chunk, lc LocalCoord, m *Mesh) Attachment {
	return Attachment{
		Chunk:     c.coord,
		Local:     lc,
		Mesh:      m,
		Position:  w.Placement(c.coord, lc),
		Transform: w.Transform(c.coord, lc),
	}
}
