package world

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/annel0/voxelcore/internal/world"

// SimulationState - глобальное состояние паузы. Хранится у вызывающего
// и передаётся в каждый цикл обновления явно.
type SimulationState int

const (
	Running SimulationState = iota
	Paused
)

// Toggle переключает паузу
func (s SimulationState) Toggle() SimulationState {
	if s == Paused {
		return Running
	}
	return Paused
}

func (s SimulationState) String() string {
	if s == Paused {
		return "paused"
	}
	return "running"
}

// Attachment - то, что цикл обновления отдаёт рендеру для одного твёрдого вокселя
type Attachment struct {
	Chunk     vec.Vec3
	Local     LocalCoord
	Mesh      *Mesh
	Position  mgl32.Vec3
	Transform mgl32.Mat4
}

// Sink принимает вложения. Attach вызывается из горутины цикла обновления
// в порядке чанков, независимо от числа воркеров.
type Sink interface {
	Attach(a Attachment) error
}

// SinkFunc позволяет использовать функцию как Sink
type SinkFunc func(a Attachment) error

func (f SinkFunc) Attach(a Attachment) error { return f(a) }

// UpdateStats - итог одного цикла
type UpdateStats struct {
	Skipped      bool          `json:"skipped"` // цикл не выполнялся из-за паузы
	ChunksMeshed int           `json:"chunks_meshed"`
	Attachments  int           `json:"attachments"`
	Duration     time.Duration `json:"duration_ns"`
}

// Metrics собирает статистику циклов и кеша
type Metrics interface {
	CacheObserver
	ObserveCycle(stats UpdateStats)
}

// Update выполняет один цикл: для каждого грязного чанка пересчитывает маски,
// выдаёт вложения и помечает чанк чистым. Пауза проверяется один раз в начале;
// на паузе ни один чанк и ни одна маска не меняются.
// Если sink вернул ошибку, чанк остаётся грязным и будет обработан в следующем цикле.
func (w *World) Update(ctx context.Context, state SimulationState, sink Sink) (UpdateStats, error) {
	if state == Paused {
		stats := UpdateStats{Skipped: true}
		w.mu.RLock()
		w.observe(stats)
		w.mu.RUnlock()
		return stats, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "world.Update")
	defer span.End()

	start := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	dirty := make([]*Chunk, 0, len(w.order))
	for _, coord := range w.order {
		if c := w.chunks[coord]; c.dirty {
			dirty = append(dirty, c)
		}
	}

	// Маски и меши считаются параллельно, а вложения выдаются строго по порядку
	// чанков: ошибка sink оставляет один и тот же набор грязных чанков
	// при любом числе воркеров.
	prepared := make([]preparedChunk, len(dirty))
	counts := make([]int, len(dirty))
	var err error
	if w.opts.Workers <= 1 || len(dirty) <= 1 {
		for i, c := range dirty {
			prepared[i] = w.prepareChunk(c)
			if counts[i], err = w.deliverChunk(c, prepared[i], sink); err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.opts.Workers)
		for i, c := range dirty {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				prepared[i] = w.prepareChunk(c)
				return nil
			})
		}
		if err = g.Wait(); err == nil {
			for i, c := range dirty {
				if counts[i], err = w.deliverChunk(c, prepared[i], sink); err != nil {
					break
				}
			}
		}
	}

	stats := UpdateStats{Duration: time.Since(start)}
	for i, c := range dirty {
		if !c.dirty {
			stats.ChunksMeshed++
			stats.Attachments += counts[i]
		}
	}

	span.SetAttributes(
		attribute.Int("world.dirty_chunks", len(dirty)),
		attribute.Int("world.chunks_meshed", stats.ChunksMeshed),
		attribute.Int("world.attachments", stats.Attachments),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Error("Цикл обновления прерван: %v", err)
	} else if stats.ChunksMeshed > 0 {
		logging.Debug("Цикл обновления: чанков %d, вложений %d за %v",
			stats.ChunksMeshed, stats.Attachments, stats.Duration)
	}
	w.observe(stats)
	return stats, err
}

type preparedChunk struct {
	meshes []*Mesh // по индексу вокселя; nil у пустого
	took   time.Duration
}

// prepareChunk пересчитывает маски чанка и подбирает меши из кеша.
// Пишет только в свой чанк; соседние чанки в режиме BoundaryNeighbor лишь читаются.
func (w *World) prepareChunk(c *Chunk) preparedChunk {
	start := time.Now()
	w.resolver.Recompute(c)

	g := c.grid
	meshes := make([]*Mesh, len(g.voxels))
	for i := range g.voxels {
		if v := g.voxels[i]; v.Solid {
			// Полностью скрытый воксель тоже получает вложение (пустой меш)
			meshes[i] = w.cache.GetOrCreate(v.Mask)
		}
	}
	return preparedChunk{meshes: meshes, took: time.Since(start)}
}

// deliverChunk выдаёт вложения в sink и помечает чанк чистым.
// При ошибке sink чанк остаётся грязным.
func (w *World) deliverChunk(c *Chunk, p preparedChunk, sink Sink) (int, error) {
	start := time.Now()
	n := 0
	for i, m := range p.meshes {
		c.attachments[i] = m
		if m == nil {
			continue
		}
		if sink != nil {
			lc := c.grid.dims.coordAt(i)
			if err := sink.Attach(w.attachment(c, lc, m)); err != nil {
				return n, fmt.Errorf("attach %s %s: %w", c.Name(), lc, err)
			}
		}
		n++
	}
	c.markClean()
	logging.LogChunkMeshed(w.logger, c.Name(), n, p.took+time.Since(start))
	return n, nil
}

func (w *World) observe(stats UpdateStats) {
	if w.metrics != nil {
		w.metrics.ObserveCycle(stats)
	}
}
