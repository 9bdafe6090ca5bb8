package eventbus

import (
	"context"
	"errors"

	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/vec"
	"github.com/annel0/voxelcore/internal/world"
)

// ErrClosed возвращается при публикации в закрытую шину
var ErrClosed = errors.New("eventbus: closed")

// Типы событий мира
const (
	TypeVoxelChanged      = "voxel_changed"
	TypeCycleCompleted    = "cycle_completed"
	TypeSimulationToggled = "simulation_toggled"
)

// VoxelChanged - правка твёрдости вокселя
type VoxelChanged struct {
	Chunk vec.Vec3 `json:"chunk"`
	Local vec.Vec3 `json:"local"`
	Solid bool     `json:"solid"`
	Dirty int      `json:"dirty"` // грязных чанков после правки
}

// CycleCompleted - итог цикла обновления, в котором были грязные чанки
type CycleCompleted struct {
	ChunksMeshed int   `json:"chunks_meshed"`
	Attachments  int   `json:"attachments"`
	DurationNs   int64 `json:"duration_ns"`
	CacheEntries int   `json:"cache_entries"`
}

// SimulationToggled - смена состояния паузы
type SimulationToggled struct {
	State string `json:"state"`
}

// Publisher превращает события мира в конверты и отправляет их в шину.
// Ошибки публикации логируются и не прерывают работу мира.
type Publisher struct {
	bus    EventBus
	source string
	log    *logging.Logger
}

// NewPublisher создаёт издателя; source попадает в Envelope.Source
func NewPublisher(bus EventBus, source string, log *logging.Logger) *Publisher {
	return &Publisher{bus: bus, source: source, log: log}
}

func (p *Publisher) publish(ctx context.Context, eventType string, priority int, payload interface{}) {
	if p == nil || p.bus == nil {
		return
	}
	ev, err := NewEnvelope(p.source, eventType, priority, payload)
	if err == nil {
		err = p.bus.Publish(ctx, ev)
	}
	if err != nil {
		p.log.Warn("Не удалось опубликовать %s: %v", eventType, err)
	}
}

// VoxelChanged публикует правку вокселя
func (p *Publisher) VoxelChanged(ctx context.Context, ev VoxelChanged) {
	p.publish(ctx, TypeVoxelChanged, 5, ev)
}

// SimulationToggled публикует смену паузы; событие высокого приоритета
func (p *Publisher) SimulationToggled(ctx context.Context, state world.SimulationState) {
	p.publish(ctx, TypeSimulationToggled, 9, SimulationToggled{State: state.String()})
}

// CycleHook возвращает обработчик для Runner.OnCycle
func (p *Publisher) CycleHook(w *world.World) world.CycleHook {
	return func(ctx context.Context, stats world.UpdateStats) {
		p.publish(ctx, TypeCycleCompleted, 1, CycleCompleted{
			ChunksMeshed: stats.ChunksMeshed,
			Attachments:  stats.Attachments,
			DurationNs:   stats.Duration.Nanoseconds(),
			CacheEntries: w.Cache().Len(),
		})
	}
}
