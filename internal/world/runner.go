package world

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/logging"
)

// Runner крутит циклы обновления мира с фиксированной частотой и хранит
// состояние паузы, которое переключается извне (API, ввод пользователя).
type Runner struct {
	world *World
	sink  Sink
	rate  int

	mu     sync.Mutex
	state  SimulationState
	last   UpdateStats
	ticks  uint64
	hooks  []CycleHook
	toggle []func(SimulationState)
}

// CycleHook вызывается после каждого цикла, в котором был обработан хотя бы один чанк
type CycleHook func(ctx context.Context, stats UpdateStats)

// NewRunner создаёт раннер; rate - циклов в секунду (<= 0 означает 60,
// больше config.MaxTickRate урезается до него)
func NewRunner(w *World, sink Sink, rate int) *Runner {
	if rate <= 0 {
		rate = config.DefaultTickRate
	}
	if rate > config.MaxTickRate {
		rate = config.MaxTickRate
	}
	return &Runner{world: w, sink: sink, rate: rate}
}

func (r *Runner) State() SimulationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnCycle добавляет обработчик завершённых циклов
func (r *Runner) OnCycle(h CycleHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// OnToggle добавляет обработчик смены состояния паузы
func (r *Runner) OnToggle(h func(SimulationState)) {
	r.mu.Lock()
	r.toggle = append(r.toggle, h)
	r.mu.Unlock()
}

// Toggle переключает паузу и возвращает новое состояние
func (r *Runner) Toggle() SimulationState {
	r.mu.Lock()
	r.state = r.state.Toggle()
	s := r.state
	handlers := r.toggle
	r.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}

	if s == Paused {
		logging.Info("⏸ Симуляция на паузе")
	} else {
		logging.Info("▶ Симуляция продолжена")
	}
	return s
}

// LastStats возвращает итог последнего выполненного цикла и число тиков
func (r *Runner) LastStats() (UpdateStats, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.ticks
}

// Step выполняет один цикл с текущим состоянием паузы
func (r *Runner) Step(ctx context.Context) (UpdateStats, error) {
	stats, err := r.world.Update(ctx, r.State(), r.sink)

	r.mu.Lock()
	r.ticks++
	if !stats.Skipped {
		r.last = stats
	}
	hooks := r.hooks
	r.mu.Unlock()

	if stats.ChunksMeshed > 0 {
		for _, h := range hooks {
			h(ctx, stats)
		}
	}
	return stats, err
}

// Run блокируется до отмены ctx. Ошибки цикла логируются, цикл продолжает работу.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(r.rate))
	defer ticker.Stop()

	logging.Info("🔄 Цикл обновления запущен (%d TPS)", r.rate)
	for {
		select {
		case <-ctx.Done():
			logging.Info("Цикл обновления остановлен")
			return
		case <-ticker.C:
			if _, err := r.Step(ctx); err != nil {
				logging.Warn("Ошибка цикла обновления: %v", err)
			}
		}
	}
}
