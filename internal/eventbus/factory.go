package eventbus

import (
	"fmt"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/logging"
)

// New создаёт шину по конфигурации. Для backend "none" возвращает nil:
// Publisher с nil-шиной ничего не публикует.
func New(cfg config.EventsConfig) (EventBus, error) {
	switch cfg.Backend {
	case "", "memory":
		logging.Info("📨 EventBus: in-memory, буфер %d", cfg.Buffer)
		return NewMemoryBus(cfg.Buffer), nil
	case "nats":
		bus, err := NewJetStreamBus(cfg.NATSURL, cfg.Stream, cfg.Retention)
		if err != nil {
			return nil, err
		}
		logging.Info("📨 EventBus: NATS JetStream %s, стрим %s", cfg.NATSURL, bus.stream)
		return bus, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
