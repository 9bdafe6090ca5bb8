package metrics

import (
	"time"

	"github.com/annel0/voxelcore/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

// WorldMetrics экспортирует статистику цикла обновления и кеша мешей в Prometheus.
// Реализует world.Metrics, подключается через World.SetMetrics.
//
// Метрики:
// * <ns>_update_cycles_total{state} - выполненные и пропущенные (пауза) циклы
// * <ns>_update_cycle_duration_seconds - histogram
// * <ns>_chunks_meshed_total, <ns>_attachments_total - counters
// * <ns>_mesh_cache_hits_total, <ns>_mesh_cache_misses_total - counters
// * <ns>_mesh_cache_entries, <ns>_dirty_chunks - gauge, обновляются Sampler'ом
type WorldMetrics struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	chunksMeshed  prometheus.Counter
	attachments   prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheEntries  prometheus.Gauge
	dirtyChunks   prometheus.Gauge
}

var _ world.Metrics = (*WorldMetrics)(nil)

// NewWorldMetrics создаёт метрики и регистрирует их в reg (nil - глобальный регистр).
func NewWorldMetrics(namespace string, reg prometheus.Registerer) *WorldMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &WorldMetrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_cycles_total",
			Help:      "Число циклов обновления мира по состоянию симуляции.",
		}, []string{"state"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_cycle_duration_seconds",
			Help:      "Длительность выполненных циклов обновления.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
		}),
		chunksMeshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_meshed_total",
			Help:      "Чанков, переведённых из dirty в clean.",
		}),
		attachments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_total",
			Help:      "Вложений мешей, выданных рендеру.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mesh_cache_hits_total",
			Help:      "Обращений к кешу мешей, найденных без синтеза.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mesh_cache_misses_total",
			Help:      "Синтезов меша (не больше одного на маску).",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mesh_cache_entries",
			Help:      "Количество мешей в кеше (0..64).",
		}),
		dirtyChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dirty_chunks",
			Help:      "Чанков, ожидающих пересчёта.",
		}),
	}

	reg.MustRegister(m.cycles, m.cycleDuration, m.chunksMeshed, m.attachments,
		m.cacheHits, m.cacheMisses, m.cacheEntries, m.dirtyChunks)
	return m
}

func (m *WorldMetrics) ObserveCycle(stats world.UpdateStats) {
	if stats.Skipped {
		m.cycles.WithLabelValues(world.Paused.String()).Inc()
		return
	}
	m.cycles.WithLabelValues(world.Running.String()).Inc()
	m.cycleDuration.Observe(stats.Duration.Seconds())
	m.chunksMeshed.Add(float64(stats.ChunksMeshed))
	m.attachments.Add(float64(stats.Attachments))
}

func (m *WorldMetrics) CacheHit(world.FaceMask) {
	m.cacheHits.Inc()
}

func (m *WorldMetrics) CacheMiss(world.FaceMask) {
	m.cacheMisses.Inc()
}

// StatsProvider - источник значений для gauge-метрик
type StatsProvider interface {
	DirtyCount() int
	Cache() *world.MeshCache
}

// Sample обновляет gauge-метрики по текущему состоянию мира
func (m *WorldMetrics) Sample(p StatsProvider) {
	m.dirtyChunks.Set(float64(p.DirtyCount()))
	m.cacheEntries.Set(float64(p.Cache().Len()))
}

// Sampler периодически вызывает Sample, пока не будет остановлен
type Sampler struct {
	metrics  *WorldMetrics
	provider StatsProvider
	interval time.Duration
	quit     chan struct{}
	done     chan struct{}
}

func NewSampler(m *WorldMetrics, p StatsProvider, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{
		metrics:  m,
		provider: p,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает обновление в отдельной горутине
func (s *Sampler) Start() {
	go s.loop()
}

// Stop останавливает обновление и ждёт завершения горутины
func (s *Sampler) Stop() {
	close(s.quit)
	<-s.done
}

func (s *Sampler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.done)

	s.metrics.Sample(s.provider)
	for {
		select {
		case <-ticker.C:
			s.metrics.Sample(s.provider)
		case <-s.quit:
			return
		}
	}
}
