package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/voxelcore/internal/api"
	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/eventbus"
	"github.com/annel0/voxelcore/internal/export"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/metrics"
	"github.com/annel0/voxelcore/internal/observability"
	"github.com/annel0/voxelcore/internal/world"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
	exportOnExit := flag.Bool("export-on-exit", false, "выгрузить мир в GLB при остановке")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// === ЛОГИРОВАНИЕ ===
	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	level := logging.ParseLevel(cfg.Logging.Level)
	logging.SetDefaultLevels(level, logging.TRACE)

	logging.Info("🧊 Запуск voxelcore...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		log.Fatalf("❌ Ошибка инициализации OpenTelemetry: %v", err)
	}

	// === МИР ===
	opts := world.OptionsFromConfig(cfg.World)
	pop, err := world.NewPopulator(cfg.Generator, opts)
	if err != nil {
		log.Fatalf("❌ Ошибка создания генератора: %v", err)
	}
	w, err := world.NewWorld(opts, pop)
	if err != nil {
		log.Fatalf("❌ Ошибка создания мира: %v", err)
	}
	worldLog := logging.GetWorldLogger()
	worldLog.SetLevels(level, logging.TRACE)
	w.SetLogger(worldLog)

	wm := metrics.NewWorldMetrics("voxelcore", nil)
	w.SetMetrics(wm)
	sampler := metrics.NewSampler(wm, w, time.Second)
	sampler.Start()

	runner := world.NewRunner(w, nil, cfg.Server.GetTickRate())

	// === СОБЫТИЯ ===
	bus, err := eventbus.New(cfg.Events)
	if err != nil {
		logging.Error("❌ Ошибка создания EventBus: %v", err)
		log.Fatalf("❌ Ошибка создания EventBus: %v", err)
	}
	var publisher *eventbus.Publisher
	if bus != nil {
		eventsLog := logging.GetComponentLogger("events")
		eventsLog.SetLevels(level, logging.TRACE)
		if _, err := eventbus.StartLoggingListener(bus, eventsLog); err != nil {
			logging.Warn("LoggingListener не запущен: %v", err)
		}
		busMetrics := eventbus.NewMetricsExporter(bus, nil, time.Second)
		busMetrics.Start()
		defer busMetrics.Stop()
		defer bus.Close()

		publisher = eventbus.NewPublisher(bus, cfg.Telemetry.ServiceName, eventsLog)
		runner.OnCycle(publisher.CycleHook(w))
		runner.OnToggle(func(s world.SimulationState) {
			publisher.SimulationToggled(context.Background(), s)
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	// === REST API ===
	gin.SetMode(gin.ReleaseMode)
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:    restPort,
		Service: cfg.Telemetry.ServiceName,
		World:   w,
		Runner:  runner,
		Events:  publisher,
		Logger:  logging.GetAPILogger(),
	})
	go func() {
		if err := server.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
			cancel()
		}
	}()

	logging.Info("✅ Мир %dx%dx%d чанков запущен", opts.WorldDims.Width, opts.WorldDims.Depth, opts.WorldDims.Height)
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", restPort)
	logging.Info("💡 Пауза: curl -X POST http://localhost%s/api/simulation/toggle", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case <-ctx.Done():
	}

	// === GRACEFUL SHUTDOWN ===
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := server.Stop(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	cancel()
	wg.Wait()
	sampler.Stop()

	if *exportOnExit {
		if _, err := export.ExportWorld(w, cfg.Export.Path, logging.GetExportLogger()); err != nil {
			logging.Error("❌ Ошибка выгрузки мира: %v", err)
		}
	}

	if err := shutdownTelemetry(stopCtx); err != nil {
		logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
	}
	logging.Info("👋 Сервер успешно остановлен")
}
