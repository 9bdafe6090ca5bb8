// mesh-export строит мир по конфигурации, выполняет один цикл обновления
// и сохраняет результат в GLB.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/export"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации")
	out := flag.String("out", "", "файл результата (по умолчанию export.path из конфигурации)")
	seed := flag.Int64("seed", 0, "переопределить seed генератора")
	flag.Parse()

	if err := run(*configPath, *out, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "mesh-export: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, out string, seed int64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if seed != 0 {
		cfg.Generator.Seed = seed
	}
	if out == "" {
		out = cfg.Export.Path
	}

	log := logging.NewConsoleLogger("export", os.Stdout)
	log.SetLevels(logging.ParseLevel(cfg.Logging.Level), logging.TRACE)

	opts := world.OptionsFromConfig(cfg.World)
	pop, err := world.NewPopulator(cfg.Generator, opts)
	if err != nil {
		return err
	}
	w, err := world.NewWorld(opts, pop)
	if err != nil {
		return err
	}

	b := export.NewSceneBuilder(cfg.Generator.Kind)
	b.SetLogger(log)
	stats, err := w.Update(context.Background(), world.Running, b)
	if err != nil {
		return err
	}
	log.Info("Цикл обновления: чанков %d, вложений %d за %v", stats.ChunksMeshed, stats.Attachments, stats.Duration)

	doc, s := b.Document()
	if err := export.SaveGLB(out, doc); err != nil {
		return err
	}
	log.Info("💾 %s: мешей %d, узлов %d, скрытых %d", out, s.Meshes, s.Nodes, s.Hidden)
	return nil
}
