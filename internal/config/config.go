package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Generator GeneratorConfig `yaml:"generator"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Export    ExportConfig    `yaml:"export"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WorldConfig задаёт размеры мира. Меняется только пересозданием мира.
type WorldConfig struct {
	ChunkWidth        int     `yaml:"chunk_width"`
	ChunkDepth        int     `yaml:"chunk_depth"`
	ChunkHeight       int     `yaml:"chunk_height"`
	WidthInChunks     int     `yaml:"width_in_chunks"`
	DepthInChunks     int     `yaml:"depth_in_chunks"`
	HeightInChunks    int     `yaml:"height_in_chunks"`
	VoxelSize         float32 `yaml:"voxel_size"`
	CrossChunkCulling bool    `yaml:"cross_chunk_culling"`
	UpdateWorkers     int     `yaml:"update_workers"`
}

// GeneratorConfig выбирает способ заполнения мира.
type GeneratorConfig struct {
	Kind      string  `yaml:"kind"` // random | perlin | simplex
	Seed      int64   `yaml:"seed"`
	Scale     float64 `yaml:"scale"`
	Threshold float64 `yaml:"threshold"`
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
	TickRate int `yaml:"tick_rate"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // host:port OTLP/HTTP коллектора, пусто - localhost:4318
	Insecure    bool   `yaml:"insecure"`
}

type ExportConfig struct {
	Path string `yaml:"path"` // .glb или .glb.zst
}

// EventsConfig выбирает шину уведомлений об изменениях мира.
type EventsConfig struct {
	Backend   string        `yaml:"backend"` // memory | nats | none
	Buffer    int           `yaml:"buffer"`
	NATSURL   string        `yaml:"nats_url"`
	Stream    string        `yaml:"stream"`
	Retention time.Duration `yaml:"retention"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Значения по умолчанию повторяют исходный мир: чанки 16x16x16, мир 4x1x4, воксель 0.1.
const (
	DefaultChunkSize      = 16
	DefaultWidthInChunks  = 4
	DefaultDepthInChunks  = 1
	DefaultHeightInChunks = 4
	DefaultVoxelSize      = float32(0.1)
	DefaultRESTPort       = 8090
	DefaultTickRate       = 60
	MaxTickRate           = 1000
	DefaultGenerator      = "random"
	DefaultNoiseScale     = 0.05
	DefaultThreshold      = 0.5
	DefaultServiceName    = "voxelcore"
	DefaultExportPath     = "world.glb"
	DefaultEventsBackend  = "memory"
	DefaultEventsBuffer   = 256
	DefaultNATSURL        = "nats://127.0.0.1:4222"
	DefaultEventRetention = time.Hour
)

var ErrInvalidConfig = errors.New("invalid config")

// Default возвращает конфигурацию со всеми значениями по умолчанию
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return cfg
}

// newConfig заполняет поля, у которых ноль - допустимое значение.
// YAML перезаписывает их только если ключ задан явно.
func newConfig() *Config {
	return &Config{
		Generator: GeneratorConfig{Threshold: DefaultThreshold},
	}
}

func (c *Config) applyDefaults() {
	w := &c.World
	w.ChunkWidth = intOrDefault(w.ChunkWidth, DefaultChunkSize)
	w.ChunkDepth = intOrDefault(w.ChunkDepth, DefaultChunkSize)
	w.ChunkHeight = intOrDefault(w.ChunkHeight, DefaultChunkSize)
	w.WidthInChunks = intOrDefault(w.WidthInChunks, DefaultWidthInChunks)
	w.DepthInChunks = intOrDefault(w.DepthInChunks, DefaultDepthInChunks)
	w.HeightInChunks = intOrDefault(w.HeightInChunks, DefaultHeightInChunks)
	w.UpdateWorkers = intOrDefault(w.UpdateWorkers, 1)
	if w.VoxelSize == 0 {
		w.VoxelSize = DefaultVoxelSize
	}

	g := &c.Generator
	if g.Kind == "" {
		g.Kind = DefaultGenerator
	}
	g.Kind = strings.ToLower(g.Kind)
	if g.Scale == 0 {
		g.Scale = DefaultNoiseScale
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
	if c.Export.Path == "" {
		c.Export.Path = DefaultExportPath
	}
	e := &c.Events
	if e.Backend == "" {
		e.Backend = DefaultEventsBackend
	}
	e.Backend = strings.ToLower(e.Backend)
	e.Buffer = intOrDefault(e.Buffer, DefaultEventsBuffer)
	if e.NATSURL == "" {
		e.NATSURL = getStringWithEnvFallback("VOXEL_NATS_URL", DefaultNATSURL)
	}
	if e.Retention == 0 {
		e.Retention = DefaultEventRetention
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate проверяет значения, которые нельзя исправить дефолтами
func (c *Config) Validate() error {
	w := c.World
	dims := map[string]int{
		"chunk_width":      w.ChunkWidth,
		"chunk_depth":      w.ChunkDepth,
		"chunk_height":     w.ChunkHeight,
		"width_in_chunks":  w.WidthInChunks,
		"depth_in_chunks":  w.DepthInChunks,
		"height_in_chunks": w.HeightInChunks,
		"update_workers":   w.UpdateWorkers,
	}
	for _, name := range []string{"chunk_width", "chunk_depth", "chunk_height",
		"width_in_chunks", "depth_in_chunks", "height_in_chunks", "update_workers"} {
		if dims[name] <= 0 {
			return fmt.Errorf("%w: world.%s must be positive, got %d", ErrInvalidConfig, name, dims[name])
		}
	}
	if w.VoxelSize <= 0 {
		return fmt.Errorf("%w: world.voxel_size must be positive, got %v", ErrInvalidConfig, w.VoxelSize)
	}
	switch c.Generator.Kind {
	case "random", "perlin", "simplex":
	default:
		return fmt.Errorf("%w: unknown generator kind %q", ErrInvalidConfig, c.Generator.Kind)
	}
	switch c.Events.Backend {
	case "memory", "nats", "none":
	default:
		return fmt.Errorf("%w: unknown events backend %q", ErrInvalidConfig, c.Events.Backend)
	}
	if rate := c.Server.GetTickRate(); rate > MaxTickRate {
		return fmt.Errorf("%w: server.tick_rate must be at most %d, got %d", ErrInvalidConfig, MaxTickRate, rate)
	}
	if c.Generator.Threshold < 0 || c.Generator.Threshold > 1 {
		return fmt.Errorf("%w: generator.threshold must be in [0,1], got %v", ErrInvalidConfig, c.Generator.Threshold)
	}
	return nil
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getIntWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", DefaultRESTPort)
}

// GetTickRate возвращает частоту цикла обновления (тиков в секунду)
func (s *ServerConfig) GetTickRate() int {
	return getIntWithEnvFallback(s.TickRate, "VOXEL_TICK_RATE", DefaultTickRate)
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

func getStringWithEnvFallback(envVar, defaultValue string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultValue
}

func intOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать путь из ENV VOXEL_CONFIG; без файла возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse разбирает YAML, применяет дефолты и валидирует результат
func Parse(data []byte) (*Config, error) {
	cfg := newConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
