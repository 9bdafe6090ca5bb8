package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxelcore/internal/eventbus"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/middleware"
	"github.com/annel0/voxelcore/internal/vec"
	"github.com/annel0/voxelcore/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer - HTTP API для инспекции мира, правки вокселей и паузы
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	world   *world.World
	runner  *world.Runner
	events  *eventbus.Publisher
	metrics *ServerMetrics
	log     *logging.Logger
}

// Config содержит конфигурацию REST сервера
type Config struct {
	Port    string // ":8090"
	Service string // имя для otelgin и namespace HTTP-метрик
	World   *world.World
	Runner  *world.Runner
	Events  *eventbus.Publisher // nil - правки не публикуются

	// Registry - регистр для HTTP-метрик и /metrics; nil - глобальный
	Registry *prometheus.Registry
	Logger   *logging.Logger
}

// GenericResponse - общий формат ответов API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создаёт сервер и настраивает маршруты
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8090"
	}
	if config.Service == "" {
		config.Service = "voxelcore"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())
	router.Use(otelgin.Middleware(config.Service))

	var (
		reg prometheus.Registerer
		gat prometheus.Gatherer
	)
	if config.Registry != nil {
		reg, gat = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware(config.Service, reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gat)

	rs := &RestServer{
		router:  router,
		world:   config.World,
		runner:  config.Runner,
		events:  config.Events,
		metrics: NewServerMetrics(),
		log:     config.Logger,
	}
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.setupRoutes()
	return rs
}

func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/world", rs.handleWorld)
		api.GET("/chunks/:x/:y/:z", rs.handleChunk)
		api.GET("/meshes/:mask", rs.handleMesh)
		api.POST("/voxels", rs.handleSetVoxel)
		api.POST("/simulation/toggle", rs.handleToggle)
		api.GET("/server/stats", rs.handleServerStats)
	}
}

// Handler возвращает http.Handler (используется в тестах)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// WorldResponse - состояние мира и симуляции
type WorldResponse struct {
	World      world.Info        `json:"world"`
	Simulation string            `json:"simulation"`
	Ticks      uint64            `json:"ticks"`
	LastCycle  world.UpdateStats `json:"last_cycle"`
}

func (rs *RestServer) handleWorld(c *gin.Context) {
	resp := WorldResponse{
		World:      rs.world.Info(),
		Simulation: world.Running.String(),
	}
	if rs.runner != nil {
		resp.Simulation = rs.runner.State().String()
		resp.LastCycle, resp.Ticks = rs.runner.LastStats()
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Состояние мира", Data: resp})
}

func (rs *RestServer) handleChunk(c *gin.Context) {
	coord, err := parseCoord(c.Param("x"), c.Param("y"), c.Param("z"))
	if err != nil {
		rs.fail(c, http.StatusBadRequest, "Некорректные координаты чанка", err)
		return
	}
	withEmpty := c.Query("empty") == "true"

	info, err := rs.world.ChunkInfo(coord, withEmpty)
	if err != nil {
		rs.fail(c, http.StatusNotFound, "Чанк не найден", err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: info.Name, Data: info})
}

// MeshResponse - буферы меша для одной маски
type MeshResponse struct {
	Mask      world.FaceMask `json:"mask"`
	Faces     []string       `json:"faces"`
	Positions []mgl32.Vec3   `json:"positions"`
	Normals   []mgl32.Vec3   `json:"normals"`
	UVs       []mgl32.Vec2   `json:"uvs"`
	Indices   []uint32       `json:"indices"`
}

func (rs *RestServer) handleMesh(c *gin.Context) {
	v, err := strconv.Atoi(c.Param("mask"))
	if err != nil {
		rs.fail(c, http.StatusBadRequest, "Маска должна быть числом", err)
		return
	}
	mask, err := world.ParseMask(v)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, "Некорректная маска", err)
		return
	}

	m := rs.world.Cache().GetOrCreate(mask)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: mask.String(),
		Data: MeshResponse{
			Mask:      mask,
			Faces:     mask.Names(),
			Positions: m.Positions(),
			Normals:   m.Normals(),
			UVs:       m.UVs(),
			Indices:   m.Indices(),
		},
	})
}

// SetVoxelRequest - правка твёрдости вокселя
type SetVoxelRequest struct {
	Chunk vec.Vec3 `json:"chunk"`
	Local vec.Vec3 `json:"local"`
	Solid *bool    `json:"solid" binding:"required"`
}

func (rs *RestServer) handleSetVoxel(c *gin.Context) {
	var req SetVoxelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, "Некорректный запрос", err)
		return
	}

	changed, err := rs.world.SetSolidAt(req.Chunk, req.Local, *req.Solid)
	switch {
	case errors.Is(err, world.ErrUnknownChunk):
		rs.fail(c, http.StatusNotFound, "Чанк не найден", err)
		return
	case errors.Is(err, world.ErrOutOfBounds):
		rs.fail(c, http.StatusBadRequest, "Координата вне чанка", err)
		return
	case err != nil:
		rs.fail(c, http.StatusInternalServerError, "Ошибка правки", err)
		return
	}

	dirty := rs.world.DirtyCount()
	if changed {
		rs.events.VoxelChanged(c.Request.Context(), eventbus.VoxelChanged{
			Chunk: req.Chunk,
			Local: req.Local,
			Solid: *req.Solid,
			Dirty: dirty,
		})
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Воксель обновлён",
		Data: gin.H{
			"changed": changed,
			"dirty":   dirty,
		},
	})
}

func (rs *RestServer) handleToggle(c *gin.Context) {
	if rs.runner == nil {
		rs.fail(c, http.StatusServiceUnavailable, "Цикл обновления не запущен", nil)
		return
	}
	state := rs.runner.Toggle()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние симуляции изменено",
		Data:    gin.H{"simulation": state.String()},
	})
}

func (rs *RestServer) handleServerStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика процесса",
		Data:    rs.metrics.Snapshot(),
	})
}

func (rs *RestServer) fail(c *gin.Context, status int, message string, err error) {
	resp := GenericResponse{Success: false, Message: message}
	if err != nil {
		resp.Data = gin.H{"error": err.Error()}
		if status >= http.StatusInternalServerError {
			rs.errorf("%s: %v", message, err)
		}
	}
	c.JSON(status, resp)
}

func (rs *RestServer) errorf(format string, args ...interface{}) {
	if rs.log != nil {
		rs.log.Error(format, args...)
		return
	}
	logging.Error(format, args...)
}

func parseCoord(xs, ys, zs string) (vec.Vec3, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return vec.Vec3{}, err
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return vec.Vec3{}, err
	}
	z, err := strconv.Atoi(zs)
	if err != nil {
		return vec.Vec3{}, err
	}
	return vec.Vec3{X: x, Y: y, Z: z}, nil
}

// Start запускает сервер; блокируется до Stop или ошибки
func (rs *RestServer) Start() error {
	logging.Info("🌐 REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно завершает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
