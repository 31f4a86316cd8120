package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"couplebot/internal/scheduler"
	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

// Store is the persistence surface the API needs. *store.Store satisfies it.
type Store interface {
	ListRules(ctx context.Context) ([]store.ScheduleRule, error)
	GetRule(ctx context.Context, id int64) (store.ScheduleRule, error)
	CreateRule(ctx context.Context, r store.ScheduleRule) (store.ScheduleRule, error)
	UpdateRule(ctx context.Context, r store.ScheduleRule) (store.ScheduleRule, error)
	DeleteRule(ctx context.Context, id int64) error

	ListPreferences(ctx context.Context) ([]store.Preference, error)
	UpsertPreference(ctx context.Context, p store.Preference) (store.Preference, error)

	GetAISettings(ctx context.Context) (store.AISettings, error)
	PutAISettings(ctx context.Context, set store.AISettings) error

	ListDeliveries(ctx context.Context, limit int) ([]store.DeliveryRecord, error)
	DeliveryCountsSince(ctx context.Context, since time.Time) ([]store.KindCount, error)

	ListTruths(ctx context.Context) ([]store.TruthQuestion, error)
	ListDares(ctx context.Context) ([]store.DareChallenge, error)
	AddTruth(ctx context.Context, question string, spicy bool) (store.TruthQuestion, error)
	AddDare(ctx context.Context, challenge string, spicy bool) (store.DareChallenge, error)
	RandomTruth(ctx context.Context, spicy bool) (store.TruthQuestion, error)
	RandomDare(ctx context.Context, spicy bool) (store.DareChallenge, error)
}

// Scheduler is the engine surface the API drives.
type Scheduler interface {
	Rebuild(ctx context.Context) error
	Snapshot(ctx context.Context) scheduler.Snapshot
}

type Config struct {
	Listen     string
	RatePerSec int
	Timezone   *time.Location // for "today" stats windows
}

type Server struct {
	cfg    Config
	engine *gin.Engine
	store  Store
	sched  Scheduler
	log    logx.Logger
	srv    *http.Server
}

func NewServer(cfg Config, st Store, sched Scheduler, log logx.Logger) *Server {
	if st == nil || sched == nil {
		panic("web: store and scheduler are required")
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	s := &Server{cfg: cfg, engine: engine, store: st, sched: sched, log: log}

	engine.Use(gin.Recovery(), s.requestLog(), s.rateLimit())
	engine.GET("/healthz", s.handleHealth)
	engine.NoRoute(s.handleNotFound)

	api := engine.Group("/api")
	{
		api.GET("/schedules", s.handleListSchedules)
		api.POST("/schedules", s.handleCreateSchedule)
		api.PATCH("/schedules/:id", s.handleUpdateSchedule)
		api.DELETE("/schedules/:id", s.handleDeleteSchedule)

		api.GET("/users/preferences", s.handleListPreferences)
		api.PUT("/users/:role/preferences", s.handlePutPreference)

		api.GET("/ai/settings", s.handleGetAISettings)
		api.PUT("/ai/settings", s.handlePutAISettings)

		api.GET("/stats/commands", s.handleCommandStats)
		api.GET("/stats/deliveries", s.handleDeliveries)

		api.GET("/truthordare/truth", s.handleRandomTruth)
		api.GET("/truthordare/dare", s.handleRandomDare)
		api.POST("/truthordare/truth", s.handleAddTruth)
		api.POST("/truthordare/dare", s.handleAddDare)

		api.GET("/scheduler", s.handleSchedulerSnapshot)
		api.POST("/scheduler/rebuild", s.handleRebuild)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.engine.ServeHTTP(w, req)
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("web api listening", logx.String("addr", s.cfg.Listen))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}
