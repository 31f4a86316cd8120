// Package app wires the bot together: config, logging, storage, the AI
// client, the telegram adapter, the schedule engine and the admin API.
package app

import (
	"context"
	"time"

	"couplebot/internal/ai"
	"couplebot/internal/config"
	"couplebot/internal/scheduler"
	"couplebot/internal/store"
	"couplebot/internal/telegram"
	"couplebot/internal/web"
	"couplebot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	store   *store.Store
	engine  *scheduler.Engine
	adapter *telegram.Adapter
	web     *web.Server

	cancel  context.CancelFunc
	bg      chan struct{} // closed when background goroutines exit
	started bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level: cfg.Logging.Level,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	aiTimeout, err := config.ParseDurationOrDefault("ai.request_timeout", cfg.AI.RequestTimeout, 30*time.Second)
	if err != nil {
		st.Close()
		return nil, err
	}
	gen, err := ai.New(ai.Config{
		BaseURL:        cfg.AI.BaseURL,
		RequestTimeout: aiTimeout,
	}, log.With(logx.String("comp", "ai")))
	if err != nil {
		st.Close()
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		st.Close()
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		Partner1ID:  cfg.Partners.Partner1ID,
		Partner2ID:  cfg.Partners.Partner2ID,
	}, st, st, log.With(logx.String("comp", "telegram")))
	if err != nil {
		st.Close()
		return nil, err
	}

	eng, err := scheduler.New(scheduler.Config{
		Timezone: cfg.Timezone,
	}, st, gen, ad, st, log.With(logx.String("comp", "scheduler")))
	if err != nil {
		st.Close()
		return nil, err
	}

	var srv *web.Server
	if cfg.Web.Enabled {
		srv = web.NewServer(web.Config{
			Listen:     cfg.Web.Listen,
			RatePerSec: cfg.Web.RatePerSec,
			Timezone:   loc,
		}, st, eng, log.With(logx.String("comp", "web")))
	}

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   st,
		engine:  eng,
		adapter: ad,
		web:     srv,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	if err := a.adapter.Start(ctx); err != nil {
		return err
	}
	if err := a.engine.Rebuild(ctx); err != nil {
		a.adapter.Stop(context.Background())
		return err
	}
	a.log.Info("schedule engine built", logx.Int("timers", a.engine.TimerCount()))

	bgCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.bg = make(chan struct{})
	a.started = true

	sub := a.cfgm.Subscribe(8)
	go func() {
		defer close(a.bg)
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-bgCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(bgCtx, cfg)
			}
		}
	}()

	go func() {
		if err := a.cfgm.Watch(bgCtx); err != nil && bgCtx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	if a.web != nil {
		go func() {
			if err := a.web.Start(); err != nil {
				a.log.Error("web api failed", logx.Err(err))
			}
		}()
	}

	a.log.Info("started")
	return nil
}

// applyReload handles a committed config change. Only logging and the timer
// set react at runtime; token, storage path and listen address need a restart.
func (a *App) applyReload(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level: cfg.Logging.Level,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err := a.engine.Rebuild(ctx); err != nil {
		a.log.Error("rebuild after config reload failed", logx.Err(err))
		return
	}
	a.log.Info("config reloaded", logx.Int("timers", a.engine.TimerCount()))
}

func (a *App) Stop(ctx context.Context) error {
	if !a.started {
		return nil
	}
	a.started = false

	if a.web != nil {
		if err := a.web.Stop(ctx); err != nil {
			a.log.Warn("web shutdown", logx.Err(err))
		}
	}
	if err := a.engine.Stop(ctx); err != nil {
		a.log.Warn("engine shutdown", logx.Err(err))
	}
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("telegram shutdown", logx.Err(err))
	}

	a.cancel()
	select {
	case <-a.bg:
	case <-ctx.Done():
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}
