package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

func New(cfg Config, src RuleSource, gen Generator, tr Transport, rec Recorder, log logx.Logger) (*Engine, error) {
	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		tz = "Europe/London"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	if cfg.FireTimeout <= 0 {
		cfg.FireTimeout = 2 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		cfg:     cfg,
		loc:     loc,
		log:     log,
		src:     src,
		gen:     gen,
		tr:      tr,
		rec:     rec,
		entries: map[int64]cron.EntryID{},
	}, nil
}

// Rebuild discards every live timer and re-registers the current active rule
// set. A store read failure aborts the rebuild and leaves the previous timers
// running. Rules whose time fails to parse are skipped individually.
func (e *Engine) Rebuild(ctx context.Context) error {
	rules, err := e.src.ListRules(ctx)
	if err != nil {
		e.log.Error("rebuild aborted: rule read failed", logx.Err(err))
		return fmt.Errorf("rebuild: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := cron.New(cron.WithLocation(e.loc))
	entries := make(map[int64]cron.EntryID, len(rules))
	skipped := 0
	for _, r := range rules {
		if r.Status != store.StatusActive {
			continue
		}
		hour, minute, err := parseHHMM(r.TimeOfDay)
		if err != nil {
			e.log.Warn("rule skipped: bad time of day",
				logx.Int64("rule", r.ID), logx.String("time", r.TimeOfDay), logx.Err(err))
			skipped++
			continue
		}
		rule := r // snapshot for the callback; later rebuilds don't touch it
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		id, err := next.AddFunc(spec, func() {
			e.fireWG.Add(1)
			defer e.fireWG.Done()
			e.fire(rule)
		})
		if err != nil {
			e.log.Warn("rule skipped: cron register failed",
				logx.Int64("rule", rule.ID), logx.String("spec", spec), logx.Err(err))
			skipped++
			continue
		}
		entries[rule.ID] = id
	}

	// Swap only after the new set is fully built. Stopping the old cron
	// prevents future firings; it never aborts one already in flight.
	if e.cron != nil {
		e.cron.Stop()
	}
	e.cron = next
	e.entries = entries
	next.Start()

	e.log.Info("schedule rebuilt",
		logx.Int("timers", len(entries)), logx.Int("skipped", skipped), logx.String("tz", e.loc.String()))
	return nil
}

// TimerCount reports the number of live timers.
func (e *Engine) TimerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Stop cancels all timers and waits (bounded by ctx) for in-flight firings.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	c := e.cron
	e.cron = nil
	e.entries = map[int64]cron.EntryID{}
	e.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		e.fireWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
