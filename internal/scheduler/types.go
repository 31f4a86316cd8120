package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

// Config controls the engine.
type Config struct {
	// Timezone is the IANA zone rules are interpreted in, e.g. "Europe/London".
	Timezone string

	// FireTimeout bounds all external calls of one firing. Defaults to 2m.
	FireTimeout time.Duration
}

// RuleSource is the read side of the rule store. The engine never writes
// through it.
type RuleSource interface {
	ListRules(ctx context.Context) ([]store.ScheduleRule, error)
	ListPreferences(ctx context.Context) ([]store.Preference, error)
	GetAISettings(ctx context.Context) (store.AISettings, error)
}

// GenerateRequest asks the text generator for one personalized message.
type GenerateRequest struct {
	Intent   string // e.g. "goodmorning"
	Style    string // per-recipient tone
	Settings store.AISettings
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type Transport interface {
	SendDirect(ctx context.Context, recipientID int64, text string) error
}

// Recorder is the delivery log sink. Record is called once per attempted send.
type Recorder interface {
	Record(ctx context.Context, kind string, recipientID int64, at time.Time) error
}

// Engine owns the live timer set. One instance per process; everything that
// mutates rules gets a reference and calls Rebuild.
type Engine struct {
	cfg Config
	loc *time.Location
	log logx.Logger

	src RuleSource
	gen Generator
	tr  Transport
	rec Recorder

	// mu guards cron + entries. The timer registry is exclusively owned here.
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[int64]cron.EntryID

	// firing bookkeeping so Stop() can wait for in-flight deliveries.
	fireWG sync.WaitGroup
}

// RuleInfo describes one live timer for introspection.
type RuleInfo struct {
	RuleID int64     `json:"rule_id"`
	Label  string    `json:"label"`
	Spec   string    `json:"spec"`
	Next   time.Time `json:"next"`
}

type Snapshot struct {
	Timezone string     `json:"timezone"`
	Timers   []RuleInfo `json:"timers"`
}
