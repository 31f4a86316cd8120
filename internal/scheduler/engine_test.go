package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

type fakeSource struct {
	mu          sync.Mutex
	rules       []store.ScheduleRule
	prefs       []store.Preference
	settings    store.AISettings
	rulesErr    error
	prefsErr    error
	settingsErr error
}

func (f *fakeSource) ListRules(context.Context) ([]store.ScheduleRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	return append([]store.ScheduleRule(nil), f.rules...), nil
}

func (f *fakeSource) ListPreferences(context.Context) ([]store.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsErr != nil {
		return nil, f.prefsErr
	}
	return append([]store.Preference(nil), f.prefs...), nil
}

func (f *fakeSource) GetAISettings(context.Context) (store.AISettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return store.AISettings{}, f.settingsErr
	}
	return f.settings, nil
}

func (f *fakeSource) setRules(rules []store.ScheduleRule, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules, f.rulesErr = rules, err
}

type fakeGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type sentMessage struct {
	recipientID int64
	text        string
}

type fakeTransport struct {
	mu      sync.Mutex
	err     error
	failFor int64 // when set, only this recipient's sends fail
	sent    []sentMessage
}

func (f *fakeTransport) SendDirect(_ context.Context, recipientID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{recipientID: recipientID, text: text})
	if f.failFor != 0 && recipientID != f.failFor {
		return nil
	}
	return f.err
}

type recordedDelivery struct {
	kind        string
	recipientID int64
}

type fakeRecorder struct {
	mu      sync.Mutex
	err     error
	records []recordedDelivery
}

func (f *fakeRecorder) Record(_ context.Context, kind string, recipientID int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedDelivery{kind: kind, recipientID: recipientID})
	return f.err
}

func newTestEngine(t *testing.T, src *fakeSource, gen *fakeGenerator, tr *fakeTransport, rec *fakeRecorder) *Engine {
	t.Helper()
	e, err := New(Config{Timezone: "UTC", FireTimeout: 5 * time.Second}, src, gen, tr, rec, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Stop(ctx)
	})
	return e
}

func activeRule(id int64, label, tod string, scope store.RecipientScope) store.ScheduleRule {
	return store.ScheduleRule{
		ID:        id,
		Label:     label,
		Kind:      store.ParseKind(label),
		TimeOfDay: tod,
		Scope:     scope,
		Status:    store.StatusActive,
	}
}

func TestRebuildRegistersActiveRules(t *testing.T) {
	t.Parallel()
	src := &fakeSource{rules: []store.ScheduleRule{
		activeRule(1, "Good Morning", "08:00", store.ScopeBoth),
		activeRule(2, "Take your vitamins reminder", "21:30", store.ScopePartnerOne),
		{ID: 3, Label: "Paused", TimeOfDay: "09:00", Scope: store.ScopeBoth, Status: store.StatusPaused},
		activeRule(4, "Broken", "25:00", store.ScopeBoth),
		activeRule(5, "Also broken", "8am", store.ScopeBoth),
	}}
	e := newTestEngine(t, src, &fakeGenerator{}, &fakeTransport{}, &fakeRecorder{})

	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := e.TimerCount(); got != 2 {
		t.Fatalf("TimerCount = %d, want 2", got)
	}

	// Same rule set again: the timer count must not grow.
	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if got := e.TimerCount(); got != 2 {
		t.Fatalf("TimerCount after identical rebuild = %d, want 2", got)
	}
}

func TestRebuildReplacesTimerSet(t *testing.T) {
	t.Parallel()
	src := &fakeSource{rules: []store.ScheduleRule{
		activeRule(1, "Good Morning", "08:00", store.ScopeBoth),
		activeRule(2, "Check in", "12:00", store.ScopeBoth),
		activeRule(3, "Good night", "22:00", store.ScopeBoth),
	}}
	e := newTestEngine(t, src, &fakeGenerator{}, &fakeTransport{}, &fakeRecorder{})

	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	if got := e.TimerCount(); got != 3 {
		t.Fatalf("TimerCount = %d, want 3", got)
	}

	src.setRules([]store.ScheduleRule{activeRule(9, "Good Morning", "07:45", store.ScopeBoth)}, nil)
	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if got := e.TimerCount(); got != 1 {
		t.Fatalf("TimerCount after replace = %d, want 1", got)
	}

	snap := e.Snapshot(context.Background())
	if len(snap.Timers) != 1 || snap.Timers[0].RuleID != 9 {
		t.Fatalf("snapshot timers = %+v, want single rule 9", snap.Timers)
	}
}

func TestRebuildKeepsTimersOnReadFailure(t *testing.T) {
	t.Parallel()
	src := &fakeSource{rules: []store.ScheduleRule{
		activeRule(1, "Good Morning", "08:00", store.ScopeBoth),
		activeRule(2, "Check in", "12:00", store.ScopeBoth),
	}}
	e := newTestEngine(t, src, &fakeGenerator{}, &fakeTransport{}, &fakeRecorder{})

	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	src.setRules(nil, errors.New("database locked"))
	if err := e.Rebuild(context.Background()); err == nil {
		t.Fatal("expected error when rule read fails")
	}
	if got := e.TimerCount(); got != 2 {
		t.Fatalf("TimerCount after failed rebuild = %d, want 2 (old timers kept)", got)
	}
}

func TestStopDrainsAndClears(t *testing.T) {
	t.Parallel()
	src := &fakeSource{rules: []store.ScheduleRule{activeRule(1, "Good Morning", "08:00", store.ScopeBoth)}}
	e := newTestEngine(t, src, &fakeGenerator{}, &fakeTransport{}, &fakeRecorder{})

	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := e.TimerCount(); got != 0 {
		t.Fatalf("TimerCount after Stop = %d, want 0", got)
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		hour    int
		minute  int
		wantErr bool
	}{
		{raw: "08:00", hour: 8, minute: 0},
		{raw: "23:59", hour: 23, minute: 59},
		{raw: "0:5", hour: 0, minute: 5},
		{raw: " 07:30 ", hour: 7, minute: 30},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "8am", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "12:00:00", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			h, m, err := parseHHMM(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseHHMM(%q): expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHHMM(%q): %v", tt.raw, err)
			}
			if h != tt.hour || m != tt.minute {
				t.Fatalf("parseHHMM(%q) = %d:%d, want %d:%d", tt.raw, h, m, tt.hour, tt.minute)
			}
		})
	}
}

func TestNewRejectsBadTimezone(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Timezone: "Mars/Olympus"}, &fakeSource{}, &fakeGenerator{}, &fakeTransport{}, &fakeRecorder{}, logx.Nop())
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
