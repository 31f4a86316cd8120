package scheduler

import (
	"errors"
	"testing"

	"couplebot/internal/store"
)

func partnerPref(role store.RecipientScope, id int64) store.Preference {
	return store.Preference{
		RecipientID:      id,
		Role:             role,
		GoodMorning:      true,
		SpecialOccasions: true,
		Reminders:        true,
		MessageStyle:     "romantic",
	}
}

func fireFixture(t *testing.T, src *fakeSource) (*Engine, *fakeGenerator, *fakeTransport, *fakeRecorder) {
	t.Helper()
	gen := &fakeGenerator{text: "a generated good morning"}
	tr := &fakeTransport{}
	rec := &fakeRecorder{}
	return newTestEngine(t, src, gen, tr, rec), gen, tr, rec
}

func TestFireDeliversToBothPartners(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs: []store.Preference{
			partnerPref(store.ScopePartnerOne, 100),
			partnerPref(store.ScopePartnerTwo, 200),
		},
		settings: store.AISettings{Model: "llama3.1", Style: "romantic"},
	}
	e, gen, tr, rec := fireFixture(t, src)

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopeBoth))

	if len(tr.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(tr.sent))
	}
	for _, s := range tr.sent {
		if s.text != "a generated good morning" {
			t.Fatalf("sent text = %q, want generated text", s.text)
		}
	}
	if len(gen.calls) != 2 {
		t.Fatalf("generator called %d times, want 2", len(gen.calls))
	}
	if len(rec.records) != 2 {
		t.Fatalf("recorded %d deliveries, want 2", len(rec.records))
	}
	for _, r := range rec.records {
		if r.kind != "goodmorning" {
			t.Fatalf("recorded kind = %q, want goodmorning", r.kind)
		}
	}
}

func TestFireFallbackOnGenerationFailure(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs:    []store.Preference{partnerPref(store.ScopePartnerOne, 100)},
		settings: store.AISettings{Model: "llama3.1"},
	}
	e, gen, tr, rec := fireFixture(t, src)
	gen.err = errors.New("model not loaded")

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopePartnerOne))

	if len(tr.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(tr.sent))
	}
	if tr.sent[0].text != FallbackGoodMorning {
		t.Fatalf("sent text = %q, want fallback", tr.sent[0].text)
	}
	if len(rec.records) != 1 {
		t.Fatalf("recorded %d deliveries, want 1", len(rec.records))
	}
}

func TestFireNonGoodMorningSendsLabelVerbatim(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs:    []store.Preference{partnerPref(store.ScopePartnerTwo, 200)},
		settings: store.AISettings{Model: "llama3.1"},
	}
	e, gen, tr, _ := fireFixture(t, src)

	e.fire(activeRule(2, "Anniversary dinner reminder", "18:00", store.ScopePartnerTwo))

	if len(gen.calls) != 0 {
		t.Fatalf("generator called %d times, want 0", len(gen.calls))
	}
	if len(tr.sent) != 1 || tr.sent[0].text != "Anniversary dinner reminder" {
		t.Fatalf("sent = %+v, want the label verbatim", tr.sent)
	}
}

func TestFireScopeFiltersRecipients(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs: []store.Preference{
			partnerPref(store.ScopePartnerOne, 100),
			partnerPref(store.ScopePartnerTwo, 200),
		},
		settings: store.AISettings{Model: "llama3.1"},
	}
	e, _, tr, _ := fireFixture(t, src)

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopePartnerTwo))

	if len(tr.sent) != 1 || tr.sent[0].recipientID != 200 {
		t.Fatalf("sent = %+v, want only partner2", tr.sent)
	}
}

func TestFirePreferenceGateSuppressesDelivery(t *testing.T) {
	t.Parallel()
	p1 := partnerPref(store.ScopePartnerOne, 100)
	p1.GoodMorning = false
	src := &fakeSource{
		prefs: []store.Preference{
			p1,
			partnerPref(store.ScopePartnerTwo, 200),
		},
		settings: store.AISettings{Model: "llama3.1"},
	}
	e, gen, tr, rec := fireFixture(t, src)

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopeBoth))

	if len(tr.sent) != 1 || tr.sent[0].recipientID != 200 {
		t.Fatalf("sent = %+v, want only partner2", tr.sent)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("generator called %d times, want once (only for the resolved recipient)", len(gen.calls))
	}
	if gen.calls[0].Style != "romantic" {
		t.Fatalf("generator style = %q, want the resolved recipient's style", gen.calls[0].Style)
	}
	if len(rec.records) != 1 {
		t.Fatalf("recorded %d deliveries, want 1 (no record for gated partner)", len(rec.records))
	}
}

func TestFireMissingPreferenceRecordSkipsPartner(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs:    []store.Preference{partnerPref(store.ScopePartnerOne, 100)},
		settings: store.AISettings{Model: "llama3.1"},
	}
	e, _, tr, _ := fireFixture(t, src)

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopeBoth))

	if len(tr.sent) != 1 || tr.sent[0].recipientID != 100 {
		t.Fatalf("sent = %+v, want only the partner with a preference record", tr.sent)
	}
}

func TestFirePreferenceReadFailureAborts(t *testing.T) {
	t.Parallel()
	src := &fakeSource{prefsErr: errors.New("database locked")}
	e, _, tr, rec := fireFixture(t, src)

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopeBoth))

	if len(tr.sent) != 0 || len(rec.records) != 0 {
		t.Fatalf("expected nothing sent or recorded, got sent=%d records=%d", len(tr.sent), len(rec.records))
	}
}

func TestFireSettingsReadFailureAborts(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs:       []store.Preference{partnerPref(store.ScopePartnerOne, 100)},
		settingsErr: errors.New("database locked"),
	}
	e, _, tr, rec := fireFixture(t, src)

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopeBoth))

	if len(tr.sent) != 0 || len(rec.records) != 0 {
		t.Fatalf("expected nothing sent or recorded, got sent=%d records=%d", len(tr.sent), len(rec.records))
	}
}

func TestFireRecordsFailedSend(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs:    []store.Preference{partnerPref(store.ScopePartnerOne, 100)},
		settings: store.AISettings{Model: "llama3.1"},
	}
	e, _, tr, rec := fireFixture(t, src)
	tr.err = errors.New("blocked by user")

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopePartnerOne))

	if len(rec.records) != 1 {
		t.Fatalf("recorded %d deliveries, want 1 even when the send fails", len(rec.records))
	}
}

func TestFireRecipientFailuresAreIndependent(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		prefs: []store.Preference{
			partnerPref(store.ScopePartnerOne, 100),
			partnerPref(store.ScopePartnerTwo, 200),
		},
		settings: store.AISettings{Model: "llama3.1"},
	}
	e, _, tr, rec := fireFixture(t, src)
	tr.err = errors.New("blocked by user")
	tr.failFor = 100

	e.fire(activeRule(1, "Good Morning", "08:00", store.ScopeBoth))

	if len(tr.sent) != 2 {
		t.Fatalf("attempted %d sends, want 2 (one partner failing must not stop the other)", len(tr.sent))
	}
	if len(rec.records) != 2 {
		t.Fatalf("recorded %d deliveries, want 2", len(rec.records))
	}
}

func TestAllowed(t *testing.T) {
	t.Parallel()
	pref := store.Preference{GoodMorning: false, SpecialOccasions: true, Reminders: false}
	tests := []struct {
		name string
		kind store.KindCategory
		want bool
	}{
		{name: "good morning gated off", kind: store.KindGoodMorning, want: false},
		{name: "special occasion allowed", kind: store.KindSpecialOccasion, want: true},
		{name: "reminder gated off", kind: store.KindReminder, want: false},
		{name: "unrecognized category passes", kind: store.KindOther, want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(pref, tt.kind); got != tt.want {
				t.Fatalf("Allowed(%v) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}
