package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"couplebot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRuleCRUD(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	created, err := st.CreateRule(ctx, ScheduleRule{
		Label:     "Good Morning",
		TimeOfDay: "08:00",
		Scope:     ScopeBoth,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateRule returned zero ID")
	}
	if created.Status != StatusActive {
		t.Fatalf("Status = %s, want active default", created.Status)
	}
	if created.Kind != KindGoodMorning {
		t.Fatalf("Kind = %v, want KindGoodMorning", created.Kind)
	}

	created.TimeOfDay = "07:30"
	created.Status = StatusPaused
	updated, err := st.UpdateRule(ctx, created)
	if err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if updated.TimeOfDay != "07:30" || updated.Status != StatusPaused {
		t.Fatalf("updated rule = %+v", updated)
	}

	rules, err := st.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("ListRules returned %d rules, want 1", len(rules))
	}

	if err := st.DeleteRule(ctx, created.ID); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if _, err := st.GetRule(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRule after delete: %v, want ErrNotFound", err)
	}
	if err := st.DeleteRule(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteRule: %v, want ErrNotFound", err)
	}
}

func TestUpdateRuleMissing(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	_, err := st.UpdateRule(context.Background(), ScheduleRule{ID: 42, Label: "x", TimeOfDay: "10:00", Scope: ScopeBoth, Status: StatusActive})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateRule on missing row: %v, want ErrNotFound", err)
	}
}

func TestUpsertPreferenceReplacesByRole(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	first, err := st.UpsertPreference(ctx, Preference{
		RecipientID:  100,
		Role:         ScopePartnerOne,
		DisplayName:  "A",
		GoodMorning:  true,
		MessageStyle: "romantic",
	})
	if err != nil {
		t.Fatalf("UpsertPreference: %v", err)
	}

	second, err := st.UpsertPreference(ctx, Preference{
		RecipientID:  100,
		Role:         ScopePartnerOne,
		DisplayName:  "A",
		GoodMorning:  false,
		Reminders:    true,
		MessageStyle: "humorous",
	})
	if err != nil {
		t.Fatalf("UpsertPreference update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %d != %d", second.ID, first.ID)
	}
	if second.GoodMorning || !second.Reminders || second.MessageStyle != "humorous" {
		t.Fatalf("updated preference = %+v", second)
	}

	if _, err := st.UpsertPreference(ctx, Preference{RecipientID: 200, Role: ScopePartnerTwo, DisplayName: "B"}); err != nil {
		t.Fatalf("UpsertPreference partner2: %v", err)
	}
	prefs, err := st.ListPreferences(ctx)
	if err != nil {
		t.Fatalf("ListPreferences: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("ListPreferences returned %d rows, want 2", len(prefs))
	}

	if _, err := st.GetPreferenceByRole(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPreferenceByRole unknown role: %v, want ErrNotFound", err)
	}
}

func TestDeliveryLogAndCounts(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := st.Record(ctx, "goodmorning", 100, now); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := st.Record(ctx, "ily", 200, now); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := st.Record(ctx, "goodmorning", 100, now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("Record old: %v", err)
	}

	counts, err := st.DeliveryCountsSince(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeliveryCountsSince: %v", err)
	}
	got := map[string]int{}
	for _, kc := range counts {
		got[kc.Kind] = kc.Count
	}
	if got["goodmorning"] != 3 || got["ily"] != 1 {
		t.Fatalf("counts = %v, want goodmorning:3 ily:1", got)
	}

	recent, err := st.ListDeliveries(ctx, 2)
	if err != nil {
		t.Fatalf("ListDeliveries: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("ListDeliveries limit ignored: got %d rows", len(recent))
	}
	if recent[0].ID < recent[1].ID {
		t.Fatal("ListDeliveries not newest-first")
	}
}

func TestAISettingsSeededAndUpdatable(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	set, err := st.GetAISettings(ctx)
	if err != nil {
		t.Fatalf("GetAISettings: %v", err)
	}
	if set.Model != "llama3.1" || set.Style != "romantic" {
		t.Fatalf("seeded settings = %+v", set)
	}

	set.Model = "mistral"
	set.Temperature = 0.9
	if err := st.PutAISettings(ctx, set); err != nil {
		t.Fatalf("PutAISettings: %v", err)
	}
	got, err := st.GetAISettings(ctx)
	if err != nil {
		t.Fatalf("GetAISettings after put: %v", err)
	}
	if got.Model != "mistral" || got.Temperature != 0.9 {
		t.Fatalf("settings after put = %+v", got)
	}
}

func TestDeckSpicyFilter(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.RandomTruth(ctx, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RandomTruth on empty deck: %v, want ErrNotFound", err)
	}

	if _, err := st.AddTruth(ctx, "mild question", false); err != nil {
		t.Fatalf("AddTruth: %v", err)
	}
	if _, err := st.AddTruth(ctx, "spicy question", true); err != nil {
		t.Fatalf("AddTruth spicy: %v", err)
	}

	for i := 0; i < 10; i++ {
		q, err := st.RandomTruth(ctx, false)
		if err != nil {
			t.Fatalf("RandomTruth: %v", err)
		}
		if q.Spicy {
			t.Fatal("non-spicy draw returned a spicy question")
		}
	}

	if _, err := st.AddDare(ctx, "spicy dare", true); err != nil {
		t.Fatalf("AddDare: %v", err)
	}
	if _, err := st.RandomDare(ctx, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RandomDare with only spicy rows: %v, want ErrNotFound", err)
	}
	d, err := st.RandomDare(ctx, true)
	if err != nil {
		t.Fatalf("RandomDare spicy: %v", err)
	}
	if !d.Spicy {
		t.Fatalf("dare = %+v, want the spicy row", d)
	}

	truths, err := st.ListTruths(ctx)
	if err != nil {
		t.Fatalf("ListTruths: %v", err)
	}
	if len(truths) != 2 {
		t.Fatalf("ListTruths returned %d rows, want 2", len(truths))
	}
}
