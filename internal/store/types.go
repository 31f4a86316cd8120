package store

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

type RuleStatus string

const (
	StatusActive RuleStatus = "active"
	StatusPaused RuleStatus = "paused"
)

// RecipientScope selects which of the two partners a rule targets.
type RecipientScope string

const (
	ScopePartnerOne RecipientScope = "partner1"
	ScopePartnerTwo RecipientScope = "partner2"
	ScopeBoth       RecipientScope = "both"
)

func (s RecipientScope) Valid() bool {
	return s == ScopePartnerOne || s == ScopePartnerTwo || s == ScopeBoth
}

// Includes reports whether the scope covers the given partner role.
func (s RecipientScope) Includes(role RecipientScope) bool {
	return s == ScopeBoth || s == role
}

// KindCategory is the closed set of message categories the preference gate
// understands. Rules carry a free-text label; the category is derived from it
// once, at the store boundary, so gate logic is an exhaustive switch instead
// of string comparisons scattered around.
type KindCategory int

const (
	KindOther KindCategory = iota
	KindGoodMorning
	KindSpecialOccasion
	KindReminder
)

func (k KindCategory) String() string {
	switch k {
	case KindGoodMorning:
		return "good_morning"
	case KindSpecialOccasion:
		return "special_occasion"
	case KindReminder:
		return "reminder"
	default:
		return "other"
	}
}

const (
	LabelGoodMorning     = "Good Morning"
	LabelSpecialOccasion = "Special Occasion"
)

// ParseKind maps a rule label onto its category. Labels containing "reminder"
// (any case) count as reminders; anything unrecognized is KindOther.
func ParseKind(label string) KindCategory {
	switch {
	case label == LabelGoodMorning:
		return KindGoodMorning
	case label == LabelSpecialOccasion:
		return KindSpecialOccasion
	case strings.Contains(strings.ToLower(label), "reminder"):
		return KindReminder
	default:
		return KindOther
	}
}

// NormalizeKind produces the compact key used in the delivery log,
// e.g. "Good Morning" -> "goodmorning".
func NormalizeKind(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "")
}

// ScheduleRule is one recurring scheduled message definition.
type ScheduleRule struct {
	ID        int64
	Label     string // free-text kind label, e.g. "Good Morning"
	Kind      KindCategory
	TimeOfDay string // wall-clock "HH:MM" in the configured timezone
	Scope     RecipientScope
	Status    RuleStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Preference holds one partner's opt-in flags and style for generated content.
// At most one row per role and per recipient ID.
type Preference struct {
	ID               int64
	RecipientID      int64 // telegram user ID
	Role             RecipientScope
	DisplayName      string
	GoodMorning      bool
	SpecialOccasions bool
	Reminders        bool
	MessageStyle     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DeliveryRecord is one append-only usage row; written for every attempted
// send (scheduled or interactive), never updated.
type DeliveryRecord struct {
	ID          int64
	Kind        string // normalized, see NormalizeKind
	RecipientID int64
	SentAt      time.Time
}

type KindCount struct {
	Kind  string
	Count int
}

// AISettings biases generated text; persisted as a single row.
type AISettings struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Style       string // global tone, blended with per-partner MessageStyle
}

type TruthQuestion struct {
	ID       int64
	Question string
	Spicy    bool
}

type DareChallenge struct {
	ID        int64
	Challenge string
	Spicy     bool
}
