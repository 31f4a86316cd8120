package scheduler

import "couplebot/internal/store"

// Allowed reports whether a partner's preferences admit the given message
// category. Unrecognized categories are never gated.
func Allowed(pref store.Preference, kind store.KindCategory) bool {
	switch kind {
	case store.KindGoodMorning:
		return pref.GoodMorning
	case store.KindSpecialOccasion:
		return pref.SpecialOccasions
	case store.KindReminder:
		return pref.Reminders
	default:
		return true
	}
}
