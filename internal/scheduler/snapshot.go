package scheduler

import (
	"context"
	"fmt"
	"sort"
)

// Snapshot lists the live timers with their next fire times. Labels are
// re-read from the store best-effort; a read failure degrades to IDs only.
func (e *Engine) Snapshot(ctx context.Context) Snapshot {
	labels := map[int64]string{}
	specs := map[int64]string{}
	if rules, err := e.src.ListRules(ctx); err == nil {
		for _, r := range rules {
			labels[r.ID] = r.Label
			if h, m, err := parseHHMM(r.TimeOfDay); err == nil {
				specs[r.ID] = fmt.Sprintf("%d %d * * *", m, h)
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{Timezone: e.loc.String(), Timers: make([]RuleInfo, 0, len(e.entries))}
	for ruleID, entryID := range e.entries {
		info := RuleInfo{RuleID: ruleID, Label: labels[ruleID], Spec: specs[ruleID]}
		if e.cron != nil {
			info.Next = e.cron.Entry(entryID).Next
		}
		snap.Timers = append(snap.Timers, info)
	}
	sort.Slice(snap.Timers, func(i, j int) bool { return snap.Timers[i].RuleID < snap.Timers[j].RuleID })
	return snap
}
