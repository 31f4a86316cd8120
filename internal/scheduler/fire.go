package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"couplebot/internal/store"
	"couplebot/pkg/logx"
)

// Fallback texts substituted when generation fails (or for kinds that are
// never AI-personalized there is no fallback; the label itself is the body).
const (
	FallbackGoodMorning = "Good morning! I hope you have a wonderful day ahead. Thinking of you with love! ❤️"
	IntentGoodMorning   = "goodmorning"
)

// fire runs one scheduled delivery. Every failure mode is contained here:
// nothing a firing does can crash the process or affect other timers.
func (e *Engine) fire(rule store.ScheduleRule) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic in scheduled firing",
				logx.Int64("rule", rule.ID), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.FireTimeout)
	defer cancel()

	log := e.log.With(logx.Int64("rule", rule.ID), logx.String("kind", rule.Label))
	log.Info("scheduled firing", logx.String("time", rule.TimeOfDay))

	prefs, err := e.src.ListPreferences(ctx)
	if err != nil {
		log.Error("firing aborted: preference read failed", logx.Err(err))
		return
	}

	recipients := resolveRecipients(rule, prefs)
	if len(recipients) == 0 {
		log.Info("no recipients resolved; nothing to send")
		return
	}

	settings, err := e.src.GetAISettings(ctx)
	if err != nil {
		log.Error("firing aborted: settings read failed", logx.Err(err))
		return
	}

	// Recipients are independent: dispatch concurrently and join, so one slow
	// generation or send only costs as much as itself.
	var wg sync.WaitGroup
	for _, pref := range recipients {
		wg.Add(1)
		go func(pref store.Preference) {
			defer wg.Done()
			e.deliverOne(ctx, rule, pref, settings)
		}(pref)
	}
	wg.Wait()
}

// resolveRecipients applies the scope and category filters. A partner with no
// preference record is never resolved, even for scope "both".
func resolveRecipients(rule store.ScheduleRule, prefs []store.Preference) []store.Preference {
	var out []store.Preference
	for _, role := range []store.RecipientScope{store.ScopePartnerOne, store.ScopePartnerTwo} {
		if !rule.Scope.Includes(role) {
			continue
		}
		for _, p := range prefs {
			if p.Role != role {
				continue
			}
			if Allowed(p, rule.Kind) {
				out = append(out, p)
			}
			break
		}
	}
	return out
}

func (e *Engine) deliverOne(ctx context.Context, rule store.ScheduleRule, pref store.Preference, settings store.AISettings) {
	log := e.log.With(logx.Int64("rule", rule.ID), logx.Int64("recipient", pref.RecipientID))

	text := e.content(ctx, rule, pref, settings, log)

	if err := e.tr.SendDirect(ctx, pref.RecipientID, text); err != nil {
		log.Error("scheduled send failed", logx.Err(err))
	} else {
		log.Info("scheduled message sent", logx.String("kind", rule.Label))
	}

	// Record the attempt either way; the log only tracks that the transport
	// was reached, not whether delivery succeeded.
	if err := e.rec.Record(ctx, store.NormalizeKind(rule.Label), pref.RecipientID, time.Now()); err != nil {
		log.Warn("delivery record failed", logx.Err(err))
	}
}

// content produces the message body. Only the good-morning category is
// AI-personalized; all other kinds send their label text verbatim.
func (e *Engine) content(ctx context.Context, rule store.ScheduleRule, pref store.Preference, settings store.AISettings, log logx.Logger) string {
	if rule.Kind != store.KindGoodMorning {
		return rule.Label
	}
	text, err := e.gen.Generate(ctx, GenerateRequest{
		Intent:   IntentGoodMorning,
		Style:    pref.MessageStyle,
		Settings: settings,
	})
	if err != nil {
		log.Warn("generation failed; using fallback", logx.Err(err))
		return FallbackGoodMorning
	}
	return text
}
