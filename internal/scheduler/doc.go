// Package scheduler converts the stored rule set into live daily timers and
// drives message delivery when they fire.
//
// # Rebuild protocol
//
// Rebuild() always does a full swap: every previously registered timer is
// discarded and the active, parseable rules are re-registered from scratch.
// It is idempotent and safe to call whenever rules change (the web API calls
// it after every mutation). A rule with a malformed time is skipped with a
// warning; the rest of the set still schedules.
//
// # Firing protocol
//
// When a timer fires the engine resolves recipients (rule scope intersected
// with each partner's category preferences), generates content for the
// good-morning category (fixed fallback text when generation fails), sends a
// direct message per recipient, and appends one delivery record per attempted
// send. Recipients are dispatched concurrently and failures are isolated per
// recipient; no error escapes a firing.
package scheduler
