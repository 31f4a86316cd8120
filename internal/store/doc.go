// Package store is the bot's persistence layer (SQLite).
//
// It holds:
//   - Scheduled message rules and per-partner notification preferences
//   - AI generation settings (single row)
//   - The append-only delivery log (usage statistics)
//   - The truth/dare decks used by the interactive commands
package store
