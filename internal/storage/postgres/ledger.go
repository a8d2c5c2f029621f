package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Ledger is the durable webhook event ledger, used to deduplicate the
// processor's at-least-once deliveries across restarts and instances.
// It stores event ids, not orders; there is no order store in this service.
type Ledger struct {
	DB *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{DB: db}
}

// EnsureSchema creates the ledger table when it does not exist yet.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if l == nil || l.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := l.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS webhook_events (
			event_id     TEXT PRIMARY KEY,
			event_type   TEXT NOT NULL DEFAULT '',
			processed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("ensure webhook_events table: %w", err)
	}
	return nil
}

// MarkProcessed inserts the event id and reports whether this was the first
// time. The insert-or-ignore keeps concurrent deliveries of the same event
// from both winning.
func (l *Ledger) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	if l == nil || l.DB == nil {
		return false, fmt.Errorf("database not initialized")
	}
	res, err := l.DB.ExecContext(ctx,
		`INSERT INTO webhook_events (event_id, event_type) VALUES ($1, $2)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for webhook event %s: %w", eventID, err)
	}
	if n > 0 {
		log.Printf("[DB] recorded webhook event %s (%s)", eventID, eventType)
	}
	return n > 0, nil
}
