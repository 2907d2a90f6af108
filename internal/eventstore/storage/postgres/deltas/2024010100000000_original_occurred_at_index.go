// Package deltas holds forward-only schema migrations for the event store,
// applied via internal/sqlutil.Migrator, the same layout as the teacher's
// roomserver/storage/postgres/deltas package.
package deltas

import (
	"context"
	"database/sql"
)

// UpOriginalOccurredAtIndex adds the index OriginalEvent relies on
// (spec.md §4.A "OriginalEvent": "the first version (min original_occurred_at)").
func UpOriginalOccurredAtIndex(ctx context.Context, txn *sql.Tx) error {
	_, err := txn.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_event_room_set_label_original
	ON event(room_id, "set", label, original_occurred_at ASC)`)
	return err
}
