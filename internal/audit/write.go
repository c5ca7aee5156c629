package audit

import (
	"context"
	"fmt"

	"github.com/roach88/ambit/internal/ir"
	"github.com/roach88/ambit/internal/resolver"
)

// WriteResolution appends a resolution and its full trace atomically.
// Returns the log-assigned resolution id. Either the resolution, its
// registered kinds, and every event are written, or nothing is.
func (l *Log) WriteResolution(ctx context.Context, kinds []ir.Kind, res *resolver.Resolution) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO resolutions (entry) VALUES (?)`, res.Entry)
	if err != nil {
		return 0, fmt.Errorf("insert resolution: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("resolution id: %w", err)
	}

	for _, kind := range kinds {
		hasDefault := 0
		if kind.HasDefault {
			hasDefault = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kinds (resolution_id, slot, name, payload, visibility, has_default)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, int(kind.Slot), kind.Name, string(kind.Payload), string(kind.Visibility), hasDefault,
		); err != nil {
			return 0, fmt.Errorf("insert kind %s: %w", kind.Name, err)
		}
	}

	for _, ev := range res.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (resolution_id, seq, kind, function, slot, detail)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, ev.Seq, ev.Kind, ev.Function, int(ev.Slot), ev.Detail,
		); err != nil {
			return 0, fmt.Errorf("insert event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit resolution: %w", err)
	}
	return id, nil
}
