package audit

import (
	"context"
	"fmt"

	"github.com/roach88/ambit/internal/ir"
	"github.com/roach88/ambit/internal/resolver"
)

// ResolutionRecord is one stored resolution header.
type ResolutionRecord struct {
	ID        int64  `json:"id"`
	Entry     string `json:"entry"`
	CreatedAt string `json:"created_at"`
}

// ReadResolutions returns all stored resolution headers, oldest first.
func (l *Log) ReadResolutions(ctx context.Context) ([]ResolutionRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, entry, created_at FROM resolutions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	var out []ResolutionRecord
	for rows.Next() {
		var rec ResolutionRecord
		if err := rows.Scan(&rec.ID, &rec.Entry, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReadEvents returns the full trace of one resolution in sequence order.
func (l *Log) ReadEvents(ctx context.Context, resolutionID int64) ([]resolver.Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, kind, function, slot, detail FROM events
		 WHERE resolution_id = ? ORDER BY seq`, resolutionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []resolver.Event
	for rows.Next() {
		var ev resolver.Event
		var slot int
		if err := rows.Scan(&ev.Seq, &ev.Kind, &ev.Function, &slot, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Slot = ir.SlotIndex(slot)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ReadKinds returns the kinds registered for one resolution in slot order.
func (l *Log) ReadKinds(ctx context.Context, resolutionID int64) ([]ir.Kind, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT slot, name, payload, visibility, has_default FROM kinds
		 WHERE resolution_id = ? ORDER BY slot`, resolutionID)
	if err != nil {
		return nil, fmt.Errorf("query kinds: %w", err)
	}
	defer rows.Close()

	var out []ir.Kind
	for rows.Next() {
		var kind ir.Kind
		var slot, hasDefault int
		var payload, visibility string
		if err := rows.Scan(&slot, &kind.Name, &payload, &visibility, &hasDefault); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		kind.Slot = ir.SlotIndex(slot)
		kind.Payload = ir.PayloadType(payload)
		kind.Visibility = ir.Visibility(visibility)
		kind.HasDefault = hasDefault != 0
		out = append(out, kind)
	}
	return out, rows.Err()
}
