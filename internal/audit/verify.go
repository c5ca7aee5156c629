package audit

import (
	"context"
	"fmt"

	"github.com/roach88/ambit/internal/resolver"
)

// Divergence describes the first point where a re-resolution trace departs
// from the stored one.
type Divergence struct {
	Seq    int64  `json:"seq"`
	Stored string `json:"stored"`
	Fresh  string `json:"fresh"`
}

// Verify compares a freshly computed resolution against a stored trace.
// Resolution is deterministic by construction: identical declarations must
// reproduce the stored trace event for event. A nil Divergence means the
// traces match.
func (l *Log) Verify(ctx context.Context, resolutionID int64, fresh *resolver.Resolution) (*Divergence, error) {
	stored, err := l.ReadEvents(ctx, resolutionID)
	if err != nil {
		return nil, err
	}

	limit := len(stored)
	if len(fresh.Events) < limit {
		limit = len(fresh.Events)
	}
	for i := 0; i < limit; i++ {
		if stored[i] != fresh.Events[i] {
			return &Divergence{
				Seq:    stored[i].Seq,
				Stored: renderEvent(stored[i]),
				Fresh:  renderEvent(fresh.Events[i]),
			}, nil
		}
	}
	if len(stored) != len(fresh.Events) {
		div := &Divergence{Seq: int64(limit + 1)}
		if len(stored) > limit {
			div.Stored = renderEvent(stored[limit])
			div.Fresh = "(missing)"
		} else {
			div.Stored = "(missing)"
			div.Fresh = renderEvent(fresh.Events[limit])
		}
		return div, nil
	}
	return nil, nil
}

func renderEvent(ev resolver.Event) string {
	return fmt.Sprintf("%d %s fn=%s slot=%d %s", ev.Seq, ev.Kind, ev.Function, ev.Slot, ev.Detail)
}
