package domain

import "time"

// Signal types emitted to the ranking backend.
const (
	SignalLike = "like"
	SignalSave = "save"
	SignalView = "view"
)

// InteractionSnapshot is one side of an interaction-record write. Boolean
// fields are pointers because older records may not carry them at all, and
// "absent" and "false" must be distinguished when diffing.
type InteractionSnapshot struct {
	Like     *bool   `json:"like,omitempty"`
	Save     *bool   `json:"save,omitempty"`
	ViewSecs float64 `json:"viewSecs,omitempty"`
}

// InteractionWriteEvent carries the before/after snapshots of an
// interaction-record write, keyed by (actor, content).
type InteractionWriteEvent struct {
	ActorID   string
	ContentID string
	Before    *InteractionSnapshot
	After     *InteractionSnapshot
}

// Deleted reports whether the write removed the interaction record.
func (e *InteractionWriteEvent) Deleted() bool {
	return e.After == nil
}

// SignalDelta is one changed signal extracted from an interaction write.
// Weight is 1/0 for booleans and the positive seconds delta for views.
type SignalDelta struct {
	Type   string
	Weight float64
}

// Deltas computes the sparse set of changed signals between the before and
// after snapshots. Booleans emit only on a value change; viewSecs emits only
// the positive delta, never the absolute accumulator.
func (e *InteractionWriteEvent) Deltas() []SignalDelta {
	if e.After == nil {
		return nil
	}

	var deltas []SignalDelta

	if d, ok := boolDelta(beforeOf(e).Like, e.After.Like); ok {
		deltas = append(deltas, SignalDelta{Type: SignalLike, Weight: d})
	}
	if d, ok := boolDelta(beforeOf(e).Save, e.After.Save); ok {
		deltas = append(deltas, SignalDelta{Type: SignalSave, Weight: d})
	}

	if secs := e.After.ViewSecs - beforeOf(e).ViewSecs; secs > 0 {
		deltas = append(deltas, SignalDelta{Type: SignalView, Weight: secs})
	}

	return deltas
}

func beforeOf(e *InteractionWriteEvent) *InteractionSnapshot {
	if e.Before == nil {
		return &InteractionSnapshot{}
	}
	return e.Before
}

func boolDelta(before, after *bool) (float64, bool) {
	if after == nil {
		return 0, false
	}
	if before != nil && *before == *after {
		return 0, false
	}
	if *after {
		return 1, true
	}
	return 0, true
}

// InteractionRecord is the stored interaction state. The pipeline only reads
// snapshots and stamps LastPushedAt; the interaction state itself is owned by
// the client apps.
type InteractionRecord struct {
	ActorID      string     `db:"actor_id"`
	ContentID    string     `db:"content_id"`
	Liked        bool       `db:"liked"`
	Saved        bool       `db:"saved"`
	ViewSeconds  float64    `db:"view_seconds"`
	LastEventAt  time.Time  `db:"last_event_at"`
	LastPushedAt *time.Time `db:"last_pushed_at"`
}
