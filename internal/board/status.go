package board

import (
	"time"

	"workboard/api/internal/store"
)

// Outcome is a derived status folded from the event log. Zero value means no
// event was found and the status is undefined.
type Outcome struct {
	EventType string
	At        time.Time
}

// Defined reports whether any event contributed to the outcome.
func (o Outcome) Defined() bool {
	return o.EventType != ""
}

// ResolveLatest folds the log for one entity type over a fixed pair of
// mutually exclusive event types, keeping only the latest event per entity.
// The fold is last-write-wins and idempotent: folding the same list twice
// yields the same result. This is the sole source of truth for quality
// outcome and delivery-mode start; neither is ever cached in a column.
func ResolveLatest(events []store.Event, entityType store.EntityType, typeA, typeB string) map[string]Outcome {
	out := make(map[string]Outcome)
	for _, evt := range events {
		if evt.EntityType != entityType {
			continue
		}
		if evt.EventType != typeA && evt.EventType != typeB {
			continue
		}
		prev, ok := out[evt.EntityID]
		if !ok || !evt.CreatedAt.Before(prev.At) {
			out[evt.EntityID] = Outcome{EventType: evt.EventType, At: evt.CreatedAt}
		}
	}
	return out
}

// qualityOutcomes derives the validated/rejected status for every tray.
func qualityOutcomes(snap *Snapshot) map[string]Outcome {
	return ResolveLatest(snap.Events, store.EntityTray, store.EventQualityValidated, store.EventQualityRejected)
}

// deliveryStarts derives the courier-sent/office-direct start for every order.
func deliveryStarts(snap *Snapshot) map[string]Outcome {
	return ResolveLatest(snap.Events, store.EntityOrder, store.EventCourierSent, store.EventOfficeDirect)
}

// latestEvent returns the newest event of the given types for one entity, or
// an undefined outcome.
func latestEvent(snap *Snapshot, entityType store.EntityType, entityID string, types ...string) Outcome {
	var out Outcome
	for _, evt := range snap.Events {
		if evt.EntityType != entityType || evt.EntityID != entityID {
			continue
		}
		for _, t := range types {
			if evt.EventType == t && !evt.CreatedAt.Before(out.At) {
				out = Outcome{EventType: evt.EventType, At: evt.CreatedAt}
			}
		}
	}
	return out
}
