package board

import (
	"strings"
	"time"

	"workboard/api/internal/match"
	"workboard/api/internal/store"
)

// arrivedTodayWindow is how long a courier-sent/office-direct start keeps the
// lead on the time-boxed Arrived-Today stage before it auto-migrates to
// Has-Order.
const arrivedTodayWindow = 24 * time.Hour

// domesticPrefixes mark a phone number as local; an international prefix that
// is not one of these routes an untouched lead to the Foreign stage.
var domesticPrefixes = []string{"+40", "0040"}

// projectSales is the standard strategy and universal fallback. Leads only.
// It never mutates persisted placements: every rule except the final
// persisted-placement case is an in-memory override.
func projectSales(pc *Context, snap *Snapshot) (plan, error) {
	var result plan
	starts := deliveryStarts(snap)

	for i := range snap.Leads {
		lead := &snap.Leads[i]
		stage, ok := salesStage(pc, snap, lead, starts)
		if !ok {
			continue
		}
		result.items = append(result.items, newLeadItem(pc, snap, lead, stage))
	}
	return result, nil
}

// salesStage resolves one lead's display stage by descending priority.
func salesStage(pc *Context, snap *Snapshot, lead *store.Lead, starts map[string]Outcome) (store.Stage, bool) {
	placement := snap.Placement(store.EntityLead, lead.ID, pc.Pipeline.ID)
	var persisted *store.Stage
	if placement != nil {
		if stage, ok := pc.StageByID(placement.StageID); ok {
			persisted = &stage
		}
	}

	// No-deal outranks every other override, including a non-expired callback.
	if lead.NoDeal {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageNoDeal); ok {
			return stage, true
		}
	}

	orders := snap.OrdersByLead[lead.ID]

	// Archived pins the card permanently.
	if leadArchived(snap, orders) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageArchived); ok {
			return stage, true
		}
	}

	if timestampActive(lead.CallbackAt, pc.Now) || anyOrderTimestampActive(orders, pc.Now, func(o *store.Order) *time.Time { return o.CallbackAt }) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageCallback); ok {
			return stage, true
		}
	}

	if timestampActive(lead.NoAnswerAt, pc.Now) || anyOrderTimestampActive(orders, pc.Now, func(o *store.Order) *time.Time { return o.NoAnswerAt }) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageNoAnswer); ok {
			return stage, true
		}
	}

	// Arrived-Today / Has-Order, mutually exclusive with the archived pin.
	if stage, ok := deliveryStage(pc, orders, placement, starts); ok {
		return stage, true
	}

	if anyOrderStatus(orders, store.OrderOrdered) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageHasOrder); ok {
			return stage, true
		}
	}

	if hasOpenExternalPlacement(pc, snap, orders) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageHasOrder); ok {
			return stage, true
		}
	}

	untouched := persisted == nil || match.ClassifyStage(persisted.Name) == match.StageNew
	if untouched && foreignPhone(lead.Phone) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageForeign); ok {
			return stage, true
		}
	}

	// The persisted placement is authoritative when no override applies.
	if persisted != nil {
		return *persisted, true
	}
	return pc.DefaultStage(pc.Pipeline.ID)
}

// deliveryStage resolves the time-boxed Arrived-Today / Has-Order pair from
// the latest courier-sent/office-direct start across the lead's orders. A
// manual move after the triggering event is preserved.
func deliveryStage(pc *Context, orders []*store.Order, placement *store.Placement, starts map[string]Outcome) (store.Stage, bool) {
	var start Outcome
	for _, order := range orders {
		if o := starts[order.ID]; o.Defined() && o.At.After(start.At) {
			start = o
		}
	}
	if !start.Defined() {
		return store.Stage{}, false
	}

	if pc.Now.Sub(start.At) >= arrivedTodayWindow {
		return pc.StageByKind(pc.Pipeline.ID, match.StageHasOrder)
	}
	if placement != nil && placement.UpdatedAt.After(start.At) {
		// The user moved the card since the event fired; keep their choice.
		return store.Stage{}, false
	}
	return pc.StageByKind(pc.Pipeline.ID, match.StageArrivedToday)
}

func leadArchived(snap *Snapshot, orders []*store.Order) bool {
	for _, order := range orders {
		if order.Status == store.OrderArchived {
			return true
		}
		for _, tray := range snap.TraysByOrder[order.ID] {
			if tray.Archived() {
				return true
			}
		}
	}
	return false
}

// hasOpenExternalPlacement reports whether any non-archived order of the lead
// is placed on a front-desk board, or has a tray active in a department.
func hasOpenExternalPlacement(pc *Context, snap *Snapshot, orders []*store.Order) bool {
	for _, order := range orders {
		if order.Status == store.OrderArchived {
			continue
		}
		for _, p := range snap.EntityPlacements(store.EntityOrder, order.ID) {
			if snap.PipelineKind(p.PipelineID) == match.PipelineFrontDesk {
				return true
			}
		}
		for _, tray := range snap.TraysByOrder[order.ID] {
			for _, p := range snap.EntityPlacements(store.EntityTray, tray.ID) {
				if snap.PipelineKind(p.PipelineID) == match.PipelineDepartment {
					return true
				}
			}
		}
	}
	return false
}

func anyOrderStatus(orders []*store.Order, status string) bool {
	for _, order := range orders {
		if order.Status == status {
			return true
		}
	}
	return false
}

func anyOrderTimestampActive(orders []*store.Order, now time.Time, pick func(*store.Order) *time.Time) bool {
	for _, order := range orders {
		if timestampActive(pick(order), now) {
			return true
		}
	}
	return false
}

// timestampActive treats a future timestamp as a live reminder; once it
// passes, the override expires on the next refresh.
func timestampActive(ts *time.Time, now time.Time) bool {
	return ts != nil && ts.After(now)
}

func foreignPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false
	}
	for _, prefix := range domesticPrefixes {
		if strings.HasPrefix(phone, prefix) {
			return false
		}
	}
	// A bare leading zero with no second zero is a local number.
	return strings.HasPrefix(phone, "+") || strings.HasPrefix(phone, "00")
}
