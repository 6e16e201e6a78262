package board

import (
	"workboard/api/internal/match"
	"workboard/api/internal/store"
)

// projectCourier projects orders onto the courier board: orders flagged
// courier-sent or with a courier event in the log. A persisted placement means
// a dispatcher moved the card manually and it is kept; otherwise the stage
// follows the latest delivery event.
func projectCourier(pc *Context, snap *Snapshot) (plan, error) {
	var result plan

	for i := range snap.Orders {
		order := &snap.Orders[i]
		sent := latestEvent(snap, store.EntityOrder, order.ID, store.EventCourierSent)
		delivered := latestEvent(snap, store.EntityOrder, order.ID, store.EventPackageDelivered)
		if !order.CourierSent && !sent.Defined() && !delivered.Defined() {
			continue
		}

		var stage store.Stage
		var ok bool
		if placement := snap.Placement(store.EntityOrder, order.ID, pc.Pipeline.ID); placement != nil {
			stage, ok = pc.StageByID(placement.StageID)
		}
		if !ok {
			switch {
			case delivered.Defined() && delivered.At.After(sent.At):
				stage, ok = pc.StageByKind(pc.Pipeline.ID, match.StageDelivered)
			case sent.Defined() || order.CourierSent:
				stage, ok = pc.StageByKind(pc.Pipeline.ID, match.StageCourierSent)
			}
			if !ok {
				stage, ok = pc.DefaultStage(pc.Pipeline.ID)
			}
		}
		if !ok {
			continue
		}

		result.items = append(result.items, newOrderItem(pc, snap, order, stage))
	}
	return result, nil
}
