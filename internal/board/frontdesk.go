package board

import (
	"workboard/api/internal/match"
	"workboard/api/internal/store"
)

// projectFrontDesk projects service orders onto the front-desk board. The
// stage ladder is strict descending priority: the first rule that matches
// wins. When the computed stage differs from the persisted placement the
// strategy emits a corrective write; orders with no placement get one
// inserted. The placement store converges on the computed state over
// successive runs.
func projectFrontDesk(pc *Context, snap *Snapshot) (plan, error) {
	var result plan
	outcomes := qualityOutcomes(snap)

	for i := range snap.Orders {
		order := &snap.Orders[i]
		if !frontDeskVisible(pc, snap, order) {
			continue
		}

		stage, ok := frontDeskStage(pc, snap, order, outcomes)
		if !ok {
			continue
		}

		arriving := match.ClassifyStage(stage.Name) == match.StageArrived
		placement := snap.Placement(store.EntityOrder, order.ID, pc.Pipeline.ID)
		switch {
		case placement == nil:
			result.corrections = append(result.corrections, Correction{
				EntityType:     store.EntityOrder,
				EntityID:       order.ID,
				PipelineID:     pc.Pipeline.ID,
				StageID:        stage.ID,
				ClearUnclaimed: arriving && order.PackageUnclaimed,
			})
		case placement.StageID != stage.ID:
			result.corrections = append(result.corrections, Correction{
				PlacementID:    placement.ID,
				EntityType:     store.EntityOrder,
				EntityID:       order.ID,
				PipelineID:     pc.Pipeline.ID,
				StageID:        stage.ID,
				ClearUnclaimed: arriving && order.PackageUnclaimed,
			})
		case arriving && order.PackageUnclaimed:
			result.corrections = append(result.corrections, Correction{
				EntityType:     store.EntityOrder,
				EntityID:       order.ID,
				PipelineID:     pc.Pipeline.ID,
				ClearUnclaimed: true,
			})
		}

		result.items = append(result.items, newOrderItem(pc, snap, order, stage))
	}
	return result, nil
}

// frontDeskVisible: explicitly placed here, any direct flag set, a tray active
// in a department, or the lead carries a department tag.
func frontDeskVisible(pc *Context, snap *Snapshot, order *store.Order) bool {
	if snap.Placement(store.EntityOrder, order.ID, pc.Pipeline.ID) != nil {
		return true
	}
	if order.CourierSent || order.OfficeDirect {
		return true
	}
	if orderHasTrayInDepartment(pc, snap, order) {
		return true
	}
	return leadHasDepartmentTag(pc, snap, order.LeadID)
}

// frontDeskStage walks the eight-way ladder top to bottom.
func frontDeskStage(pc *Context, snap *Snapshot, order *store.Order, outcomes map[string]Outcome) (store.Stage, bool) {
	trays := snap.TraysByOrder[order.ID]

	// Archival markers override every other rule.
	if order.Status == store.OrderArchived || anyTrayArchived(trays) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageArchived); ok {
			return stage, true
		}
	}

	if shipping := latestEvent(snap, store.EntityOrder, order.ID, store.EventReadyToShip, store.EventSelfPickup); shipping.Defined() {
		kind := match.StageReadyToShip
		if shipping.EventType == store.EventSelfPickup {
			kind = match.StageSelfPickup
		}
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, kind); ok {
			return stage, true
		}
	}

	if timestampActive(order.NoAnswerAt, pc.Now) || leadHasNoAnswerTag(snap, order.LeadID) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageNoAnswer); ok {
			return stage, true
		}
	}

	allValidated := allTraysValidated(trays, outcomes)
	allFinalized := allTraysFinalized(trays)

	if invoice := latestEvent(snap, store.EntityOrder, order.ID, store.EventReadyToInvoice); invoice.Defined() || (allFinalized && allValidated) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageReadyToInvoice); ok {
			return stage, true
		}
	}

	if anyTrayStatus(trays, store.TrayWaiting) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageWaiting); ok {
			return stage, true
		}
	}

	if anyTrayStatus(trays, store.TrayInProgress) || (allFinalized && !allValidated) {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageInProgress); ok {
			return stage, true
		}
	}

	arrived := latestEvent(snap, store.EntityOrder, order.ID, store.EventPackageArrived).Defined() || order.PackageUnclaimed
	if !arrived {
		// Fallback: routed to a department but not fully validated yet.
		arrived = orderHasTrayInDepartment(pc, snap, order) && !allValidated
	}
	if arrived {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageArrived); ok {
			return stage, true
		}
	}

	if order.CourierSent {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageCourierSent); ok {
			return stage, true
		}
	}
	if order.OfficeDirect {
		if stage, ok := pc.StageByKind(pc.Pipeline.ID, match.StageOfficeDirect); ok {
			return stage, true
		}
	}

	if placement := snap.Placement(store.EntityOrder, order.ID, pc.Pipeline.ID); placement != nil {
		if stage, ok := pc.StageByID(placement.StageID); ok {
			return stage, true
		}
	}
	return pc.DefaultStage(pc.Pipeline.ID)
}

func orderHasTrayInDepartment(pc *Context, snap *Snapshot, order *store.Order) bool {
	for _, tray := range snap.TraysByOrder[order.ID] {
		for _, p := range snap.EntityPlacements(store.EntityTray, tray.ID) {
			if snap.PipelineKind(p.PipelineID) == match.PipelineDepartment {
				return true
			}
		}
	}
	return false
}

// leadHasDepartmentTag reports whether a lead carries a reserved department
// marker matching any department pipeline's name.
func leadHasDepartmentTag(pc *Context, snap *Snapshot, leadID string) bool {
	tags := snap.TagsByLead[leadID]
	if len(tags) == 0 {
		return false
	}
	for _, dept := range pc.DepartmentPipelines() {
		for _, tag := range tags {
			if match.Normalize(tag.Name) == match.Normalize(dept.Name) {
				return true
			}
		}
	}
	return false
}

func leadHasNoAnswerTag(snap *Snapshot, leadID string) bool {
	for _, tag := range snap.TagsByLead[leadID] {
		if match.ClassifyStage(tag.Name) == match.StageNoAnswer {
			return true
		}
	}
	return false
}

func anyTrayArchived(trays []*store.Tray) bool {
	for _, tray := range trays {
		if tray.Archived() {
			return true
		}
	}
	return false
}

func anyTrayStatus(trays []*store.Tray, status string) bool {
	for _, tray := range trays {
		if tray.Status == status {
			return true
		}
	}
	return false
}

func allTraysFinalized(trays []*store.Tray) bool {
	if len(trays) == 0 {
		return false
	}
	for _, tray := range trays {
		if tray.Status != store.TrayFinalized {
			return false
		}
	}
	return true
}

// allTraysValidated is false if any sibling tray is waiting or in progress,
// regardless of assignment; only a full set of validated outcomes counts.
func allTraysValidated(trays []*store.Tray, outcomes map[string]Outcome) bool {
	if len(trays) == 0 {
		return false
	}
	for _, tray := range trays {
		outcome := outcomes[tray.ID]
		if outcome.EventType != store.EventQualityValidated {
			return false
		}
	}
	return true
}
