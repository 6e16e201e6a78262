package board

import (
	"workboard/api/internal/match"
	"workboard/api/internal/store"
)

// projectDepartment projects trays onto a department queue. A non-privileged
// user sees only trays that are unassigned, assigned to them, or part of a
// multi-way split; a privileged user sees everything routed to the
// department, auto-materializing a placement in the "new" stage for routed
// trays that have none.
func projectDepartment(pc *Context, snap *Snapshot) (plan, error) {
	var result plan

	// Visibility safety: without a resolved acting user we return an empty
	// board rather than guess. Privileged projections never filter by user,
	// so the guard only applies when assignment filtering would be needed.
	if pc.ActingUserID == "" && !pc.Privileged {
		return result, nil
	}

	newStage, hasNewStage := pc.DefaultStage(pc.Pipeline.ID)
	if !hasNewStage {
		return result, nil
	}

	outcomes := qualityOutcomes(snap)

	for i := range snap.Trays {
		tray := &snap.Trays[i]

		placement := snap.Placement(store.EntityTray, tray.ID, pc.Pipeline.ID)
		materialized := false
		if placement == nil {
			// Only privileged users see routed-but-unplaced trays; the
			// projection then persists the missing placement.
			if !pc.Privileged || !trayRoutedHere(pc, snap, tray) {
				continue
			}
			materialized = true
		}

		// Graduated: validated while finalized means the tray left the
		// department; it reappears only if it is reworked.
		if tray.Status == store.TrayFinalized && outcomes[tray.ID].EventType == store.EventQualityValidated {
			continue
		}

		if !pc.Privileged && !trayVisibleTo(snap, tray, pc.ActingUserID) {
			continue
		}

		stage := newStage
		if placement != nil {
			if resolved, ok := pc.StageByID(placement.StageID); ok && resolved.PipelineID == pc.Pipeline.ID {
				stage = resolved
			}
		}

		var annotations []string
		readOnly := false
		if tray.SplitFromID != nil {
			// Split targets surface in the receiver's new stage without
			// touching their real placement.
			stage = newStage
			readOnly = true
			if sender := snap.TrayByID[*tray.SplitFromID]; sender != nil {
				annotations = append(annotations, "from "+sender.Number)
			}
		} else if materialized {
			result.corrections = append(result.corrections, Correction{
				EntityType: store.EntityTray,
				EntityID:   tray.ID,
				PipelineID: pc.Pipeline.ID,
				StageID:    newStage.ID,
			})
		}

		result.items = append(result.items, newTrayItem(pc, snap, tray, stage, readOnly, annotations...))
	}
	return result, nil
}

// trayRoutedHere derives department routing from the tray's pending line
// items: any item whose service carries this department's tag routes the
// whole tray here.
func trayRoutedHere(pc *Context, snap *Snapshot, tray *store.Tray) bool {
	dept := match.Normalize(pc.Pipeline.Name)
	for _, item := range snap.ItemsByTray[tray.ID] {
		price := snap.PriceByID[item.ServiceID]
		if price == nil || price.DepartmentTag == "" {
			continue
		}
		if match.Normalize(price.DepartmentTag) == dept {
			return true
		}
	}
	return false
}

// trayVisibleTo implements the non-privileged filter: unassigned, assigned to
// the acting user, or part of a multi-way split.
func trayVisibleTo(snap *Snapshot, tray *store.Tray, userID string) bool {
	if len(tray.TechnicianIDs) == 0 {
		return true
	}
	for _, id := range tray.TechnicianIDs {
		if id == userID {
			return true
		}
	}
	if tray.SplitFromID != nil || len(snap.SplitTargets[tray.ID]) > 0 {
		return true
	}
	return false
}
