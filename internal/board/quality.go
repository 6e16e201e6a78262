package board

import (
	"workboard/api/internal/match"
	"workboard/api/internal/store"
)

// projectQuality materializes a virtual placement for every tray currently
// finalized in a department, mapped onto the quality pipeline's stages. No
// corrective writes: quality items are display-only and read-only, and the
// fold over quality events decides when a tray leaves the board.
func projectQuality(pc *Context, snap *Snapshot) (plan, error) {
	var result plan
	outcomes := qualityOutcomes(snap)

	for i := range snap.Trays {
		tray := &snap.Trays[i]
		if tray.Status != store.TrayFinalized {
			continue
		}
		// Trays mid-split never reach quality review.
		if tray.SplitFromID != nil || len(snap.SplitTargets[tray.ID]) > 0 {
			continue
		}
		// Validated trays are excluded until a later finalized transition
		// brings them back.
		if outcome := outcomes[tray.ID]; outcome.EventType == store.EventQualityValidated && !tray.UpdatedAt.After(outcome.At) {
			continue
		}

		stage, ok := qualityStageFor(pc, snap, tray)
		if !ok {
			continue
		}
		result.items = append(result.items, newTrayItem(pc, snap, tray, stage, true))
	}
	return result, nil
}

// qualityStageFor maps a tray's department to a quality stage: exact
// normalized name match first, then keyword containment in configured order,
// else the pipeline's default stage. Ambiguity resolves to the first match in
// stage order rather than dropping the card.
func qualityStageFor(pc *Context, snap *Snapshot, tray *store.Tray) (store.Stage, bool) {
	dept := trayDepartmentName(pc, snap, tray)
	if dept == "" {
		return pc.DefaultStage(pc.Pipeline.ID)
	}

	deptNorm := match.Normalize(dept)
	stages := pc.Stages[pc.Pipeline.ID]
	for _, stage := range stages {
		if match.Normalize(stage.Name) == deptNorm {
			return stage, true
		}
	}
	for _, stage := range stages {
		if match.Contains(stage.Name, dept) || match.Contains(dept, stage.Name) {
			return stage, true
		}
	}
	return pc.DefaultStage(pc.Pipeline.ID)
}

// trayDepartmentName finds the department the tray was finalized in: its
// placement in a department pipeline, else the department its line items
// route to.
func trayDepartmentName(pc *Context, snap *Snapshot, tray *store.Tray) string {
	for _, p := range snap.EntityPlacements(store.EntityTray, tray.ID) {
		for _, pipeline := range pc.Pipelines {
			if pipeline.ID == p.PipelineID && match.ClassifyPipeline(pipeline.Name) == match.PipelineDepartment {
				return pipeline.Name
			}
		}
	}
	for _, item := range snap.ItemsByTray[tray.ID] {
		if price := snap.PriceByID[item.ServiceID]; price != nil && price.DepartmentTag != "" {
			return price.DepartmentTag
		}
	}
	return ""
}
