package board

import (
	"workboard/api/internal/store"
)

// Transformers turn a raw entity plus its resolved stage, tags and aggregates
// into a display item. No business rules live here; the strategy has already
// decided the stage.

func trayTotals(snap *Snapshot, trayID string) (money int64, minutes int) {
	for _, item := range snap.ItemsByTray[trayID] {
		price := snap.PriceByID[item.ServiceID]
		if price == nil {
			continue
		}
		money += price.PriceCents * int64(item.Quantity)
		minutes += price.DurationMin * item.Quantity
	}
	return money, minutes
}

func orderTotals(snap *Snapshot, orderID string) (money int64, minutes int) {
	for _, tray := range snap.TraysByOrder[orderID] {
		m, d := trayTotals(snap, tray.ID)
		money += m
		minutes += d
	}
	return money, minutes
}

func leadTagNames(snap *Snapshot, leadID string, urgent bool) []string {
	var names []string
	hasUrgent := false
	for _, tag := range snap.TagsByLead[leadID] {
		names = append(names, tag.Name)
		if tag.Name == store.TagUrgent {
			hasUrgent = true
		}
	}
	if urgent && !hasUrgent {
		names = append(names, store.TagUrgent)
	}
	return names
}

func technicianNames(pc *Context, ids []string) []string {
	var names []string
	for _, id := range ids {
		if name, ok := pc.Technicians[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

func newLeadItem(pc *Context, snap *Snapshot, lead *store.Lead, stage store.Stage) Item {
	var money int64
	var minutes int
	for _, order := range snap.OrdersByLead[lead.ID] {
		m, d := orderTotals(snap, order.ID)
		money += m
		minutes += d
	}
	return Item{
		EntityType:   store.EntityLead,
		EntityID:     lead.ID,
		Title:        lead.Name,
		StageID:      stage.ID,
		StageName:    stage.Name,
		PipelineID:   pc.Pipeline.ID,
		PipelineName: pc.Pipeline.Name,
		Tags:         leadTagNames(snap, lead.ID, false),
		MoneyTotal:   money,
		EstimatedMin: minutes,
	}
}

func newOrderItem(pc *Context, snap *Snapshot, order *store.Order, stage store.Stage, annotations ...string) Item {
	money, minutes := orderTotals(snap, order.ID)
	var title string
	var tags []string
	if lead := snap.LeadByID[order.LeadID]; lead != nil {
		title = lead.Name
		tags = leadTagNames(snap, order.LeadID, order.Urgent)
	} else if order.Urgent {
		tags = []string{store.TagUrgent}
	}
	var technicians []string
	for _, tray := range snap.TraysByOrder[order.ID] {
		technicians = append(technicians, technicianNames(pc, tray.TechnicianIDs)...)
	}
	return Item{
		EntityType:   store.EntityOrder,
		EntityID:     order.ID,
		Title:        title,
		StageID:      stage.ID,
		StageName:    stage.Name,
		PipelineID:   pc.Pipeline.ID,
		PipelineName: pc.Pipeline.Name,
		Tags:         tags,
		Technicians:  dedupe(technicians),
		MoneyTotal:   money,
		EstimatedMin: minutes,
		Annotations:  annotations,
	}
}

func newTrayItem(pc *Context, snap *Snapshot, tray *store.Tray, stage store.Stage, readOnly bool, annotations ...string) Item {
	money, minutes := trayTotals(snap, tray.ID)
	var tags []string
	title := tray.Number
	if order := snap.OrderByID[tray.OrderID]; order != nil {
		if lead := snap.LeadByID[order.LeadID]; lead != nil {
			title = tray.Number + " · " + lead.Name
			tags = leadTagNames(snap, order.LeadID, order.Urgent)
		}
	}
	return Item{
		EntityType:   store.EntityTray,
		EntityID:     tray.ID,
		Title:        title,
		StageID:      stage.ID,
		StageName:    stage.Name,
		PipelineID:   pc.Pipeline.ID,
		PipelineName: pc.Pipeline.Name,
		Tags:         tags,
		Technicians:  technicianNames(pc, tray.TechnicianIDs),
		MoneyTotal:   money,
		EstimatedMin: minutes,
		ReadOnly:     readOnly,
		Annotations:  annotations,
	}
}

func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
