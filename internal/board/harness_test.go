package board

import (
	"time"

	"workboard/api/internal/store"
)

// Fixed clock for every board test.
var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

const (
	pipeSales   = "pl-sales"
	pipeDesk    = "pl-desk"
	pipeCourier = "pl-courier"
	pipeCeramic = "pl-ceramics"
	pipeMetal   = "pl-metal"
	pipeQuality = "pl-quality"
)

func testPipelines() []store.Pipeline {
	return []store.Pipeline{
		{ID: pipeSales, Name: "Sales"},
		{ID: pipeDesk, Name: "Front Desk"},
		{ID: pipeCourier, Name: "Courier"},
		{ID: pipeCeramic, Name: "Ceramics"},
		{ID: pipeMetal, Name: "Metal Shop"},
		{ID: pipeQuality, Name: "Quality Review"},
	}
}

func testStages() []store.Stage {
	names := map[string][]string{
		pipeSales:   {"New", "Callback", "No Answer", "Has Order", "Arrived Today", "Foreign", "No Deal", "Archived"},
		pipeDesk:    {"New", "Courier Sent", "Office Direct", "Arrived", "Waiting", "In Progress", "Ready to Invoice", "Ready to Ship", "Self Pickup", "No Answer", "Archived"},
		pipeCourier: {"New", "Courier Sent", "Delivered"},
		pipeCeramic: {"New", "In Progress"},
		pipeMetal:   {"New"},
		pipeQuality: {"New", "Ceramics", "Metal Shop"},
	}
	var stages []store.Stage
	for _, pipelineID := range []string{pipeSales, pipeDesk, pipeCourier, pipeCeramic, pipeMetal, pipeQuality} {
		for i, name := range names[pipelineID] {
			stages = append(stages, store.Stage{
				ID:         pipelineID + "/" + name,
				PipelineID: pipelineID,
				Name:       name,
				SortOrder:  i,
			})
		}
	}
	return stages
}

// newSnapshot builds an indexed snapshot over the standard pipelines and
// stages plus whatever the test appends.
func newSnapshot(mutate func(*Snapshot)) *Snapshot {
	snap := &Snapshot{
		Pipelines:   testPipelines(),
		Stages:      testStages(),
		Technicians: map[string]string{"tech-ana": "Ana", "tech-bogdan": "Bogdan"},
	}
	if mutate != nil {
		mutate(snap)
	}
	snap.index()
	return snap
}

func testContext(snap *Snapshot, pipelineID string, opts Options) *Context {
	if opts.Now.IsZero() {
		opts.Now = testNow
	}
	var pipeline store.Pipeline
	for _, p := range snap.Pipelines {
		if p.ID == pipelineID {
			pipeline = p
		}
	}
	return buildContext(pipeline, snap, opts)
}

func stageID(pipelineID, name string) string {
	return pipelineID + "/" + name
}

func hoursAgo(h int) time.Time {
	return testNow.Add(-time.Duration(h) * time.Hour)
}

func hoursAhead(h int) *time.Time {
	t := testNow.Add(time.Duration(h) * time.Hour)
	return &t
}

func placementAt(entityType store.EntityType, entityID, pipelineID, stage string, updatedAt time.Time) store.Placement {
	return store.Placement{
		ID:         "plc-" + entityID + "-" + pipelineID,
		EntityType: entityType,
		EntityID:   entityID,
		PipelineID: pipelineID,
		StageID:    stageID(pipelineID, stage),
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	}
}

func event(entityType store.EntityType, entityID, eventType string, at time.Time) store.Event {
	return store.Event{
		ID:         "evt-" + entityID + "-" + eventType + at.Format("150405"),
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		CreatedAt:  at,
	}
}

func findItem(items []Item, entityID string) *Item {
	for i := range items {
		if items[i].EntityID == entityID {
			return &items[i]
		}
	}
	return nil
}
