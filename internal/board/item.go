// Package board computes, per entity and per pipeline, which stage to display.
//
// Nothing here is persisted: the engine consumes a point-in-time snapshot and
// produces display items, optionally issuing idempotent corrective writes to
// the placement store. Each pipeline kind has one pure strategy function; the
// dispatcher picks exactly one per call.
package board

import (
	"sort"

	"workboard/api/internal/store"
)

// Item is a single card on a board. Never persisted.
type Item struct {
	EntityType   store.EntityType `json:"entityType"`
	EntityID     string           `json:"entityId"`
	Title        string           `json:"title"`
	StageID      string           `json:"stageId"`
	StageName    string           `json:"stageName"`
	PipelineID   string           `json:"pipelineId"`
	PipelineName string           `json:"pipelineName"`
	Tags         []string         `json:"tags,omitempty"`
	Technicians  []string         `json:"technicians,omitempty"`
	MoneyTotal   int64            `json:"moneyTotal"`
	EstimatedMin int              `json:"estimatedMin"`
	ReadOnly     bool             `json:"readOnly"`
	Annotations  []string         `json:"annotations,omitempty"`
}

// Correction is a pending corrective write against the placement store. An
// empty PlacementID means the entity had no placement and one is inserted.
type Correction struct {
	PlacementID    string
	EntityType     store.EntityType
	EntityID       string
	PipelineID     string
	StageID        string
	ClearUnclaimed bool
}

// plan is a strategy's output: the display items plus the corrective writes
// the engine applies once all reads are done.
type plan struct {
	items       []Item
	corrections []Correction
}

// sortItems orders cards by stage order, pinned cards first within a stage,
// then by entity id for a stable board.
func sortItems(items []Item, stageOrder map[string]int) {
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := stageOrder[items[i].StageID], stageOrder[items[j].StageID]
		if oi != oj {
			return oi < oj
		}
		pi, pj := hasPinnedTag(items[i]), hasPinnedTag(items[j])
		if pi != pj {
			return pi
		}
		return items[i].EntityID < items[j].EntityID
	})
}

func hasPinnedTag(item Item) bool {
	for _, tag := range item.Tags {
		if tag == store.TagPinned {
			return true
		}
	}
	return false
}
