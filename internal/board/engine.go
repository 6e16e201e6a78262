package board

import (
	"context"
	"errors"
	"log"
	"time"

	"workboard/api/internal/match"
	"workboard/api/internal/store"
	"workboard/api/internal/util"
)

// ErrPipelineNotFound is returned when the requested pipeline is not in the
// snapshot; distinct from a fetch failure.
var ErrPipelineNotFound = errors.New("pipeline not found")

// Options carries the acting-user context of one projection call. Privilege
// is resolved by the caller from storage on every call, never cached here.
type Options struct {
	ActingUserID string
	Privileged   bool
	// Now pins the clock for deterministic tests; zero means wall clock.
	Now time.Time
}

// Engine projects boards from snapshots. Stateless: every call loads a fresh
// snapshot, and nothing survives between calls.
type Engine struct {
	fetcher Fetcher
	writer  Writer
}

func New(fetcher Fetcher, writer Writer) *Engine {
	return &Engine{fetcher: fetcher, writer: writer}
}

type strategyFunc func(pc *Context, snap *Snapshot) (plan, error)

// strategies in fixed dispatch priority. The first kind match wins; the sales
// strategy is the universal fallback.
var strategies = []struct {
	kind match.PipelineKind
	fn   strategyFunc
}{
	{match.PipelineQuality, projectQuality},
	{match.PipelineFrontDesk, projectFrontDesk},
	{match.PipelineCourier, projectCourier},
	{match.PipelineDepartment, projectDepartment},
	{match.PipelineSales, projectSales},
}

func selectStrategy(kind match.PipelineKind) strategyFunc {
	for _, s := range strategies {
		if s.kind == kind {
			return s.fn
		}
	}
	return projectSales
}

// Project computes the ordered display list for one pipeline. Corrective
// writes are applied after all reads; their failure never hides or misplaces
// a card, the computed stages are returned regardless.
func (e *Engine) Project(ctx context.Context, pipelineID string, opts Options) ([]Item, error) {
	snap, err := loadSnapshot(ctx, e.fetcher)
	if err != nil {
		return nil, err
	}
	return e.projectSnapshot(ctx, snap, pipelineID, opts)
}

// ProjectSingle computes the display item for one entity in one pipeline.
// Returns (nil, nil) when the entity does not surface there.
func (e *Engine) ProjectSingle(ctx context.Context, entityType store.EntityType, entityID, pipelineID string) (*Item, error) {
	snap, err := loadSnapshot(ctx, e.fetcher)
	if err != nil {
		return nil, err
	}
	// A single-card lookup projects with full visibility; the caller applies
	// its own authorization before exposing the result.
	items, err := e.projectSnapshot(ctx, snap, pipelineID, Options{Privileged: true})
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].EntityType == entityType && items[i].EntityID == entityID {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (e *Engine) projectSnapshot(ctx context.Context, snap *Snapshot, pipelineID string, opts Options) ([]Item, error) {
	var pipeline *store.Pipeline
	for i := range snap.Pipelines {
		if snap.Pipelines[i].ID == pipelineID {
			pipeline = &snap.Pipelines[i]
			break
		}
	}
	if pipeline == nil {
		return nil, ErrPipelineNotFound
	}

	pc := buildContext(*pipeline, snap, opts)
	result, err := selectStrategy(pc.Kind)(pc, snap)
	if err != nil {
		return nil, err
	}

	e.applyCorrections(ctx, result.corrections)

	sortItems(result.items, pc.StageOrder())
	return result.items, nil
}

// applyCorrections groups stage updates by target stage into one batch write
// per stage. A failed batch falls back to one-row-at-a-time writes so one bad
// row never blocks the rest; failures are logged and otherwise ignored.
func (e *Engine) applyCorrections(ctx context.Context, corrections []Correction) {
	if e.writer == nil || len(corrections) == 0 {
		return
	}

	byStage := make(map[string][]string)
	var clearOrders []string
	for _, c := range corrections {
		if c.ClearUnclaimed && c.EntityType == store.EntityOrder {
			clearOrders = append(clearOrders, c.EntityID)
		}
		if c.StageID == "" {
			continue
		}
		if c.PlacementID == "" {
			err := e.writer.InsertPlacement(ctx, store.Placement{
				ID:         util.NewID("plc"),
				EntityType: c.EntityType,
				EntityID:   c.EntityID,
				PipelineID: c.PipelineID,
				StageID:    c.StageID,
			})
			if err != nil {
				log.Printf("board: insert placement for %s %s: %v", c.EntityType, c.EntityID, err)
			}
			continue
		}
		byStage[c.StageID] = append(byStage[c.StageID], c.PlacementID)
	}

	for stageID, placementIDs := range byStage {
		if err := e.writer.UpdatePlacementStages(ctx, placementIDs, stageID); err != nil {
			log.Printf("board: batch stage correction to %s failed, retrying per row: %v", stageID, err)
			for _, placementID := range placementIDs {
				if err := e.writer.UpdatePlacementStage(ctx, placementID, stageID); err != nil {
					log.Printf("board: stage correction %s -> %s: %v", placementID, stageID, err)
				}
			}
		}
	}

	if len(clearOrders) > 0 {
		if err := e.writer.ClearPackageUnclaimed(ctx, clearOrders); err != nil {
			log.Printf("board: clear package-unclaimed: %v", err)
		}
	}
}
