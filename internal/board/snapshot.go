package board

import (
	"context"

	"golang.org/x/sync/errgroup"

	"workboard/api/internal/match"
	"workboard/api/internal/store"
)

// Fetcher is the read-only boundary the engine consumes. Implemented by
// store.PostgresStore; tests supply fakes.
type Fetcher interface {
	ListPipelines(ctx context.Context) ([]store.Pipeline, error)
	ListStages(ctx context.Context) ([]store.Stage, error)
	ListPlacements(ctx context.Context) ([]store.Placement, error)
	ListLeads(ctx context.Context) ([]store.Lead, error)
	ListOrders(ctx context.Context) ([]store.Order, error)
	ListTrays(ctx context.Context) ([]store.Tray, error)
	ListTrayItems(ctx context.Context) ([]store.TrayItem, error)
	ListServicePrices(ctx context.Context) ([]store.ServicePrice, error)
	ListLeadTags(ctx context.Context) ([]store.LeadTag, error)
	ListEvents(ctx context.Context, eventTypes []string) ([]store.Event, error)
	ListTechnicians(ctx context.Context) ([]store.Technician, error)
}

// Writer receives the engine's corrective writes. May be nil for a read-only
// projection.
type Writer interface {
	UpdatePlacementStages(ctx context.Context, placementIDs []string, stageID string) error
	UpdatePlacementStage(ctx context.Context, placementID, stageID string) error
	InsertPlacement(ctx context.Context, p store.Placement) error
	ClearPackageUnclaimed(ctx context.Context, orderIDs []string) error
}

// engineEventTypes are the only event types the strategies fold over.
var engineEventTypes = []string{
	store.EventQualityValidated,
	store.EventQualityRejected,
	store.EventCourierSent,
	store.EventOfficeDirect,
	store.EventReadyToShip,
	store.EventSelfPickup,
	store.EventReadyToInvoice,
	store.EventPackageArrived,
	store.EventPackageDelivered,
}

type placementKey struct {
	entityType store.EntityType
	entityID   string
	pipelineID string
}

// Snapshot is a point-in-time read of everything the strategies need, plus
// derived indexes. Immutable once built.
type Snapshot struct {
	Pipelines  []store.Pipeline
	Stages     []store.Stage
	Placements []store.Placement
	Leads      []store.Lead
	Orders     []store.Order
	Trays      []store.Tray
	TrayItems  []store.TrayItem
	Prices     []store.ServicePrice
	LeadTags   []store.LeadTag
	Events     []store.Event

	StagesByPipeline   map[string][]store.Stage
	PlacementByKey     map[placementKey]*store.Placement
	PlacementsByEntity map[string][]*store.Placement
	LeadByID           map[string]*store.Lead
	OrderByID          map[string]*store.Order
	TrayByID           map[string]*store.Tray
	OrdersByLead       map[string][]*store.Order
	TraysByOrder       map[string][]*store.Tray
	ItemsByTray        map[string][]store.TrayItem
	TagsByLead         map[string][]store.Tag
	PriceByID          map[string]*store.ServicePrice
	Technicians        map[string]string
	SplitTargets       map[string][]*store.Tray
}

// loadSnapshot fans out the batch reads concurrently, then builds the indexes
// synchronously. Any fetch failure fails the whole snapshot: the caller shows
// an empty board plus the error.
func loadSnapshot(ctx context.Context, fetcher Fetcher) (*Snapshot, error) {
	snap := &Snapshot{}
	var technicians []store.Technician

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { snap.Pipelines, err = fetcher.ListPipelines(gctx); return })
	g.Go(func() (err error) { snap.Stages, err = fetcher.ListStages(gctx); return })
	g.Go(func() (err error) { snap.Placements, err = fetcher.ListPlacements(gctx); return })
	g.Go(func() (err error) { snap.Leads, err = fetcher.ListLeads(gctx); return })
	g.Go(func() (err error) { snap.Orders, err = fetcher.ListOrders(gctx); return })
	g.Go(func() (err error) { snap.Trays, err = fetcher.ListTrays(gctx); return })
	g.Go(func() (err error) { snap.TrayItems, err = fetcher.ListTrayItems(gctx); return })
	g.Go(func() (err error) { snap.Prices, err = fetcher.ListServicePrices(gctx); return })
	g.Go(func() (err error) { snap.LeadTags, err = fetcher.ListLeadTags(gctx); return })
	g.Go(func() (err error) { snap.Events, err = fetcher.ListEvents(gctx, engineEventTypes); return })
	g.Go(func() (err error) { technicians, err = fetcher.ListTechnicians(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.Technicians = make(map[string]string, len(technicians))
	for _, tech := range technicians {
		snap.Technicians[tech.ID] = tech.DisplayName
	}
	snap.index()
	return snap, nil
}

func (s *Snapshot) index() {
	s.StagesByPipeline = make(map[string][]store.Stage)
	for _, stage := range s.Stages {
		s.StagesByPipeline[stage.PipelineID] = append(s.StagesByPipeline[stage.PipelineID], stage)
	}

	s.PlacementByKey = make(map[placementKey]*store.Placement, len(s.Placements))
	s.PlacementsByEntity = make(map[string][]*store.Placement)
	for i := range s.Placements {
		p := &s.Placements[i]
		s.PlacementByKey[placementKey{p.EntityType, p.EntityID, p.PipelineID}] = p
		ek := entityKey(p.EntityType, p.EntityID)
		s.PlacementsByEntity[ek] = append(s.PlacementsByEntity[ek], p)
	}

	s.LeadByID = make(map[string]*store.Lead, len(s.Leads))
	for i := range s.Leads {
		s.LeadByID[s.Leads[i].ID] = &s.Leads[i]
	}
	s.OrderByID = make(map[string]*store.Order, len(s.Orders))
	s.OrdersByLead = make(map[string][]*store.Order)
	for i := range s.Orders {
		o := &s.Orders[i]
		s.OrderByID[o.ID] = o
		s.OrdersByLead[o.LeadID] = append(s.OrdersByLead[o.LeadID], o)
	}
	s.TrayByID = make(map[string]*store.Tray, len(s.Trays))
	s.TraysByOrder = make(map[string][]*store.Tray)
	s.SplitTargets = make(map[string][]*store.Tray)
	for i := range s.Trays {
		t := &s.Trays[i]
		s.TrayByID[t.ID] = t
		s.TraysByOrder[t.OrderID] = append(s.TraysByOrder[t.OrderID], t)
		if t.SplitFromID != nil {
			s.SplitTargets[*t.SplitFromID] = append(s.SplitTargets[*t.SplitFromID], t)
		}
	}
	s.ItemsByTray = make(map[string][]store.TrayItem)
	for _, item := range s.TrayItems {
		s.ItemsByTray[item.TrayID] = append(s.ItemsByTray[item.TrayID], item)
	}
	s.TagsByLead = make(map[string][]store.Tag)
	for _, lt := range s.LeadTags {
		s.TagsByLead[lt.LeadID] = append(s.TagsByLead[lt.LeadID], lt.Tag)
	}
	s.PriceByID = make(map[string]*store.ServicePrice, len(s.Prices))
	for i := range s.Prices {
		s.PriceByID[s.Prices[i].ID] = &s.Prices[i]
	}
}

func entityKey(entityType store.EntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}

// Placement returns the persisted placement of an entity in a pipeline, or nil.
func (s *Snapshot) Placement(entityType store.EntityType, entityID, pipelineID string) *store.Placement {
	return s.PlacementByKey[placementKey{entityType, entityID, pipelineID}]
}

// EntityPlacements returns all placements of one entity across pipelines.
func (s *Snapshot) EntityPlacements(entityType store.EntityType, entityID string) []*store.Placement {
	return s.PlacementsByEntity[entityKey(entityType, entityID)]
}

// PipelineKind returns the classified kind of a pipeline in the snapshot.
func (s *Snapshot) PipelineKind(pipelineID string) match.PipelineKind {
	for _, p := range s.Pipelines {
		if p.ID == pipelineID {
			return match.ClassifyPipeline(p.Name)
		}
	}
	return match.PipelineDepartment
}
