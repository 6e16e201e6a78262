package match

// PipelineKind is the closed set of board kinds the engine can project.
type PipelineKind string

const (
	PipelineQuality    PipelineKind = "quality"
	PipelineFrontDesk  PipelineKind = "front_desk"
	PipelineCourier    PipelineKind = "courier"
	PipelineSales      PipelineKind = "sales"
	PipelineDepartment PipelineKind = "department"
)

// ClassifyPipeline maps a pipeline name to its kind. Evaluation order is the
// dispatch priority: quality, front desk, courier, sales; anything else is a
// named department queue.
func ClassifyPipeline(name string) PipelineKind {
	n := Normalize(name)
	switch {
	case containsAny(n, "quality", "review", "calitate"):
		return PipelineQuality
	case containsAny(n, "front desk", "front-desk", "reception", "receptie"):
		return PipelineFrontDesk
	case containsAny(n, "courier", "curier", "delivery"):
		return PipelineCourier
	case containsAny(n, "sales", "leads", "vanzari"):
		return PipelineSales
	default:
		return PipelineDepartment
	}
}

// StageKind is the closed set of stage roles the strategies recognize inside a
// pipeline. StageOther covers working stages with no special meaning.
type StageKind string

const (
	StageNew            StageKind = "new"
	StageCallback       StageKind = "callback"
	StageNoAnswer       StageKind = "no_answer"
	StageNoDeal         StageKind = "no_deal"
	StageHasOrder       StageKind = "has_order"
	StageArrivedToday   StageKind = "arrived_today"
	StageArchived       StageKind = "archived"
	StageForeign        StageKind = "foreign"
	StageWaiting        StageKind = "waiting"
	StageInProgress     StageKind = "in_progress"
	StageReadyToShip    StageKind = "ready_to_ship"
	StageSelfPickup     StageKind = "self_pickup"
	StageReadyToInvoice StageKind = "ready_to_invoice"
	StageArrived        StageKind = "arrived"
	StageCourierSent    StageKind = "courier_sent"
	StageOfficeDirect   StageKind = "office_direct"
	StageDelivered      StageKind = "delivered"
	StageOther          StageKind = "other"
)

// stageRules is evaluated top to bottom; the first hit wins. More specific
// phrases must precede their substrings ("no deal" before "deal", "ready to
// ship" before "ready").
var stageRules = []struct {
	kind     StageKind
	keywords []string
}{
	{StageArrivedToday, []string{"arrived today", "today"}},
	{StageArchived, []string{"archiv", "arhiv"}},
	{StageNoDeal, []string{"no deal", "no-deal", "lost", "refuz"}},
	{StageNoAnswer, []string{"no answer", "no-answer", "nu raspunde"}},
	{StageCallback, []string{"callback", "call back", "revenire"}},
	{StageHasOrder, []string{"has order", "ordered", "comanda"}},
	{StageForeign, []string{"foreign", "abroad", "strain"}},
	{StageReadyToShip, []string{"ready to ship", "ship", "expediere"}},
	{StageSelfPickup, []string{"self pickup", "self-pickup", "pickup", "ridicare"}},
	{StageReadyToInvoice, []string{"ready to invoice", "invoice", "facturare"}},
	{StageCourierSent, []string{"courier sent", "curier trimis", "sent"}},
	{StageOfficeDirect, []string{"office direct", "direct"}},
	{StageDelivered, []string{"delivered", "livrat"}},
	{StageArrived, []string{"arrived", "unclaimed", "sosit"}},
	{StageWaiting, []string{"waiting", "asteptare", "on hold"}},
	{StageInProgress, []string{"in progress", "in work", "in lucru", "working"}},
	{StageNew, []string{"new", "untouched", "incoming", "nou", "neprocesat"}},
}

// ClassifyStage maps a stage name to its role within a pipeline.
func ClassifyStage(name string) StageKind {
	n := Normalize(name)
	for _, rule := range stageRules {
		if containsAny(n, rule.keywords...) {
			return rule.kind
		}
	}
	return StageOther
}
