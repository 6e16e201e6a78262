package store

import (
	"encoding/json"
	"strings"
	"time"
)

// EntityType discriminates what a placement or event points at.
type EntityType string

const (
	EntityLead  EntityType = "lead"
	EntityOrder EntityType = "order"
	EntityTray  EntityType = "tray"
)

type Pipeline struct {
	ID   string
	Name string
}

type Stage struct {
	ID         string
	PipelineID string
	Name       string
	SortOrder  int
}

// Placement is the only durable record of a card's location. It may be absent
// (virtual items) or stale (the engine issues corrective writes).
type Placement struct {
	ID         string
	EntityType EntityType
	EntityID   string
	PipelineID string
	StageID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Lead struct {
	ID         string
	Name       string
	Phone      string
	NoDeal     bool
	CallbackAt *time.Time
	NoAnswerAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order statuses. Archived is terminal; Ordered is what pulls the lead card
// onto the Has-Order stage.
const (
	OrderDraft     = "draft"
	OrderOrdered   = "ordered"
	OrderCompleted = "completed"
	OrderArchived  = "archived"
)

type Order struct {
	ID               string
	LeadID           string
	Status           string
	CourierSent      bool
	OfficeDirect     bool
	PackageUnclaimed bool
	Urgent           bool
	CallbackAt       *time.Time
	NoAnswerAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Tray statuses. Quality validation is never stored here; it is derived from
// the event log.
const (
	TrayWaiting    = "waiting"
	TrayInProgress = "in_progress"
	TrayFinalized  = "finalized"
)

// archiveMarker in a tray number marks the tray (and its order) archived.
const archiveMarker = "-copy"

type Tray struct {
	ID            string
	OrderID       string
	Number        string
	Status        string
	TechnicianIDs []string
	SplitFromID   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Archived reports whether the tray carries the archival marker in its number.
func (t Tray) Archived() bool {
	return strings.Contains(strings.ToLower(t.Number), archiveMarker)
}

type TrayItem struct {
	ID        string
	TrayID    string
	ServiceID string
	Quantity  int
}

// ServicePrice is a price-list entry. DepartmentTag routes pending items to a
// department queue.
type ServicePrice struct {
	ID            string
	Name          string
	DepartmentTag string
	PriceCents    int64
	DurationMin   int
}

// Reserved tag names the system manages itself; department markers are also
// reserved but carry the department name.
const (
	TagUrgent = "urgent"
	TagPinned = "pinned"
)

type Tag struct {
	ID       string
	Name     string
	Reserved bool
}

// LeadTag is a tag resolved for a specific lead.
type LeadTag struct {
	LeadID string
	Tag    Tag
}

// Event types the engine folds over. Each derived status has a fixed pair of
// mutually exclusive types; the latest one per entity wins.
const (
	EventQualityValidated = "quality_validated"
	EventQualityRejected  = "quality_rejected"
	EventCourierSent      = "courier_sent"
	EventOfficeDirect     = "office_direct"
	EventReadyToShip      = "ready_to_ship"
	EventSelfPickup       = "self_pickup"
	EventReadyToInvoice   = "ready_to_invoice"
	EventPackageArrived   = "package_arrived"
	EventPackageDelivered = "package_delivered"
)

// Event is an append-only log row, authoritative for derived statuses that are
// cheaper to recompute than to denormalize.
type Event struct {
	ID         string
	EntityType EntityType
	EntityID   string
	EventType  string
	CreatedAt  time.Time
	Payload    json.RawMessage
}

type Technician struct {
	ID          string
	DisplayName string
}

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
