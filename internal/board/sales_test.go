package board

import (
	"testing"

	"workboard/api/internal/store"
)

func salesItems(t *testing.T, snap *Snapshot) []Item {
	t.Helper()
	pc := testContext(snap, pipeSales, Options{})
	result, err := projectSales(pc, snap)
	if err != nil {
		t.Fatalf("projectSales: %v", err)
	}
	if len(result.corrections) != 0 {
		t.Fatalf("sales projection must not emit corrections, got %d", len(result.corrections))
	}
	return result.items
}

func TestSalesCallbackOverridesPersistedStage(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001", CallbackAt: hoursAhead(2)}}
		s.Placements = []store.Placement{
			placementAt(store.EntityLead, "lead-1", pipeSales, "Has Order", hoursAgo(48)),
		}
	})

	items := salesItems(t, snap)
	item := findItem(items, "lead-1")
	if item == nil {
		t.Fatal("lead-1 missing from board")
	}
	if item.StageName != "Callback" {
		t.Errorf("stage = %q, want Callback", item.StageName)
	}
}

func TestSalesExpiredCallbackFallsBack(t *testing.T) {
	past := hoursAgo(2)
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001", CallbackAt: &past}}
		s.Placements = []store.Placement{
			placementAt(store.EntityLead, "lead-1", pipeSales, "Has Order", hoursAgo(48)),
		}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.StageName != "Has Order" {
		t.Errorf("stage = %q, want persisted Has Order after callback expiry", item.StageName)
	}
}

func TestSalesNoDealOutranksCallback(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001", NoDeal: true, CallbackAt: hoursAhead(5)}}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.StageName != "No Deal" {
		t.Errorf("stage = %q, want No Deal", item.StageName)
	}
}

func TestSalesDeliveryWindow(t *testing.T) {
	tests := []struct {
		name      string
		eventAge  int
		wantStage string
	}{
		{"fresh start stays on arrived today", 2, "Arrived Today"},
		{"expired window migrates to has order", 30, "Has Order"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := newSnapshot(func(s *Snapshot) {
				s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001"}}
				s.Orders = []store.Order{{ID: "ord-1", LeadID: "lead-1", Status: store.OrderDraft}}
				s.Events = []store.Event{
					event(store.EntityOrder, "ord-1", store.EventCourierSent, hoursAgo(tc.eventAge)),
				}
			})

			item := findItem(salesItems(t, snap), "lead-1")
			if item.StageName != tc.wantStage {
				t.Errorf("stage = %q, want %q", item.StageName, tc.wantStage)
			}
		})
	}
}

func TestSalesManualMoveAfterDeliveryEventIsKept(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001"}}
		s.Orders = []store.Order{{ID: "ord-1", LeadID: "lead-1", Status: store.OrderDraft}}
		s.Events = []store.Event{
			event(store.EntityOrder, "ord-1", store.EventOfficeDirect, hoursAgo(3)),
		}
		// Moved by hand an hour after the event fired.
		s.Placements = []store.Placement{
			placementAt(store.EntityLead, "lead-1", pipeSales, "Callback", hoursAgo(2)),
		}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.StageName != "Callback" {
		t.Errorf("stage = %q, want manual Callback kept", item.StageName)
	}
}

func TestSalesArchivedTrayPinsLead(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001", CallbackAt: hoursAhead(2)}}
		s.Orders = []store.Order{{ID: "ord-1", LeadID: "lead-1", Status: store.OrderCompleted}}
		s.Trays = []store.Tray{{ID: "tray-1", OrderID: "ord-1", Number: "T-100-copy", Status: store.TrayFinalized}}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.StageName != "Archived" {
		t.Errorf("stage = %q, want Archived", item.StageName)
	}
}

func TestSalesOrderedStatusMeansHasOrder(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001"}}
		s.Orders = []store.Order{{ID: "ord-1", LeadID: "lead-1", Status: store.OrderOrdered}}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.StageName != "Has Order" {
		t.Errorf("stage = %q, want Has Order", item.StageName)
	}
}

func TestSalesOpenFrontDeskPlacementMeansHasOrder(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001"}}
		s.Orders = []store.Order{{ID: "ord-1", LeadID: "lead-1", Status: store.OrderDraft}}
		s.Placements = []store.Placement{
			placementAt(store.EntityOrder, "ord-1", pipeDesk, "Waiting", hoursAgo(1)),
		}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.StageName != "Has Order" {
		t.Errorf("stage = %q, want Has Order", item.StageName)
	}
}

func TestSalesForeignPhone(t *testing.T) {
	tests := []struct {
		name      string
		phone     string
		persisted string
		wantStage string
	}{
		{"foreign prefix while untouched", "+49151000000", "", "Foreign"},
		{"double zero prefix", "0049151000000", "", "Foreign"},
		{"domestic plus prefix", "+40722000001", "", "New"},
		{"domestic local prefix", "0722000001", "", "New"},
		{"foreign but already worked", "+49151000000", "Callback", "Callback"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := newSnapshot(func(s *Snapshot) {
				s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: tc.phone}}
				if tc.persisted != "" {
					s.Placements = []store.Placement{
						placementAt(store.EntityLead, "lead-1", pipeSales, tc.persisted, hoursAgo(1)),
					}
				}
			})

			item := findItem(salesItems(t, snap), "lead-1")
			if item.StageName != tc.wantStage {
				t.Errorf("stage = %q, want %q", item.StageName, tc.wantStage)
			}
		})
	}
}

func TestSalesDefaultsToNewStage(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001"}}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.StageName != "New" {
		t.Errorf("stage = %q, want New", item.StageName)
	}
}

func TestSalesAggregatesOrderTotals(t *testing.T) {
	snap := newSnapshot(func(s *Snapshot) {
		s.Leads = []store.Lead{{ID: "lead-1", Name: "Irina Pop", Phone: "0722000001"}}
		s.Orders = []store.Order{{ID: "ord-1", LeadID: "lead-1", Status: store.OrderOrdered}}
		s.Trays = []store.Tray{{ID: "tray-1", OrderID: "ord-1", Number: "T-100", Status: store.TrayWaiting}}
		s.Prices = []store.ServicePrice{{ID: "svc-1", Name: "Crown", PriceCents: 25000, DurationMin: 90}}
		s.TrayItems = []store.TrayItem{{ID: "ti-1", TrayID: "tray-1", ServiceID: "svc-1", Quantity: 2}}
	})

	item := findItem(salesItems(t, snap), "lead-1")
	if item.MoneyTotal != 50000 {
		t.Errorf("money total = %d, want 50000", item.MoneyTotal)
	}
	if item.EstimatedMin != 180 {
		t.Errorf("estimated minutes = %d, want 180", item.EstimatedMin)
	}
}
