package search

import (
	"context"
	"log"
	"time"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// ResyncLoop reindexes from PostgreSQL once immediately and then on every
// tick until the context is cancelled. The board data is mutated outside this
// API, so the index converges by resync rather than per-write updates.
func (s *Service) ResyncLoop(ctx context.Context, interval time.Duration) {
	s.ReindexAllFromPG(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ReindexAllFromPG(ctx)
		}
	}
}

// ReindexAll pushes pre-loaded records to Meilisearch.
func (s *Service) ReindexAll(leads []LeadRecord, orders []OrderRecord, trays []TrayRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(leads) > 0 {
		if err := s.meili.IndexLeads(leads); err != nil {
			log.Printf("search: reindex leads: %v", err)
		}
	}
	if len(orders) > 0 {
		if err := s.meili.IndexOrders(orders); err != nil {
			log.Printf("search: reindex orders: %v", err)
		}
	}
	if len(trays) > 0 {
		if err := s.meili.IndexTrays(trays); err != nil {
			log.Printf("search: reindex trays: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	leads, orders, trays, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(leads, orders, trays)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
