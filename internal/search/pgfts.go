package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS searches with PostgreSQL full-text search; the fallback when
// Meilisearch is down.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across leads, orders, and trays using
// plainto_tsquery and ts_rank, with ts_headline for snippets. Orders have no
// text of their own so they match through the owning lead's vector.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('simple', $1)"
	args := []any{q.Text}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultLead {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'lead'::text AS type, l.id, l.name AS title,
				ts_headline('simple', l.phone, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				l.id AS lead_id,
				''::text AS status,
				ts_rank(l.fts, %s) AS rank
			FROM leads l
			WHERE l.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultOrder {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'order'::text AS type, o.id, l.name AS title,
				ts_headline('simple', l.phone, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				o.lead_id,
				o.status,
				ts_rank(l.fts, %s) AS rank
			FROM orders o
			JOIN leads l ON l.id = o.lead_id
			WHERE l.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultTray {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'tray'::text AS type, t.id, t.number AS title,
				ts_headline('simple', l.name, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				o.lead_id,
				t.status,
				ts_rank(t.fts || l.fts, %s) AS rank
			FROM trays t
			JOIN orders o ON o.id = t.order_id
			JOIN leads l ON l.id = o.lead_id
			WHERE (t.fts || l.fts) @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, lead_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.LeadID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]LeadRecord, []OrderRecord, []TrayRecord, error) {
	leadRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, phone
		FROM leads
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load leads: %w", err)
	}
	defer leadRows.Close()

	leads := make([]LeadRecord, 0)
	for leadRows.Next() {
		var l LeadRecord
		if err := leadRows.Scan(&l.ID, &l.Name, &l.Phone); err != nil {
			return nil, nil, nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := leadRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate leads: %w", err)
	}

	orderRows, err := p.db.QueryContext(ctx, `
		SELECT o.id, o.lead_id, l.name, l.phone, o.status
		FROM orders o
		JOIN leads l ON l.id = o.lead_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load orders: %w", err)
	}
	defer orderRows.Close()

	orders := make([]OrderRecord, 0)
	for orderRows.Next() {
		var o OrderRecord
		if err := orderRows.Scan(&o.ID, &o.LeadID, &o.LeadName, &o.Phone, &o.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := orderRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate orders: %w", err)
	}

	trayRows, err := p.db.QueryContext(ctx, `
		SELECT t.id, t.order_id, o.lead_id, t.number, l.name, t.status
		FROM trays t
		JOIN orders o ON o.id = t.order_id
		JOIN leads l ON l.id = o.lead_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load trays: %w", err)
	}
	defer trayRows.Close()

	trays := make([]TrayRecord, 0)
	for trayRows.Next() {
		var t TrayRecord
		if err := trayRows.Scan(&t.ID, &t.OrderID, &t.LeadID, &t.Number, &t.LeadName, &t.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan tray: %w", err)
		}
		trays = append(trays, t)
	}
	if err := trayRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate trays: %w", err)
	}

	return leads, orders, trays, nil
}
