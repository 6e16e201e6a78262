package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Snapshot fetchers. Read-only, no business rules: filtering and overrides are
// the engine's job.
// ---------------------------------------------------------------------------

func (s *PostgresStore) ListPipelines(ctx context.Context) ([]Pipeline, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM pipelines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	items := make([]Pipeline, 0)
	for rows.Next() {
		var item Pipeline
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipelines: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListStages(ctx context.Context) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline_id, name, sort_order
		FROM stages
		ORDER BY pipeline_id, sort_order
	`)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	items := make([]Stage, 0)
	for rows.Next() {
		var item Stage
		if err := rows.Scan(&item.ID, &item.PipelineID, &item.Name, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListPlacements(ctx context.Context) ([]Placement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, pipeline_id, stage_id, created_at, updated_at
		FROM placements
	`)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	defer rows.Close()

	items := make([]Placement, 0)
	for rows.Next() {
		var item Placement
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.PipelineID, &item.StageID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placements: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, no_deal, callback_at, no_answer_at, created_at, updated_at
		FROM leads
	`)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		var item Lead
		if err := rows.Scan(&item.ID, &item.Name, &item.Phone, &item.NoDeal, &item.CallbackAt, &item.NoAnswerAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lead_id, status, courier_sent, office_direct, package_unclaimed,
		       urgent, callback_at, no_answer_at, created_at, updated_at
		FROM orders
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	items := make([]Order, 0)
	for rows.Next() {
		var item Order
		if err := rows.Scan(&item.ID, &item.LeadID, &item.Status, &item.CourierSent, &item.OfficeDirect, &item.PackageUnclaimed, &item.Urgent, &item.CallbackAt, &item.NoAnswerAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListTrays(ctx context.Context) ([]Tray, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, number, status,
		       technician_id, technician2_id, technician3_id,
		       split_from_id, created_at, updated_at
		FROM trays
	`)
	if err != nil {
		return nil, fmt.Errorf("list trays: %w", err)
	}
	defer rows.Close()

	items := make([]Tray, 0)
	for rows.Next() {
		var item Tray
		var tech1, tech2, tech3 sql.NullString
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Number, &item.Status, &tech1, &tech2, &tech3, &item.SplitFromID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tray: %w", err)
		}
		for _, tech := range []sql.NullString{tech1, tech2, tech3} {
			if tech.Valid && tech.String != "" {
				item.TechnicianIDs = append(item.TechnicianIDs, tech.String)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trays: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListTrayItems(ctx context.Context) ([]TrayItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tray_id, service_id, quantity FROM tray_items
	`)
	if err != nil {
		return nil, fmt.Errorf("list tray items: %w", err)
	}
	defer rows.Close()

	items := make([]TrayItem, 0)
	for rows.Next() {
		var item TrayItem
		if err := rows.Scan(&item.ID, &item.TrayID, &item.ServiceID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan tray item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tray items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListServicePrices(ctx context.Context) ([]ServicePrice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, department_tag, price_cents, duration_min FROM services
	`)
	if err != nil {
		return nil, fmt.Errorf("list service prices: %w", err)
	}
	defer rows.Close()

	items := make([]ServicePrice, 0)
	for rows.Next() {
		var item ServicePrice
		if err := rows.Scan(&item.ID, &item.Name, &item.DepartmentTag, &item.PriceCents, &item.DurationMin); err != nil {
			return nil, fmt.Errorf("scan service price: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service prices: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListLeadTags(ctx context.Context) ([]LeadTag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lt.lead_id, t.id, t.name, t.reserved
		FROM lead_tags lt
		JOIN tags t ON t.id = lt.tag_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list lead tags: %w", err)
	}
	defer rows.Close()

	items := make([]LeadTag, 0)
	for rows.Next() {
		var item LeadTag
		if err := rows.Scan(&item.LeadID, &item.Tag.ID, &item.Tag.Name, &item.Tag.Reserved); err != nil {
			return nil, fmt.Errorf("scan lead tag: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead tags: %w", err)
	}
	return items, nil
}

// ListEvents returns log rows for the given event types, oldest first. The
// fold order matters: callers keep the last event per entity.
func (s *PostgresStore) ListEvents(ctx context.Context, eventTypes []string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, event_type, created_at, payload
		FROM events
		WHERE event_type = ANY($1)
		ORDER BY created_at, id
	`, eventTypes)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]Event, 0)
	for rows.Next() {
		var item Event
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.EventType, &item.CreatedAt, &item.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListTechnicians(ctx context.Context) ([]Technician, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, display_name FROM technicians`)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	defer rows.Close()

	items := make([]Technician, 0)
	for rows.Next() {
		var item Technician
		if err := rows.Scan(&item.ID, &item.DisplayName); err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate technicians: %w", err)
	}
	return items, nil
}

// ---------------------------------------------------------------------------
// Corrective writes. All idempotent: re-running them against already-corrected
// rows is a no-op, so overlapping projections may race without locking.
// ---------------------------------------------------------------------------

// UpdatePlacementStages moves a batch of placements to one target stage.
func (s *PostgresStore) UpdatePlacementStages(ctx context.Context, placementIDs []string, stageID string) error {
	if len(placementIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE placements SET stage_id=$2, updated_at=NOW()
		WHERE id = ANY($1) AND stage_id <> $2
	`, placementIDs, stageID)
	if err != nil {
		return fmt.Errorf("update placement stages: %w", err)
	}
	return nil
}

// UpdatePlacementStage is the one-row fallback when a batch write fails, so
// one bad row never blocks the rest.
func (s *PostgresStore) UpdatePlacementStage(ctx context.Context, placementID, stageID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE placements SET stage_id=$2, updated_at=NOW()
		WHERE id=$1 AND stage_id <> $2
	`, placementID, stageID)
	if err != nil {
		return fmt.Errorf("update placement stage: %w", err)
	}
	return nil
}

// InsertPlacement creates a placement for an entity that has none in the
// pipeline. On conflict it converges on the given stage.
func (s *PostgresStore) InsertPlacement(ctx context.Context, p Placement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO placements (id, entity_type, entity_id, pipeline_id, stage_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_type, entity_id, pipeline_id)
		DO UPDATE SET stage_id=EXCLUDED.stage_id, updated_at=NOW()
	`, p.ID, p.EntityType, p.EntityID, p.PipelineID, p.StageID)
	if err != nil {
		return fmt.Errorf("insert placement: %w", err)
	}
	return nil
}

// ClearPackageUnclaimed drops the unclaimed flag once an order resolves to the
// Arrived stage.
func (s *PostgresStore) ClearPackageUnclaimed(ctx context.Context, orderIDs []string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET package_unclaimed=FALSE, updated_at=NOW()
		WHERE id = ANY($1) AND package_unclaimed
	`, orderIDs)
	if err != nil {
		return fmt.Errorf("clear package unclaimed: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Staff accounts and refresh sessions (Postgres fallback when Redis is not
// configured).
// ---------------------------------------------------------------------------

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role FROM users WHERE email=$1
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.display_name, u.email, u.role
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}
