package durastore

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sitewatch/platform/pkg/types"
)

// PostgresStore implements Store over a Postgres connection pool.
type PostgresStore struct {
	db *sqlx.DB
}

// Open dials Postgres and verifies connectivity.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open durable store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach durable store: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// jsonColumn adapts a Go value to a jsonb column via database/sql.
type jsonColumn struct {
	v interface{}
}

func (j jsonColumn) Value() (driver.Value, error) {
	return json.Marshal(j.v)
}

func scanJSON(raw []byte, dest interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

const siteColumns = `id, url, check_interval, is_active, owner_id, created_at, updated_at`

func (s *PostgresStore) CreateSite(ctx context.Context, site *types.Site) error {
	if site.ID == "" {
		site.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	site.CreatedAt, site.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (id, url, check_interval, is_active, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		site.ID, site.URL, site.CheckInterval, site.IsActive, site.OwnerID, site.CreatedAt, site.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSite(ctx context.Context, id string) (*types.Site, error) {
	var site types.Site
	err := s.db.GetContext(ctx, &site, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get site %s: %w", id, err)
	}
	return &site, nil
}

func (s *PostgresStore) ListActiveSites(ctx context.Context) ([]*types.Site, error) {
	var sites []*types.Site
	err := s.db.SelectContext(ctx, &sites, `SELECT `+siteColumns+` FROM sites WHERE is_active = true ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sites: %w", err)
	}
	return sites, nil
}

func (s *PostgresStore) ListSitesByOwner(ctx context.Context, ownerID string) ([]*types.Site, error) {
	var sites []*types.Site
	err := s.db.SelectContext(ctx, &sites, `SELECT `+siteColumns+` FROM sites WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites for owner %s: %w", ownerID, err)
	}
	return sites, nil
}

func (s *PostgresStore) UpdateSite(ctx context.Context, site *types.Site) error {
	site.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sites SET url = $2, check_interval = $3, is_active = $4, updated_at = $5
		WHERE id = $1`,
		site.ID, site.URL, site.CheckInterval, site.IsActive, site.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update site %s: %w", site.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s not found", site.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteSite(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM site_status WHERE site_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete status history for site %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete site %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *PostgresStore) InsertSiteStatus(ctx context.Context, status *types.SiteStatus) error {
	if status.ID == "" {
		status.ID = uuid.New().String()
	}
	if status.CreatedAt.IsZero() {
		status.CreatedAt = time.Now().UTC()
	}

	dns, err := json.Marshal(status.DNS)
	if err != nil {
		return fmt.Errorf("failed to encode dns result: %w", err)
	}
	tcp, err := json.Marshal(status.TCP)
	if err != nil {
		return fmt.Errorf("failed to encode tcp result: %w", err)
	}
	ping, err := json.Marshal(status.Ping)
	if err != nil {
		return fmt.Errorf("failed to encode ping result: %w", err)
	}
	httpResult, err := json.Marshal(status.HTTP)
	if err != nil {
		return fmt.Errorf("failed to encode http result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO site_status (id, site_id, worker_id, region, checked_at, is_up, dns, tcp, ping, http, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		status.ID, status.SiteID, status.WorkerID, status.Region, status.CheckedAt, status.IsUp,
		dns, tcp, ping, httpResult, status.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert site status: %w", err)
	}
	return nil
}

type statusRow struct {
	ID        string    `db:"id"`
	SiteID    string    `db:"site_id"`
	WorkerID  string    `db:"worker_id"`
	Region    string    `db:"region"`
	CheckedAt time.Time `db:"checked_at"`
	IsUp      bool      `db:"is_up"`
	DNS       []byte    `db:"dns"`
	TCP       []byte    `db:"tcp"`
	Ping      []byte    `db:"ping"`
	HTTP      []byte    `db:"http"`
	CreatedAt time.Time `db:"created_at"`
}

func (r statusRow) toSiteStatus() (*types.SiteStatus, error) {
	status := &types.SiteStatus{
		ID:        r.ID,
		SiteID:    r.SiteID,
		WorkerID:  r.WorkerID,
		Region:    r.Region,
		CheckedAt: r.CheckedAt,
		IsUp:      r.IsUp,
		CreatedAt: r.CreatedAt,
	}
	if err := scanJSON(r.DNS, &status.DNS); err != nil {
		return nil, fmt.Errorf("failed to decode dns result: %w", err)
	}
	if err := scanJSON(r.TCP, &status.TCP); err != nil {
		return nil, fmt.Errorf("failed to decode tcp result: %w", err)
	}
	if err := scanJSON(r.Ping, &status.Ping); err != nil {
		return nil, fmt.Errorf("failed to decode ping result: %w", err)
	}
	if err := scanJSON(r.HTTP, &status.HTTP); err != nil {
		return nil, fmt.Errorf("failed to decode http result: %w", err)
	}
	return status, nil
}

const statusColumns = `id, site_id, worker_id, region, checked_at, is_up, dns, tcp, ping, http, created_at`

func (s *PostgresStore) LatestConsensus(ctx context.Context, siteID string) (*types.SiteStatus, error) {
	var row statusRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+statusColumns+` FROM site_status
		WHERE site_id = $1 AND worker_id = $2
		ORDER BY checked_at DESC LIMIT 1`,
		siteID, types.ConsensusWorkerID)
	if err != nil {
		return nil, err
	}
	return row.toSiteStatus()
}

func (s *PostgresStore) ListStatusHistory(ctx context.Context, siteID string, since time.Time, limit int) ([]*types.SiteStatus, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []statusRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+statusColumns+` FROM site_status
		WHERE site_id = $1 AND checked_at >= $2 AND worker_id = $3
		ORDER BY checked_at DESC LIMIT $4`,
		siteID, since, types.ConsensusWorkerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history for site %s: %w", siteID, err)
	}

	statuses := make([]*types.SiteStatus, 0, len(rows))
	for _, r := range rows {
		status, err := r.toSiteStatus()
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *PostgresStore) ListNotificationSettings(ctx context.Context, siteID string) ([]types.NotificationSetting, error) {
	var settings []types.NotificationSetting
	err := s.db.SelectContext(ctx, &settings, `
		SELECT site_id, channel, target, enabled FROM notification_settings
		WHERE site_id = $1 AND enabled = true`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification settings for site %s: %w", siteID, err)
	}
	return settings, nil
}
