package sharedstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/types"
)

// RedisStore implements Store over a Redis connection.
type RedisStore struct {
	client *redis.Client
}

// Config holds RedisStore connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore dials Redis and returns a ready Store.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to shared store: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an already-constructed client. Used by
// tests to point a RedisStore at a miniredis instance.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SyncSite upserts one registry field and publishes an update.
func (s *RedisStore) SyncSite(ctx context.Context, site types.SiteConfig) error {
	data, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("failed to encode site config: %w", err)
	}
	if err := s.client.HSet(ctx, registryHashKey, site.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to write site config: %w", err)
	}
	return s.publish(ctx, types.RegistryUpdate{Action: types.RegistryActionUpdate, Site: &site})
}

// RemoveSite deletes one registry field and publishes a delete.
func (s *RedisStore) RemoveSite(ctx context.Context, siteID string) error {
	if err := s.client.HDel(ctx, registryHashKey, siteID).Err(); err != nil {
		return fmt.Errorf("failed to remove site config: %w", err)
	}
	return s.publish(ctx, types.RegistryUpdate{Action: types.RegistryActionDelete, Site: &types.SiteConfig{ID: siteID}})
}

// BulkSync acquires the advisory lock, replaces the whole registry hash,
// and publishes a bulk update. The lock is released on every exit path.
func (s *RedisStore) BulkSync(ctx context.Context, sites []types.SiteConfig) error {
	acquired, err := s.client.SetNX(ctx, syncLockKey, time.Now().UnixMilli(), syncLockTTLSeconds*time.Second).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("sync lock already held")
	}
	defer func() {
		if err := s.client.Del(ctx, syncLockKey).Err(); err != nil {
			log.Logger.Error().Err(err).Msg("failed to release sync lock")
		}
	}()

	if err := s.client.Del(ctx, registryHashKey).Err(); err != nil {
		return fmt.Errorf("failed to clear registry hash: %w", err)
	}

	if len(sites) > 0 {
		pipe := s.client.Pipeline()
		for _, site := range sites {
			data, err := json.Marshal(site)
			if err != nil {
				return fmt.Errorf("failed to encode site config %s: %w", site.ID, err)
			}
			pipe.HSet(ctx, registryHashKey, site.ID, data)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to pipeline registry hash writes: %w", err)
		}
	}

	return s.publish(ctx, types.RegistryUpdate{Action: types.RegistryActionBulk, Sites: sites})
}

// VerifySync returns true iff the registry hash has exactly the given
// sites, each matching on url, checkInterval, and isActive.
func (s *RedisStore) VerifySync(ctx context.Context, sites []types.SiteConfig) (bool, error) {
	stored, err := s.ListSiteConfigs(ctx)
	if err != nil {
		return false, err
	}
	if len(stored) != len(sites) {
		return false, nil
	}

	byID := make(map[string]types.SiteConfig, len(stored))
	for _, sc := range stored {
		byID[sc.ID] = sc
	}

	for _, want := range sites {
		got, ok := byID[want.ID]
		if !ok {
			return false, nil
		}
		if got.URL != want.URL || got.CheckInterval != want.CheckInterval || got.IsActive != want.IsActive {
			return false, nil
		}
	}
	return true, nil
}

// ListSiteConfigs reads the entire registry hash.
func (s *RedisStore) ListSiteConfigs(ctx context.Context) ([]types.SiteConfig, error) {
	raw, err := s.client.HGetAll(ctx, registryHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read registry hash: %w", err)
	}
	out := make([]types.SiteConfig, 0, len(raw))
	for _, v := range raw {
		var sc types.SiteConfig
		if err := json.Unmarshal([]byte(v), &sc); err != nil {
			return nil, fmt.Errorf("failed to decode site config: %w", err)
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *RedisStore) publish(ctx context.Context, update types.RegistryUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode registry update: %w", err)
	}
	if err := s.client.Publish(ctx, registryChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish registry update: %w", err)
	}
	return nil
}

// SubscribeRegistryUpdates subscribes to the registry channel. The
// returned close func unsubscribes and drains the goroutine; callers
// must invoke it on shutdown.
func (s *RedisStore) SubscribeRegistryUpdates(ctx context.Context) (<-chan types.RegistryUpdate, func() error) {
	pubsub := s.client.Subscribe(ctx, registryChannel)
	out := make(chan types.RegistryUpdate, 16)

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for msg := range ch {
			var update types.RegistryUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				log.Logger.Error().Err(err).Msg("failed to decode registry update")
				continue
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close
}

// PutMeasurement writes a measurement with the spec's 600s TTL.
func (s *RedisStore) PutMeasurement(ctx context.Context, siteID, workerID string, m *types.Measurement) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode measurement: %w", err)
	}
	if err := s.client.Set(ctx, measurementKey(siteID, workerID), data, measurementTTLSeconds*time.Second).Err(); err != nil {
		return fmt.Errorf("failed to write measurement: %w", err)
	}
	return nil
}

// GetMeasurement reads the latest measurement for (siteID, workerID). A
// missing/expired key is reported as (nil, false, nil), not an error.
func (s *RedisStore) GetMeasurement(ctx context.Context, siteID, workerID string) (*types.Measurement, bool, error) {
	data, err := s.client.Get(ctx, measurementKey(siteID, workerID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read measurement: %w", err)
	}
	var m types.Measurement
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("failed to decode measurement: %w", err)
	}
	return &m, true, nil
}

// Heartbeat rewrites the worker's presence hash and refreshes its TTL.
func (s *RedisStore) Heartbeat(ctx context.Context, presence types.WorkerPresence) error {
	key := presenceKey(presence.WorkerID)
	fields := map[string]interface{}{
		"region":        presence.Region,
		"startedAt":     presence.StartedAt.Format(time.RFC3339),
		"lastHeartbeat": presence.LastHeartbeat.Format(time.RFC3339),
		"activeSites":   presence.ActiveSites,
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, presenceTTLSeconds*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write presence: %w", err)
	}
	return nil
}

// ListPresentWorkers scans for live presence keys and parses each one.
// Absence of a key means that worker is considered offline (spec §3).
func (s *RedisStore) ListPresentWorkers(ctx context.Context) ([]types.WorkerPresence, error) {
	var (
		cursor  uint64
		workers []types.WorkerPresence
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, presenceKeyScan, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan presence keys: %w", err)
		}
		for _, key := range keys {
			raw, err := s.client.HGetAll(ctx, key).Result()
			if err != nil || len(raw) == 0 {
				continue
			}
			wp := parsePresence(key, raw)
			workers = append(workers, wp)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return workers, nil
}

func parsePresence(key string, raw map[string]string) types.WorkerPresence {
	workerID := key
	if len(key) > len("workers:") {
		workerID = key[len("workers:"):]
	}
	startedAt, _ := time.Parse(time.RFC3339, raw["startedAt"])
	lastHeartbeat, _ := time.Parse(time.RFC3339, raw["lastHeartbeat"])
	activeSites := 0
	fmt.Sscanf(raw["activeSites"], "%d", &activeSites)
	return types.WorkerPresence{
		WorkerID:      workerID,
		Region:        raw["region"],
		StartedAt:     startedAt,
		LastHeartbeat: lastHeartbeat,
		ActiveSites:   activeSites,
	}
}
