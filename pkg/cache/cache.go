package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisclient "github.com/richxcame/vehicle-marketplace/pkg/redis"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Manager stores JSON encoded values in Redis.
type Manager struct {
	redis redisclient.ClientInterface
}

func NewManager(redis redisclient.ClientInterface) *Manager {
	return &Manager{redis: redis}
}

// Get unmarshals the cached value for key into result.
func (m *Manager) Get(ctx context.Context, key string, result interface{}) error {
	data, err := m.redis.GetString(ctx, key)
	if errors.Is(err, redisclient.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), result)
}

func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return m.redis.SetWithExpiration(ctx, key, string(data), ttl)
}

func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	return m.redis.Delete(ctx, keys...)
}

// Keys builds cache keys.
type Keys struct{}

// VehicleCalendar is the key of a vehicle's availability block list.
func (Keys) VehicleCalendar(vehicleID uuid.UUID) string {
	return "calendar:vehicle:" + vehicleID.String()
}

// Idempotency is the key of a stored response for an Idempotency-Key header.
func (Keys) Idempotency(userID, key string) string {
	return "idempotency:" + userID + ":" + key
}
