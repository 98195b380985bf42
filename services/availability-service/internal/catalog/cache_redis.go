package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares the catalog between service instances.
type RedisCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration, prefix string) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "clinicslots"
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) clinicsKey() string {
	return c.prefix + ":clinics"
}

func (c *RedisCache) appointmentsKey(clinicID int64) string {
	return c.prefix + ":appointments:" + strconv.FormatInt(clinicID, 10)
}

func (c *RedisCache) Clinics(ctx context.Context) ([]model.Clinic, bool, error) {
	var clinics []model.Clinic
	ok, err := c.get(ctx, c.clinicsKey(), &clinics)
	return clinics, ok, err
}

func (c *RedisCache) StoreClinics(ctx context.Context, clinics []model.Clinic) error {
	if clinics == nil {
		clinics = []model.Clinic{}
	}
	return c.set(ctx, c.clinicsKey(), clinics)
}

func (c *RedisCache) Appointments(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, bool, error) {
	var appts []model.ScheduledAppointment
	ok, err := c.get(ctx, c.appointmentsKey(clinicID), &appts)
	return appts, ok, err
}

func (c *RedisCache) StoreAppointments(ctx context.Context, clinicID int64, appts []model.ScheduledAppointment) error {
	if appts == nil {
		appts = []model.ScheduledAppointment{}
	}
	return c.set(ctx, c.appointmentsKey(clinicID), appts)
}

func (c *RedisCache) Invalidate(ctx context.Context, clinicID int64) error {
	return c.rdb.Del(ctx, c.appointmentsKey(clinicID)).Err()
}

func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	keys := []string{c.clinicsKey()}
	iter := c.rdb.Scan(ctx, 0, c.prefix+":appointments:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// Treat an undecodable entry as a miss; the next store overwrites it.
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}
