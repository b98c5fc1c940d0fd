package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/classbill/classbill/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyAttendanceIngestOrg = "attendance:ingest:org:%s"

// AttendanceIngestLimiter throttles per-organization check-in and check-out
// traffic. A nil limiter (no redis configured) allows everything.
type AttendanceIngestLimiter struct {
	bucket *TokenBucket

	orgRate  float64
	orgBurst int
}

func NewAttendanceIngestLimiter(cfg config.Config) *AttendanceIngestLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &AttendanceIngestLimiter{
		bucket:   NewTokenBucket(client),
		orgRate:  cfg.AttendanceIngestRate,
		orgBurst: cfg.AttendanceIngestBurst,
	}
}

func (l *AttendanceIngestLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *AttendanceIngestLimiter) AllowOrg(ctx context.Context, orgID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAttendanceIngestOrg, strings.TrimSpace(orgID)), l.orgRate, l.orgBurst)
}
