package service

import (
	"strings"
	"time"

	"github.com/classbill/classbill/internal/cache"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
)

// Snapshots are read-only reporting data; a short staleness window is an
// accepted trade-off.
const snapshotTTL = 5 * time.Minute

type snapshotCache struct {
	entries cache.Cache[string, snapshotdomain.FinancialSnapshot]
}

// NewCache returns the in-memory snapshot cache keyed by organization and
// subject.
func NewCache() snapshotdomain.Cache {
	return &snapshotCache{
		entries: cache.NewTTLCache[string, snapshotdomain.FinancialSnapshot](),
	}
}

func (c *snapshotCache) Get(orgID, subjectID string) (snapshotdomain.FinancialSnapshot, bool) {
	return c.entries.Get(cacheKey(orgID, subjectID))
}

func (c *snapshotCache) Set(orgID, subjectID string, snapshot snapshotdomain.FinancialSnapshot) {
	c.entries.Set(cacheKey(orgID, subjectID), snapshot, snapshotTTL)
}

func (c *snapshotCache) InvalidateOrg(orgID string) {
	prefix := orgID + "|"
	c.entries.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func cacheKey(orgID, subjectID string) string {
	return orgID + "|" + subjectID
}
