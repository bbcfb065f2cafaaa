// Package ristretto caches recent decision records in process, keyed by
// task id, fronting the durable store on the read path.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

// RecordCache is an L1 cache of decision records.
type RecordCache struct {
	c   *ristretto.Cache[string, *gate.DecisionRecord]
	ttl time.Duration
}

// New creates a record cache holding up to maxRecords entries with the
// given TTL.
func New(maxRecords int64, ttl time.Duration) (*RecordCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *gate.DecisionRecord]{
		NumCounters: maxRecords * 10,
		MaxCost:     maxRecords,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RecordCache{c: c, ttl: ttl}, nil
}

// Get retrieves a record by task id.
func (rc *RecordCache) Get(taskID string) (*gate.DecisionRecord, bool) {
	return rc.c.Get(taskID)
}

// Put stores a record under its task id. Each record costs one unit.
func (rc *RecordCache) Put(rec *gate.DecisionRecord) {
	rc.c.SetWithTTL(rec.TaskID, rec, 1, rc.ttl)
}

// Close shuts down the cache and releases resources.
func (rc *RecordCache) Close() {
	rc.c.Close()
}
